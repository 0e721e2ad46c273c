package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chronos/internal/model"
	"chronos/pkg/config"
	"chronos/pkg/interfaces"
	"chronos/pkg/logger"
)

// SheetNames worksheet titles of the three record sets
type SheetNames struct {
	Logs      string
	Employees string
	Projects  string
}

// SheetNamesFromConfig reads worksheet titles from configuration.
func SheetNamesFromConfig(cfg config.SheetsConfig) SheetNames {
	return SheetNames{Logs: cfg.LogsSheet, Employees: cfg.EmployeesSheet, Projects: cfg.ProjectsSheet}
}

// SaveError reports every record set that failed to save
type SaveError struct {
	Failed []string // worksheet titles
	Err    error    // joined causes
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save failed for %s: %v", strings.Join(e.Failed, ", "), e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// Store mirrors a model.Dataset to three worksheets
type Store struct {
	api   ValuesAPI
	names SheetNames
	now   func() time.Time
}

var _ interfaces.DatasetStore = (*Store)(nil)

// NewStore creates a store over api.
func NewStore(api ValuesAPI, names SheetNames) *Store {
	return &Store{api: api, names: names, now: time.Now}
}

// Load reads all three record sets. A failing probe means the store itself is
// unreachable; a failing record set is loaded as empty and reported in Warnings.
// A worksheet that does not exist yet is simply empty.
func (s *Store) Load(ctx context.Context) (*model.Dataset, error) {
	titles, err := s.api.SheetTitles(ctx)
	if err != nil {
		if errors.Is(err, interfaces.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	present := make(map[string]bool, len(titles))
	for _, t := range titles {
		present[t] = true
	}

	ds := &model.Dataset{
		Rows:      []model.TaskRow{},
		Employees: []model.Employee{},
		Projects:  []model.Project{},
		LoadedAt:  s.now(),
	}

	warn := func(sheet string, err error) {
		logger.WarnCtx(ctx, "failed to load worksheet %s, treating it as empty: %v", sheet, err)
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("%s: %v", sheet, err))
	}

	if values, err := s.read(ctx, present, s.names.Logs); err != nil {
		warn(s.names.Logs, err)
	} else if rows, err := decodeRows(values); err != nil {
		warn(s.names.Logs, err)
	} else {
		ds.Rows = rows
	}

	if values, err := s.read(ctx, present, s.names.Employees); err != nil {
		warn(s.names.Employees, err)
	} else if entries, err := decodeNames(values, "name"); err != nil {
		warn(s.names.Employees, err)
	} else {
		for _, e := range entries {
			ds.Employees = append(ds.Employees, model.Employee{ID: e.ID, Name: e.Name})
		}
	}

	if values, err := s.read(ctx, present, s.names.Projects); err != nil {
		warn(s.names.Projects, err)
	} else if entries, err := decodeNames(values, "project"); err != nil {
		warn(s.names.Projects, err)
	} else {
		for _, e := range entries {
			ds.Projects = append(ds.Projects, model.Project{ID: e.ID, Name: e.Name})
		}
	}

	ds.ResolveReferences()
	return ds, nil
}

func (s *Store) read(ctx context.Context, present map[string]bool, sheet string) ([][]interface{}, error) {
	if !present[sheet] {
		return nil, nil
	}
	return s.api.Read(ctx, sheet)
}

// Save overwrites each record set with a header row plus all entries. Every set
// is attempted even when an earlier one fails; failures come back as *SaveError.
func (s *Store) Save(ctx context.Context, ds *model.Dataset) error {
	titles, err := s.api.SheetTitles(ctx)
	if err != nil {
		return &SaveError{
			Failed: []string{s.names.Logs, s.names.Employees, s.names.Projects},
			Err:    err,
		}
	}
	present := make(map[string]bool, len(titles))
	for _, t := range titles {
		present[t] = true
	}

	employees := make([]namedEntry, 0, len(ds.Employees))
	for _, e := range ds.Employees {
		employees = append(employees, namedEntry{ID: e.ID, Name: e.Name})
	}
	projects := make([]namedEntry, 0, len(ds.Projects))
	for _, p := range ds.Projects {
		projects = append(projects, namedEntry{ID: p.ID, Name: p.Name})
	}

	writes := []struct {
		sheet  string
		values [][]interface{}
	}{
		{s.names.Logs, encodeRows(ds.Rows)},
		{s.names.Employees, encodeNames(employeesHeader, employees)},
		{s.names.Projects, encodeNames(projectsHeader, projects)},
	}

	var failed []string
	var causes []error
	for _, w := range writes {
		if err := s.write(ctx, present, w.sheet, w.values); err != nil {
			logger.ErrorCtx(ctx, "failed to save worksheet %s: %v", w.sheet, err)
			failed = append(failed, w.sheet)
			causes = append(causes, fmt.Errorf("%s: %w", w.sheet, err))
		}
	}

	if len(failed) > 0 {
		return &SaveError{Failed: failed, Err: errors.Join(causes...)}
	}
	return nil
}

func (s *Store) write(ctx context.Context, present map[string]bool, sheet string, values [][]interface{}) error {
	if !present[sheet] {
		if err := s.api.AddSheet(ctx, sheet); err != nil {
			return err
		}
	}
	return s.api.Overwrite(ctx, sheet, values)
}

// EnsureSheets creates missing worksheets and writes headers into empty ones.
// Entries written before ids existed are given one and saved back, so ids stay
// stable across loads.
func (s *Store) EnsureSheets(ctx context.Context) error {
	titles, err := s.api.SheetTitles(ctx)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(titles))
	for _, t := range titles {
		present[t] = true
	}

	sets := []struct {
		sheet  string
		header []string
	}{
		{s.names.Logs, logsHeader},
		{s.names.Employees, employeesHeader},
		{s.names.Projects, projectsHeader},
	}

	backfill := false
	for _, set := range sets {
		if !present[set.sheet] {
			if err := s.api.AddSheet(ctx, set.sheet); err != nil {
				return err
			}
			logger.InfoCtx(ctx, "created worksheet %s", set.sheet)
		} else {
			values, err := s.api.Read(ctx, set.sheet)
			if err != nil {
				return fmt.Errorf("read %s: %w", set.sheet, err)
			}
			if len(values) > 0 {
				backfill = backfill || missingIDs(values)
				continue
			}
		}
		if err := s.api.Overwrite(ctx, set.sheet, [][]interface{}{headerRow(set.header)}); err != nil {
			return err
		}
	}

	if !backfill {
		return nil
	}
	ds, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if len(ds.Warnings) > 0 {
		return fmt.Errorf("ids not backfilled, dataset loaded with warnings: %s", strings.Join(ds.Warnings, "; "))
	}
	if err := s.Save(ctx, ds); err != nil {
		return err
	}
	logger.InfoCtx(ctx, "assigned ids to %d rows, %d employees and %d projects", len(ds.Rows), len(ds.Employees), len(ds.Projects))
	return nil
}
