package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"chronos/internal/model"
	"chronos/pkg/interfaces"
	"chronos/pkg/logger"

	"github.com/google/uuid"
)

const (
	defaultLockWait   = 3 * time.Second
	lockRetryInterval = 100 * time.Millisecond
)

// TrackerService owns the dataset: reads go through the snapshot cache, every
// mutation is applied to a copy, recomputed, saved in full and only then committed.
type TrackerService struct {
	store     interfaces.DatasetStore
	cache     interfaces.SnapshotCache
	lock      interfaces.WriteLock
	audit     interfaces.AuditRecorder
	publisher interfaces.EventPublisher

	loc      *time.Location
	clock    func() time.Time
	lockWait time.Duration

	mu sync.Mutex // serializes writers within this process
}

// NewTrackerService creates the tracker. loc decides which calendar day "today" is.
func NewTrackerService(store interfaces.DatasetStore, cache interfaces.SnapshotCache, loc *time.Location) *TrackerService {
	if loc == nil {
		loc = time.UTC
	}
	return &TrackerService{
		store:    store,
		cache:    cache,
		loc:      loc,
		clock:    time.Now,
		lockWait: defaultLockWait,
	}
}

// WithWriteLock serializes writes across instances.
func (s *TrackerService) WithWriteLock(lock interfaces.WriteLock) *TrackerService {
	s.lock = lock
	return s
}

// WithAuditRecorder persists an event for every committed mutation.
func (s *TrackerService) WithAuditRecorder(audit interfaces.AuditRecorder) *TrackerService {
	s.audit = audit
	return s
}

// WithEventPublisher publishes every committed mutation.
func (s *TrackerService) WithEventPublisher(publisher interfaces.EventPublisher) *TrackerService {
	s.publisher = publisher
	return s
}

// WithClock replaces the wall clock.
func (s *TrackerService) WithClock(clock func() time.Time) *TrackerService {
	s.clock = clock
	return s
}

// Today returns the current calendar date in the tracker's time zone.
func (s *TrackerService) Today() model.Date {
	return model.DateOf(s.clock().In(s.loc))
}

// Location returns the tracker's time zone.
func (s *TrackerService) Location() *time.Location {
	return s.loc
}

// Dataset returns a private copy of the current dataset with fresh statuses.
func (s *TrackerService) Dataset(ctx context.Context) (*model.Dataset, error) {
	ds, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	ApplyStatuses(ds.Rows, s.Today())
	return ds, nil
}

// Refresh discards the snapshot cache and reloads from the store.
func (s *TrackerService) Refresh(ctx context.Context) (*model.Dataset, error) {
	s.cache.Invalidate(ctx)
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	logger.InfoCtx(ctx, "dataset refreshed: %d tasks, %d employees, %d projects",
		len(ds.Rows), len(ds.Employees), len(ds.Projects))
	return ds, nil
}

// current returns the cached dataset or loads and caches it.
func (s *TrackerService) current(ctx context.Context) (*model.Dataset, error) {
	if ds, ok := s.cache.Get(ctx); ok {
		return ds, nil
	}

	ds, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	ApplyStatuses(ds.Rows, s.Today())
	s.cache.Set(ctx, ds)
	return ds.Clone(), nil
}

// Tasks lists rows passing filter.
func (s *TrackerService) Tasks(ctx context.Context, filter model.TaskFilter) ([]model.TaskRow, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]model.TaskRow, 0, len(ds.Rows))
	for i := range ds.Rows {
		if filter.Match(&ds.Rows[i]) {
			rows = append(rows, ds.Rows[i])
		}
	}
	return rows, nil
}

// Task returns the row with the given id.
func (s *TrackerService) Task(ctx context.Context, id string) (*model.TaskRow, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	i := ds.RowIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, id)
	}
	return &ds.Rows[i], nil
}

// mutation applies a change to ds and describes it. A nil event means nothing changed.
type mutation func(ds *model.Dataset) (*model.ChangeEvent, error)

// mutate runs fn against a copy of the current dataset and commits it after a
// successful save. On failure the committed state is left as it was.
func (s *TrackerService) mutate(ctx context.Context, fn mutation) (*model.Dataset, *model.ChangeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	release, err := s.acquireWriteLock(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	current, err := s.current(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(current.Warnings) > 0 {
		return nil, nil, fmt.Errorf("%w: refusing to overwrite partially loaded data (%s), refresh first",
			ErrStoreUnavailable, strings.Join(current.Warnings, "; "))
	}

	work := current.Clone()
	event, err := fn(work)
	if err != nil {
		return nil, nil, err
	}
	if event == nil {
		return current, nil, nil
	}

	work.ResolveReferences()
	ApplyStatuses(work.Rows, s.Today())

	if err := s.store.Save(ctx, work); err != nil {
		// the sheet may be half written, force the next read to go to the store
		s.cache.Invalidate(ctx)
		return nil, nil, fmt.Errorf("save dataset: %w", err)
	}

	work.LoadedAt = s.clock()
	s.cache.Set(ctx, work)

	event.ID = uuid.NewString()
	event.CreatedAt = work.LoadedAt
	event.RowCount = len(work.Rows)
	s.recordChange(ctx, event)

	return work, event, nil
}

func (s *TrackerService) acquireWriteLock(ctx context.Context) (func(), error) {
	if s.lock == nil {
		return func() {}, nil
	}

	deadline := time.Now().Add(s.lockWait)
	for {
		acquired, err := s.lock.TryLock(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire write lock: %w", err)
		}
		if acquired {
			return func() {
				if err := s.lock.Unlock(context.Background()); err != nil {
					logger.WarnCtx(ctx, "failed to release write lock: %v", err)
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockBusy
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

// AddEmployee appends name to the roster. A blank or duplicate name is a
// no-op and reports added == false.
func (s *TrackerService) AddEmployee(ctx context.Context, name string) (*model.Employee, bool, error) {
	name = strings.TrimSpace(name)
	var added *model.Employee

	_, _, err := s.mutate(ctx, func(ds *model.Dataset) (*model.ChangeEvent, error) {
		if name == "" {
			return nil, nil
		}
		if _, exists := ds.EmployeeByName(name); exists {
			return nil, nil
		}
		emp := model.Employee{ID: uuid.NewString(), Name: name}
		ds.Employees = append(ds.Employees, emp)
		added = &emp
		return &model.ChangeEvent{Type: model.ChangeEmployeeAdded, Subject: name}, nil
	})
	if err != nil {
		return nil, false, err
	}
	return added, added != nil, nil
}

// AddProject appends name to the project roster, same rules as AddEmployee.
func (s *TrackerService) AddProject(ctx context.Context, name string) (*model.Project, bool, error) {
	name = strings.TrimSpace(name)
	var added *model.Project

	_, _, err := s.mutate(ctx, func(ds *model.Dataset) (*model.ChangeEvent, error) {
		if name == "" {
			return nil, nil
		}
		if _, exists := ds.ProjectByName(name); exists {
			return nil, nil
		}
		proj := model.Project{ID: uuid.NewString(), Name: name}
		ds.Projects = append(ds.Projects, proj)
		added = &proj
		return &model.ChangeEvent{Type: model.ChangeProjectAdded, Subject: name}, nil
	})
	if err != nil {
		return nil, false, err
	}
	return added, added != nil, nil
}

// DeleteEmployee removes the employee and every row assigned to them.
// It returns the number of rows removed.
func (s *TrackerService) DeleteEmployee(ctx context.Context, name string) (int, error) {
	removed := 0
	_, _, err := s.mutate(ctx, func(ds *model.Dataset) (*model.ChangeEvent, error) {
		emp, ok := ds.EmployeeByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: employee %q", ErrNotFound, name)
		}
		id := emp.ID

		ds.Employees = removeEmployee(ds.Employees, id)
		var taskIDs []string
		ds.Rows, taskIDs = removeRows(ds.Rows, func(r *model.TaskRow) bool {
			return r.EmployeeID == id || (r.EmployeeID == "" && r.Employee == name)
		})
		removed = len(taskIDs)

		return &model.ChangeEvent{
			Type:    model.ChangeEmployeeDeleted,
			Subject: name,
			TaskIDs: taskIDs,
			Details: map[string]interface{}{"rows_removed": removed},
		}, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// DeleteProject removes the project and every row under it.
func (s *TrackerService) DeleteProject(ctx context.Context, name string) (int, error) {
	removed := 0
	_, _, err := s.mutate(ctx, func(ds *model.Dataset) (*model.ChangeEvent, error) {
		proj, ok := ds.ProjectByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: project %q", ErrNotFound, name)
		}
		id := proj.ID

		ds.Projects = removeProject(ds.Projects, id)
		var taskIDs []string
		ds.Rows, taskIDs = removeRows(ds.Rows, func(r *model.TaskRow) bool {
			return r.ProjectID == id || (r.ProjectID == "" && r.MainTask == name)
		})
		removed = len(taskIDs)

		return &model.ChangeEvent{
			Type:    model.ChangeProjectDeleted,
			Subject: name,
			TaskIDs: taskIDs,
			Details: map[string]interface{}{"rows_removed": removed},
		}, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// RenameEmployee renames a roster entry; linked rows follow on save.
func (s *TrackerService) RenameEmployee(ctx context.Context, id, name string) (*model.Employee, error) {
	name = strings.TrimSpace(name)
	var renamed model.Employee

	_, _, err := s.mutate(ctx, func(ds *model.Dataset) (*model.ChangeEvent, error) {
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrValidation)
		}
		emp, ok := ds.EmployeeByID(id)
		if !ok {
			return nil, fmt.Errorf("%w: employee %s", ErrNotFound, id)
		}
		if other, exists := ds.EmployeeByName(name); exists && other.ID != id {
			return nil, fmt.Errorf("%w: employee %q already exists", ErrValidation, name)
		}
		old := emp.Name
		emp.Name = name
		renamed = *emp
		if old == name {
			return nil, nil
		}
		return &model.ChangeEvent{
			Type:    model.ChangeEmployeeRenamed,
			Subject: name,
			Details: map[string]interface{}{"from": old},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &renamed, nil
}

// RenameProject renames a project; linked rows follow on save.
func (s *TrackerService) RenameProject(ctx context.Context, id, name string) (*model.Project, error) {
	name = strings.TrimSpace(name)
	var renamed model.Project

	_, _, err := s.mutate(ctx, func(ds *model.Dataset) (*model.ChangeEvent, error) {
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrValidation)
		}
		proj, ok := ds.ProjectByID(id)
		if !ok {
			return nil, fmt.Errorf("%w: project %s", ErrNotFound, id)
		}
		if other, exists := ds.ProjectByName(name); exists && other.ID != id {
			return nil, fmt.Errorf("%w: project %q already exists", ErrValidation, name)
		}
		old := proj.Name
		proj.Name = name
		renamed = *proj
		if old == name {
			return nil, nil
		}
		return &model.ChangeEvent{
			Type:    model.ChangeProjectRenamed,
			Subject: name,
			Details: map[string]interface{}{"from": old},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &renamed, nil
}

// AddTaskRows creates one row per employee from the shared template. Nothing
// is added when the template or the employee list is invalid.
func (s *TrackerService) AddTaskRows(ctx context.Context, tmpl model.TaskTemplate, employees []string) ([]model.TaskRow, error) {
	if err := validateTemplate(&tmpl, employees); err != nil {
		return nil, err
	}

	var created []model.TaskRow
	_, _, err := s.mutate(ctx, func(ds *model.Dataset) (*model.ChangeEvent, error) {
		proj, ok := ds.ProjectByName(tmpl.Project)
		if !ok {
			return nil, fmt.Errorf("%w: unknown project %q", ErrValidation, tmpl.Project)
		}

		seen := make(map[string]bool, len(employees))
		rows := make([]model.TaskRow, 0, len(employees))
		for _, name := range employees {
			name = strings.TrimSpace(name)
			if seen[name] {
				continue
			}
			seen[name] = true

			emp, ok := ds.EmployeeByName(name)
			if !ok {
				return nil, fmt.Errorf("%w: unknown employee %q", ErrValidation, name)
			}
			rows = append(rows, model.TaskRow{
				ID:         uuid.NewString(),
				EmployeeID: emp.ID,
				Employee:   emp.Name,
				ProjectID:  proj.ID,
				MainTask:   proj.Name,
				SubTask:    tmpl.SubTask,
				StartDate:  tmpl.StartDate,
				EndDate:    tmpl.EndDate,
				Output:     tmpl.Output,
				Issue:      strings.TrimSpace(tmpl.Issue),
				Dependency: tmpl.Dependency,
				Progress:   tmpl.Progress,
			})
		}

		ApplyStatuses(rows, s.Today())
		ds.Rows = append(ds.Rows, rows...)
		created = rows

		ids := make([]string, len(rows))
		for i := range rows {
			ids[i] = rows[i].ID
		}
		return &model.ChangeEvent{
			Type:    model.ChangeTasksAdded,
			Subject: tmpl.SubTask,
			TaskIDs: ids,
			Details: map[string]interface{}{"project": proj.Name, "employees": len(rows)},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func validateTemplate(tmpl *model.TaskTemplate, employees []string) error {
	tmpl.Project = strings.TrimSpace(tmpl.Project)
	tmpl.SubTask = strings.TrimSpace(tmpl.SubTask)
	tmpl.Dependency = strings.TrimSpace(tmpl.Dependency)
	if tmpl.Dependency == "" {
		tmpl.Dependency = model.NoDependency
	}

	var problems []string
	if tmpl.Project == "" {
		problems = append(problems, "project is required")
	}
	if tmpl.SubTask == "" {
		problems = append(problems, "sub_task is required")
	}
	if len(employees) == 0 {
		problems = append(problems, "at least one employee is required")
	}
	if tmpl.StartDate.IsZero() || tmpl.EndDate.IsZero() {
		problems = append(problems, "start_date and end_date are required")
	} else if tmpl.EndDate.Before(tmpl.StartDate) {
		problems = append(problems, "end_date is before start_date")
	}
	if tmpl.Progress < 0 || tmpl.Progress > 100 {
		problems = append(problems, "progress must be between 0 and 100")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// UpdateRow edits the row at position index.
func (s *TrackerService) UpdateRow(ctx context.Context, index int, edit model.RowEdit) (*model.TaskRow, error) {
	return s.updateWhere(ctx, edit, func(ds *model.Dataset) (int, error) {
		if index < 0 || index >= len(ds.Rows) {
			return 0, fmt.Errorf("%w: row %d", ErrNotFound, index)
		}
		return index, nil
	})
}

// UpdateTask edits the row with the given id.
func (s *TrackerService) UpdateTask(ctx context.Context, id string, edit model.RowEdit) (*model.TaskRow, error) {
	return s.updateWhere(ctx, edit, func(ds *model.Dataset) (int, error) {
		i := ds.RowIndex(id)
		if i < 0 {
			return 0, fmt.Errorf("%w: task %s", ErrNotFound, id)
		}
		return i, nil
	})
}

func (s *TrackerService) updateWhere(ctx context.Context, edit model.RowEdit, locate func(*model.Dataset) (int, error)) (*model.TaskRow, error) {
	if edit.Progress < 0 || edit.Progress > 100 {
		return nil, fmt.Errorf("%w: progress must be between 0 and 100", ErrValidation)
	}
	switch edit.Mode {
	case "":
		edit.Mode = model.EditModeAppend
	case model.EditModeAppend, model.EditModeReplace:
	default:
		return nil, fmt.Errorf("%w: mode must be append or replace", ErrValidation)
	}

	var updated model.TaskRow
	var index int
	ds, _, err := s.mutate(ctx, func(ds *model.Dataset) (*model.ChangeEvent, error) {
		i, err := locate(ds)
		if err != nil {
			return nil, err
		}
		index = i
		row := &ds.Rows[i]
		from := row.Progress

		row.Progress = edit.Progress
		row.RawProgress = ""
		row.Output = edit.Output
		row.Issue = s.applyLog(row.Issue, edit)

		return &model.ChangeEvent{
			Type:    model.ChangeTaskUpdated,
			Subject: row.SubTask,
			TaskIDs: []string{row.ID},
			Details: map[string]interface{}{
				"employee":      row.Employee,
				"progress_from": from,
				"progress_to":   edit.Progress,
				"mode":          string(edit.Mode),
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	updated = ds.Rows[index]
	return &updated, nil
}

// applyLog appends "- [dd/mm] text" on a new line, or replaces the whole log.
func (s *TrackerService) applyLog(issue string, edit model.RowEdit) string {
	if edit.Mode == model.EditModeReplace {
		return strings.TrimSpace(edit.Log)
	}
	entry := strings.TrimSpace(edit.Log)
	if entry != "" {
		issue += fmt.Sprintf("\n- [%s] %s", s.Today().DayMonth(), entry)
	}
	return strings.TrimSpace(issue)
}

// DeleteRow removes the row at position index.
func (s *TrackerService) DeleteRow(ctx context.Context, index int) (*model.TaskRow, error) {
	return s.deleteWhere(ctx, func(ds *model.Dataset) (int, error) {
		if index < 0 || index >= len(ds.Rows) {
			return 0, fmt.Errorf("%w: row %d", ErrNotFound, index)
		}
		return index, nil
	})
}

// DeleteTask removes the row with the given id.
func (s *TrackerService) DeleteTask(ctx context.Context, id string) (*model.TaskRow, error) {
	return s.deleteWhere(ctx, func(ds *model.Dataset) (int, error) {
		i := ds.RowIndex(id)
		if i < 0 {
			return 0, fmt.Errorf("%w: task %s", ErrNotFound, id)
		}
		return i, nil
	})
}

func (s *TrackerService) deleteWhere(ctx context.Context, locate func(*model.Dataset) (int, error)) (*model.TaskRow, error) {
	var deleted model.TaskRow
	_, _, err := s.mutate(ctx, func(ds *model.Dataset) (*model.ChangeEvent, error) {
		i, err := locate(ds)
		if err != nil {
			return nil, err
		}
		deleted = ds.Rows[i]
		ds.Rows = append(ds.Rows[:i], ds.Rows[i+1:]...)
		return &model.ChangeEvent{
			Type:    model.ChangeTaskDeleted,
			Subject: deleted.SubTask,
			TaskIDs: []string{deleted.ID},
			Details: map[string]interface{}{"employee": deleted.Employee, "project": deleted.MainTask},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

func removeEmployee(list []model.Employee, id string) []model.Employee {
	out := list[:0]
	for _, e := range list {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

func removeProject(list []model.Project, id string) []model.Project {
	out := list[:0]
	for _, p := range list {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// removeRows drops rows matching match and returns the ids removed.
func removeRows(rows []model.TaskRow, match func(*model.TaskRow) bool) ([]model.TaskRow, []string) {
	out := rows[:0]
	var removed []string
	for i := range rows {
		if match(&rows[i]) {
			removed = append(removed, rows[i].ID)
			continue
		}
		out = append(out, rows[i])
	}
	return out, removed
}
