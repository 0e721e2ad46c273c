package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"chronos/internal/model"
)

const (
	timelinePadding   = 5 // days around the populated range
	emptyWindowBefore = 7
	emptyWindowAfter  = 14
	gradeAThreshold   = 90.0
	gradeBThreshold   = 80.0
	gradeCThreshold   = 70.0
)

// ReportService read models derived from the current dataset
type ReportService struct {
	tracker *TrackerService
}

// NewReportService creates the report service.
func NewReportService(tracker *TrackerService) *ReportService {
	return &ReportService{tracker: tracker}
}

// LateTasks rows past their end date and not completed.
func (s *ReportService) LateTasks(ctx context.Context) ([]model.LateTask, error) {
	ds, err := s.tracker.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return lateTasks(ds.Rows), nil
}

func lateTasks(rows []model.TaskRow) []model.LateTask {
	late := make([]model.LateTask, 0)
	for _, r := range rows {
		if r.Status != model.StatusLate {
			continue
		}
		late = append(late, model.LateTask{
			ID:       r.ID,
			Employee: r.Employee,
			Project:  r.MainTask,
			SubTask:  r.SubTask,
			EndDate:  r.EndDate,
			Progress: r.Progress,
		})
	}
	return late
}

// Timeline builds the Gantt chart bars. Rows without both dates are left out.
func (s *ReportService) Timeline(ctx context.Context, q model.TimelineQuery) (*model.Timeline, error) {
	switch q.View {
	case "":
		q.View = model.TimelineByEmployee
	case model.TimelineByEmployee, model.TimelineByTask:
	default:
		return nil, fmt.Errorf("%w: view must be %q or %q", ErrValidation, model.TimelineByEmployee, model.TimelineByTask)
	}

	ds, err := s.tracker.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return buildTimeline(ds.Rows, q, s.tracker.Today(), s.tracker.Location()), nil
}

func buildTimeline(rows []model.TaskRow, q model.TimelineQuery, today model.Date, loc *time.Location) *model.Timeline {
	wanted := make(map[string]bool, len(q.Employees))
	for _, e := range q.Employees {
		wanted[e] = true
	}

	tl := &model.Timeline{View: q.View, Today: today, Bars: []model.TimelineBar{}}
	var minStart, maxEnd model.Date
	for _, r := range rows {
		if len(wanted) > 0 && !wanted[r.Employee] {
			continue
		}
		if r.StartDate.IsZero() || r.EndDate.IsZero() {
			continue
		}

		icon := progressIcon(r.Progress)
		lane := r.Employee
		if q.View == model.TimelineByTask {
			lane = icon + " " + r.SubTask
		}

		tl.Bars = append(tl.Bars, model.TimelineBar{
			TaskID:    r.ID,
			Lane:      lane,
			Group:     r.MainTask,
			Employee:  r.Employee,
			SubTask:   r.SubTask,
			Start:     midnight(r.StartDate, loc),
			VisualEnd: midnight(r.EndDate.AddDays(1), loc).Add(-time.Second),
			Label:     strconv.Itoa(r.Progress) + "%",
			Icon:      icon,
			Progress:  r.Progress,
			Score:     r.Score,
			Status:    r.Status,
			Output:    r.Output,
		})

		if minStart.IsZero() || r.StartDate.Before(minStart) {
			minStart = r.StartDate
		}
		if maxEnd.IsZero() || r.EndDate.After(maxEnd) {
			maxEnd = r.EndDate
		}
	}

	if len(tl.Bars) == 0 {
		tl.WindowStart = midnight(today.AddDays(-emptyWindowBefore), loc)
		tl.WindowEnd = midnight(today.AddDays(emptyWindowAfter), loc)
	} else {
		tl.WindowStart = midnight(minStart.AddDays(-timelinePadding), loc)
		tl.WindowEnd = midnight(maxEnd.AddDays(timelinePadding), loc)
	}
	return tl
}

func progressIcon(progress int) string {
	switch progress {
	case 100:
		return model.IconDone
	case 0:
		return model.IconNotStarted
	default:
		return model.IconInProgress
	}
}

func midnight(d model.Date, loc *time.Location) time.Time {
	t := d.Time()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Performance summarizes each employee's rows ending in year. Year 0 selects
// the most recent year with data.
func (s *ReportService) Performance(ctx context.Context, year int) (*model.PerformanceReport, error) {
	ds, err := s.tracker.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return buildPerformance(ds.Rows, year), nil
}

func buildPerformance(rows []model.TaskRow, year int) *model.PerformanceReport {
	report := &model.PerformanceReport{Years: []int{}, Employees: []model.EmployeePerformance{}}

	seen := make(map[int]bool)
	for _, r := range rows {
		if r.EndDate.IsZero() || seen[r.EndDate.Year()] {
			continue
		}
		seen[r.EndDate.Year()] = true
		report.Years = append(report.Years, r.EndDate.Year())
	}
	sort.Sort(sort.Reverse(sort.IntSlice(report.Years)))

	if year == 0 && len(report.Years) > 0 {
		year = report.Years[0]
	}
	report.Year = year

	type tally struct {
		total, late, scored, scoreSum int
	}
	tallies := make(map[string]*tally)
	var order []string
	for _, r := range rows {
		if r.EndDate.IsZero() || r.EndDate.Year() != year {
			continue
		}
		t, ok := tallies[r.Employee]
		if !ok {
			t = &tally{}
			tallies[r.Employee] = t
			order = append(order, r.Employee)
		}
		t.total++
		if r.Status == model.StatusLate {
			t.late++
		}
		if r.Score != nil {
			t.scored++
			t.scoreSum += *r.Score
		}
	}
	sort.Strings(order)

	for _, name := range order {
		t := tallies[name]
		avg := 0.0
		if t.scored > 0 {
			avg = float64(t.scoreSum) / float64(t.scored)
		}
		report.Employees = append(report.Employees, model.EmployeePerformance{
			Employee:      name,
			Total:         t.total,
			AverageScore:  avg,
			Late:          t.late,
			OnTimePercent: float64(t.total-t.late) / float64(t.total) * 100,
			Grade:         grade(avg),
		})
	}

	for i := range report.Employees {
		if report.TopPerformer == nil || report.Employees[i].AverageScore > report.TopPerformer.AverageScore {
			top := report.Employees[i]
			report.TopPerformer = &top
		}
	}
	return report
}

func grade(avg float64) string {
	switch {
	case avg >= gradeAThreshold:
		return "A"
	case avg >= gradeBThreshold:
		return "B"
	case avg >= gradeCThreshold:
		return "C"
	default:
		return "D"
	}
}

// DependencyOptions lists what a new task in project can wait for: the
// no-dependency marker first, then the project's sub tasks by end date, latest first.
func (s *ReportService) DependencyOptions(ctx context.Context, project string) ([]string, error) {
	ds, err := s.tracker.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return dependencyOptions(ds.Rows, project), nil
}

func dependencyOptions(rows []model.TaskRow, project string) []string {
	var candidates []model.TaskRow
	for _, r := range rows {
		if r.MainTask == project && r.SubTask != "" {
			candidates = append(candidates, r)
		}
	}
	// missing end dates sort last
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].EndDate, candidates[j].EndDate
		if a.IsZero() != b.IsZero() {
			return b.IsZero()
		}
		return a.After(b)
	})

	options := []string{model.NoDependency}
	seen := make(map[string]bool)
	for _, r := range candidates {
		if seen[r.SubTask] {
			continue
		}
		seen[r.SubTask] = true
		options = append(options, r.SubTask)
	}
	return options
}

// SuggestStart proposes dates for a task that waits on dependency: both start
// and end are set to the day after the dependency ends.
func (s *ReportService) SuggestStart(ctx context.Context, project, dependency string) (*model.StartSuggestion, error) {
	probe := model.TaskRow{Dependency: dependency}
	if !probe.HasDependency() {
		return nil, fmt.Errorf("%w: a dependency is required", ErrValidation)
	}

	ds, err := s.tracker.Dataset(ctx)
	if err != nil {
		return nil, err
	}

	for _, r := range ds.Rows {
		if r.MainTask != project || r.SubTask != dependency {
			continue
		}
		end := r.EndDate
		if end.IsZero() {
			end = s.tracker.Today()
		}
		start := end.AddDays(1)
		return &model.StartSuggestion{Dependency: dependency, StartDate: start, EndDate: start}, nil
	}
	return nil, fmt.Errorf("%w: task %q in project %q", ErrNotFound, dependency, project)
}
