package service

import (
	"context"
	"testing"
	"time"

	"chronos/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_LateTasks(t *testing.T) {
	tracker, _ := newTestTracker(t)
	reports := NewReportService(tracker)

	late, err := reports.LateTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, "r2", late[0].ID)
	assert.Equal(t, "Bob", late[0].Employee)
	assert.Equal(t, d(2024, 2, 10), late[0].EndDate)
}

func TestReport_TimelineByEmployee(t *testing.T) {
	tracker, _ := newTestTracker(t)
	reports := NewReportService(tracker)

	tl, err := reports.Timeline(context.Background(), model.TimelineQuery{Employees: []string{"Ann"}})
	require.NoError(t, err)
	assert.Equal(t, model.TimelineByEmployee, tl.View)
	require.Len(t, tl.Bars, 2)

	bar := tl.Bars[0]
	assert.Equal(t, "Ann", bar.Lane)
	assert.Equal(t, "Apollo", bar.Group)
	assert.Equal(t, "100%", bar.Label)
	assert.Equal(t, model.IconDone, bar.Icon)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, bangkok), bar.Start)
	assert.Equal(t, time.Date(2024, 1, 10, 23, 59, 59, 0, bangkok), bar.VisualEnd)

	assert.Equal(t, time.Date(2023, 12, 27, 0, 0, 0, 0, bangkok), tl.WindowStart)
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, bangkok), tl.WindowEnd)
}

func TestReport_TimelineByTask(t *testing.T) {
	tracker, _ := newTestTracker(t)
	reports := NewReportService(tracker)

	tl, err := reports.Timeline(context.Background(), model.TimelineQuery{View: model.TimelineByTask})
	require.NoError(t, err)
	require.Len(t, tl.Bars, 4)
	assert.Equal(t, model.IconInProgress+" Build", tl.Bars[1].Lane)
	assert.Equal(t, model.IconNotStarted+" Report", tl.Bars[3].Lane)
	assert.Equal(t, "0%", tl.Bars[3].Label)
}

func TestReport_TimelineEmptyWindowAndBadView(t *testing.T) {
	tracker, _ := newTestTracker(t)
	reports := NewReportService(tracker)

	tl, err := reports.Timeline(context.Background(), model.TimelineQuery{Employees: []string{"Nobody"}})
	require.NoError(t, err)
	assert.Empty(t, tl.Bars)
	assert.Equal(t, time.Date(2024, 5, 25, 0, 0, 0, 0, bangkok), tl.WindowStart)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, bangkok), tl.WindowEnd)

	_, err = reports.Timeline(context.Background(), model.TimelineQuery{View: "gantt"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuildTimeline_DropsRowsWithMissingDates(t *testing.T) {
	rows := []model.TaskRow{
		{ID: "a", Employee: "Ann", StartDate: d(2024, 3, 1), Progress: 20},
		{ID: "b", Employee: "Ann", StartDate: d(2024, 3, 1), EndDate: d(2024, 3, 3), Progress: 20},
	}
	tl := buildTimeline(rows, model.TimelineQuery{View: model.TimelineByEmployee}, d(2024, 3, 2), time.UTC)
	require.Len(t, tl.Bars, 1)
	assert.Equal(t, "b", tl.Bars[0].TaskID)
}

func TestBuildPerformance(t *testing.T) {
	rows := []model.TaskRow{
		{Employee: "Ann", EndDate: d(2024, 1, 10), Status: model.StatusCompleted, Score: score(100)},
		{Employee: "Ann", EndDate: d(2024, 3, 10), Status: model.StatusLate, Score: score(60)},
		{Employee: "Ann", EndDate: d(2024, 9, 10), Status: model.StatusNotStarted},
		{Employee: "Bob", EndDate: d(2024, 2, 10), Status: model.StatusInProgress, Score: score(100)},
		{Employee: "Cy", EndDate: d(2024, 2, 10), Status: model.StatusNotStarted},
		{Employee: "Ann", EndDate: d(2023, 12, 1), Status: model.StatusCompleted, Score: score(100)},
		{Employee: "Dee", Status: model.StatusDateIncomplete, Score: score(0)},
	}

	report := buildPerformance(rows, 0)
	assert.Equal(t, []int{2024, 2023}, report.Years)
	assert.Equal(t, 2024, report.Year)
	require.Len(t, report.Employees, 3)

	ann := report.Employees[0]
	assert.Equal(t, "Ann", ann.Employee)
	assert.Equal(t, 3, ann.Total)
	assert.Equal(t, 1, ann.Late)
	assert.InDelta(t, 80.0, ann.AverageScore, 0.001, "null scores are excluded")
	assert.InDelta(t, 66.667, ann.OnTimePercent, 0.001)
	assert.Equal(t, "B", ann.Grade)

	bob := report.Employees[1]
	assert.Equal(t, "A", bob.Grade)
	assert.InDelta(t, 100.0, bob.OnTimePercent, 0.001)

	cy := report.Employees[2]
	assert.Equal(t, 0.0, cy.AverageScore, "no scored rows averages 0")
	assert.Equal(t, "D", cy.Grade)

	require.NotNil(t, report.TopPerformer)
	assert.Equal(t, "Bob", report.TopPerformer.Employee)

	older := buildPerformance(rows, 2023)
	require.Len(t, older.Employees, 1)
	assert.Equal(t, "A", older.Employees[0].Grade)

	empty := buildPerformance(nil, 0)
	assert.Empty(t, empty.Years)
	assert.Nil(t, empty.TopPerformer)
}

func TestGrade(t *testing.T) {
	assert.Equal(t, "A", grade(90))
	assert.Equal(t, "B", grade(89.9))
	assert.Equal(t, "B", grade(80))
	assert.Equal(t, "C", grade(70))
	assert.Equal(t, "D", grade(69.99))
}

func TestReport_DependencyOptions(t *testing.T) {
	rows := []model.TaskRow{
		{MainTask: "Apollo", SubTask: "Design", EndDate: d(2024, 1, 10)},
		{MainTask: "Apollo", SubTask: "Undated"},
		{MainTask: "Apollo", SubTask: "Build", EndDate: d(2024, 2, 10)},
		{MainTask: "Apollo", SubTask: "Design", EndDate: d(2024, 1, 5)},
		{MainTask: "Gemini", SubTask: "Survey", EndDate: d(2024, 6, 5)},
	}
	assert.Equal(t, []string{model.NoDependency, "Build", "Design", "Undated"}, dependencyOptions(rows, "Apollo"))
	assert.Equal(t, []string{model.NoDependency}, dependencyOptions(rows, "Mercury"))
}

func TestReport_SuggestStart(t *testing.T) {
	tracker, _ := newTestTracker(t)
	reports := NewReportService(tracker)
	ctx := context.Background()

	suggestion, err := reports.SuggestStart(ctx, "Apollo", "Build")
	require.NoError(t, err)
	assert.Equal(t, d(2024, 2, 11), suggestion.StartDate)
	assert.Equal(t, d(2024, 2, 11), suggestion.EndDate)

	_, err = reports.SuggestStart(ctx, "Apollo", model.NoDependency)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = reports.SuggestStart(ctx, "Gemini", "Build")
	assert.ErrorIs(t, err, ErrNotFound)
}
