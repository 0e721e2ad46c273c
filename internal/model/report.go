package model

import "time"

// TimelineView lane grouping of the Gantt chart
type TimelineView string

const (
	TimelineByEmployee TimelineView = "employee"
	TimelineByTask     TimelineView = "task"
)

// Progress icons shown on timeline lanes
const (
	IconDone       = "✅"
	IconNotStarted = "⚪"
	IconInProgress = "🚧"
)

// TimelineQuery Gantt chart request
type TimelineQuery struct {
	View      TimelineView
	Employees []string // empty means everyone
}

// TimelineBar one bar of the Gantt chart
type TimelineBar struct {
	TaskID    string    `json:"task_id"`
	Lane      string    `json:"lane"`
	Group     string    `json:"group"` // color group, the project
	Employee  string    `json:"employee"`
	SubTask   string    `json:"sub_task"`
	Start     time.Time `json:"start"`
	VisualEnd time.Time `json:"visual_end"`
	Label     string    `json:"label"`
	Icon      string    `json:"icon"`
	Progress  int       `json:"progress"`
	Score     *int      `json:"score"`
	Status    Status    `json:"status"`
	Output    string    `json:"output"`
}

// Timeline Gantt chart read model
type Timeline struct {
	View        TimelineView  `json:"view"`
	WindowStart time.Time     `json:"window_start"`
	WindowEnd   time.Time     `json:"window_end"`
	Today       Date          `json:"today"`
	Bars        []TimelineBar `json:"bars"`
}

// EmployeePerformance one employee's summary for a year
type EmployeePerformance struct {
	Employee      string  `json:"employee"`
	Total         int     `json:"total"`
	AverageScore  float64 `json:"average_score"`
	Late          int     `json:"late"`
	OnTimePercent float64 `json:"on_time_percent"`
	Grade         string  `json:"grade"`
}

// PerformanceReport yearly performance summary
type PerformanceReport struct {
	Years        []int                 `json:"years"` // years with data, most recent first
	Year         int                   `json:"year"`
	Employees    []EmployeePerformance `json:"employees"`
	TopPerformer *EmployeePerformance  `json:"top_performer,omitempty"`
}

// LateTask late alert entry
type LateTask struct {
	ID       string `json:"id"`
	Employee string `json:"employee"`
	Project  string `json:"project"`
	SubTask  string `json:"sub_task"`
	EndDate  Date   `json:"end_date"`
	Progress int    `json:"progress"`
}

// StartSuggestion dates proposed for a task that follows a dependency
type StartSuggestion struct {
	Dependency string `json:"dependency"`
	StartDate  Date   `json:"start_date"`
	EndDate    Date   `json:"end_date"`
}
