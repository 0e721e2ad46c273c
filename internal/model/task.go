package model

import "strings"

// Status derived display label of a task row
type Status string

const (
	StatusCompleted      Status = "completed"
	StatusNotStarted     Status = "not yet started"
	StatusLate           Status = "late"
	StatusInProgress     Status = "in progress"
	StatusDateIncomplete Status = "date incomplete"
	StatusError          Status = "error"
)

// NoDependency is the dependency value meaning "start fresh".
const NoDependency = "- start fresh -"

// legacyNoDependency is the same marker as written by the first dashboard.
const legacyNoDependency = "- เริ่มต้นใหม่ (ไม่รอใคร) -"

// TaskRow one unit of work assigned to one employee under one project
type TaskRow struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id,omitempty"`
	Employee   string `json:"employee"`
	ProjectID  string `json:"project_id,omitempty"`
	MainTask   string `json:"main_task"`
	SubTask    string `json:"sub_task"`
	StartDate  Date   `json:"start_date"`
	EndDate    Date   `json:"end_date"`
	Output     string `json:"output"`
	Issue      string `json:"issue"`
	Dependency string `json:"dependency"`
	Progress   int    `json:"progress"`
	Score      *int   `json:"score"` // nil means "not scored", distinct from 0
	Status     Status `json:"status"`

	// RawProgress keeps a progress cell that is not a number, so it survives
	// a save untouched. Such a row is scored as incomplete until edited.
	RawProgress string `json:"raw_progress,omitempty"`
}

// ProgressMalformed reports whether the stored progress could not be read.
func (r *TaskRow) ProgressMalformed() bool {
	return r.RawProgress != ""
}

// HasDependency reports whether the row depends on another sub task.
func (r *TaskRow) HasDependency() bool {
	dep := strings.TrimSpace(r.Dependency)
	return dep != "" && dep != "-" && dep != NoDependency && dep != legacyNoDependency
}

// TaskTemplate shared task metadata fanned out to one row per employee
type TaskTemplate struct {
	Project    string `json:"project" binding:"required"`
	SubTask    string `json:"sub_task"`
	Dependency string `json:"dependency"`
	StartDate  Date   `json:"start_date"`
	EndDate    Date   `json:"end_date"`
	Progress   int    `json:"progress"`
	Output     string `json:"output"`
	Issue      string `json:"issue"`
}

// CreateTasksRequest submit new task(s) request
type CreateTasksRequest struct {
	TaskTemplate
	Employees []string `json:"employees"`
}

// EditMode how RowEdit.Log is applied to the issue log
type EditMode string

const (
	EditModeAppend  EditMode = "append"
	EditModeReplace EditMode = "replace"
)

// RowEdit mutable fields of a row
type RowEdit struct {
	Progress int      `json:"progress"`
	Output   string   `json:"output"`
	Log      string   `json:"log"`
	Mode     EditMode `json:"mode"` // defaults to append
}

// TaskFilter narrows a task listing
type TaskFilter struct {
	Employees []string
	Project   string
	Status    Status
}

// Match reports whether row passes the filter.
func (f TaskFilter) Match(row *TaskRow) bool {
	if f.Project != "" && row.MainTask != f.Project {
		return false
	}
	if f.Status != "" && row.Status != f.Status {
		return false
	}
	if len(f.Employees) == 0 {
		return true
	}
	for _, e := range f.Employees {
		if row.Employee == e {
			return true
		}
	}
	return false
}
