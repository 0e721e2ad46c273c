package model

import "time"

// ChangeType kind of dataset mutation
type ChangeType string

const (
	ChangeTasksAdded      ChangeType = "TASKS_ADDED"
	ChangeTaskUpdated     ChangeType = "TASK_UPDATED"
	ChangeTaskDeleted     ChangeType = "TASK_DELETED"
	ChangeEmployeeAdded   ChangeType = "EMPLOYEE_ADDED"
	ChangeEmployeeRenamed ChangeType = "EMPLOYEE_RENAMED"
	ChangeEmployeeDeleted ChangeType = "EMPLOYEE_DELETED"
	ChangeProjectAdded    ChangeType = "PROJECT_ADDED"
	ChangeProjectRenamed  ChangeType = "PROJECT_RENAMED"
	ChangeProjectDeleted  ChangeType = "PROJECT_DELETED"
	ChangeRefreshed       ChangeType = "REFRESHED"

	// ChangeLateAlert is published by the late alert job, not by a mutation
	ChangeLateAlert ChangeType = "LATE_ALERT"
)

// ChangeEvent record of one committed mutation
type ChangeEvent struct {
	ID        string                 `json:"id"`
	Type      ChangeType             `json:"type"`
	Subject   string                 `json:"subject"` // employee/project name or sub task
	TaskIDs   []string               `json:"task_ids,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RowCount  int                    `json:"row_count"` // rows in the dataset after the change
	CreatedAt time.Time              `json:"created_at"`
}
