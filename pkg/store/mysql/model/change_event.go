package model

import "time"

// ChangeEvent MySQL model for change_events table
type ChangeEvent struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID   string          `gorm:"column:event_id;type:varchar(64);not null;uniqueIndex:idx_event_id_unique" json:"event_id"`
	EventType string          `gorm:"column:event_type;type:varchar(50);not null;index:idx_event_type" json:"event_type"`
	Subject   string          `gorm:"column:subject;type:varchar(255)" json:"subject"`
	TaskIDs   JSONStringArray `gorm:"column:task_ids;type:json" json:"task_ids"`
	RowCount  int             `gorm:"column:row_count;type:int;default:0" json:"row_count"`
	EventTime time.Time       `gorm:"column:event_time;type:datetime(3);not null;index:idx_event_time" json:"event_time"`
	Details   JSONMap         `gorm:"column:details;type:json" json:"details"`
}

// TableName specifies the table name for ChangeEvent
func (ChangeEvent) TableName() string {
	return "change_events"
}
