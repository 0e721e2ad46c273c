package mysql

import (
	"chronos/internal/model"
	mysqlModel "chronos/pkg/store/mysql/model"
)

func toChangeEventRow(e *model.ChangeEvent) *mysqlModel.ChangeEvent {
	var details mysqlModel.JSONMap
	if len(e.Details) > 0 {
		details = mysqlModel.JSONMap(e.Details)
	}
	var taskIDs mysqlModel.JSONStringArray
	if len(e.TaskIDs) > 0 {
		taskIDs = mysqlModel.JSONStringArray(e.TaskIDs)
	}
	return &mysqlModel.ChangeEvent{
		EventID:   e.ID,
		EventType: string(e.Type),
		Subject:   e.Subject,
		TaskIDs:   taskIDs,
		RowCount:  e.RowCount,
		EventTime: e.CreatedAt,
		Details:   details,
	}
}

func fromChangeEventRow(row *mysqlModel.ChangeEvent) *model.ChangeEvent {
	return &model.ChangeEvent{
		ID:        row.EventID,
		Type:      model.ChangeType(row.EventType),
		Subject:   row.Subject,
		TaskIDs:   []string(row.TaskIDs),
		Details:   map[string]interface{}(row.Details),
		RowCount:  row.RowCount,
		CreatedAt: row.EventTime,
	}
}
