package mysql

import (
	"context"
	"fmt"
	"time"

	"chronos/internal/model"
	"chronos/pkg/interfaces"
	mysqlModel "chronos/pkg/store/mysql/model"
)

// ChangeEventRepository persists the audit trail of dataset mutations
type ChangeEventRepository struct {
	ds *Datastore
}

var _ interfaces.AuditRecorder = (*ChangeEventRepository)(nil)

// NewChangeEventRepository creates a new change event repository
func NewChangeEventRepository(ds *Datastore) *ChangeEventRepository {
	return &ChangeEventRepository{ds: ds}
}

// RecordEvent stores one committed change
func (r *ChangeEventRepository) RecordEvent(ctx context.Context, event *model.ChangeEvent) error {
	if err := r.ds.DB(ctx).Create(toChangeEventRow(event)).Error; err != nil {
		return fmt.Errorf("failed to record change event: %w", err)
	}
	return nil
}

// ListEvents returns the latest events, newest first
func (r *ChangeEventRepository) ListEvents(ctx context.Context, limit int) ([]*model.ChangeEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []*mysqlModel.ChangeEvent
	err := r.ds.DB(ctx).
		Order("event_time DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list change events: %w", err)
	}

	events := make([]*model.ChangeEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, fromChangeEventRow(row))
	}
	return events, nil
}

// CleanupOldEvents deletes events recorded before the given time
func (r *ChangeEventRepository) CleanupOldEvents(ctx context.Context, before time.Time) (int64, error) {
	result := r.ds.DB(ctx).Where("event_time < ?", before).Delete(&mysqlModel.ChangeEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clean up change events: %w", result.Error)
	}
	return result.RowsAffected, nil
}
