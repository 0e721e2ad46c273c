package service

import (
	"context"
	"time"

	"chronos/internal/model"
	"chronos/pkg/logger"
)

const (
	changeEventTimeout = 5 * time.Second
	defaultAuditLimit  = 50
	maxAuditLimit      = 500
)

// recordChange persists the event to the audit trail and publishes it.
// Both are best effort: the mutation is already committed.
func (s *TrackerService) recordChange(ctx context.Context, event *model.ChangeEvent) {
	logger.InfoCtx(ctx, "dataset change committed: type=%s, subject=%q, tasks=%d, rows=%d",
		event.Type, event.Subject, len(event.TaskIDs), event.RowCount)

	if s.audit != nil {
		auditCtx, cancel := context.WithTimeout(context.Background(), changeEventTimeout)
		if err := s.audit.RecordEvent(auditCtx, event); err != nil {
			logger.ErrorCtx(ctx, "failed to record change event %s: %v", event.ID, err)
		}
		cancel()
	}

	if s.publisher != nil {
		pubCtx, cancel := context.WithTimeout(context.Background(), changeEventTimeout)
		if err := s.publisher.Publish(pubCtx, event); err != nil {
			logger.ErrorCtx(ctx, "failed to publish change event %s: %v", event.ID, err)
		}
		cancel()
	}
}

// AuditTrail returns the most recent change events, newest first.
// It returns nil when no audit recorder is configured.
func (s *TrackerService) AuditTrail(ctx context.Context, limit int) ([]*model.ChangeEvent, error) {
	if s.audit == nil {
		return nil, nil
	}
	switch {
	case limit <= 0:
		limit = defaultAuditLimit
	case limit > maxAuditLimit:
		limit = maxAuditLimit
	}
	return s.audit.ListEvents(ctx, limit)
}

// AuditEnabled reports whether change events are persisted.
func (s *TrackerService) AuditEnabled() bool {
	return s.audit != nil
}
