package interfaces

import (
	"context"

	"chronos/internal/model"
)

// AuditRecorder persists committed change events
type AuditRecorder interface {
	RecordEvent(ctx context.Context, event *model.ChangeEvent) error
	ListEvents(ctx context.Context, limit int) ([]*model.ChangeEvent, error)
}

// EventPublisher fans committed change events out to other systems
type EventPublisher interface {
	Publish(ctx context.Context, event *model.ChangeEvent) error
	Close() error
}

// WriteLock serializes dataset writes across service instances
type WriteLock interface {
	// TryLock returns false without error when another holder owns the lock.
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}
