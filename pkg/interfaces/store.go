package interfaces

import (
	"context"
	"errors"

	"chronos/internal/model"
)

// ErrStoreUnavailable the external store could not be reached or refused the credentials
var ErrStoreUnavailable = errors.New("task store unavailable")

// DatasetStore external tabular store holding the three record sets
// Every Save is a full clear-then-write of each record set.
type DatasetStore interface {
	// Load reads all record sets. A connection failure returns ErrStoreUnavailable,
	// a failing single record set is reported in Dataset.Warnings.
	Load(ctx context.Context) (*model.Dataset, error)

	// Save overwrites every record set with ds.
	Save(ctx context.Context, ds *model.Dataset) error
}

// SnapshotCache holds the last committed dataset
type SnapshotCache interface {
	Get(ctx context.Context) (*model.Dataset, bool)
	Set(ctx context.Context, ds *model.Dataset)
	Invalidate(ctx context.Context)
}
