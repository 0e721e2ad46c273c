package mysql

import (
	"context"
	"fmt"

	mysqlModel "chronos/pkg/store/mysql/model"
)

// Repository aggregates all MySQL repositories
type Repository struct {
	ds *Datastore

	ChangeEvent *ChangeEventRepository
}

// NewRepository connects to MySQL and migrates the audit schema.
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	ds, err := NewDatastore(dsn)
	if err != nil {
		return nil, err
	}

	if err := ds.DB(ctx).AutoMigrate(&mysqlModel.ChangeEvent{}); err != nil {
		_ = ds.Close()
		return nil, fmt.Errorf("failed to migrate audit schema: %w", err)
	}

	return &Repository{
		ds:          ds,
		ChangeEvent: NewChangeEventRepository(ds),
	}, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.ds.Close()
}
