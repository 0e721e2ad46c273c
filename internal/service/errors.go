package service

import (
	"errors"

	"chronos/pkg/interfaces"
)

var (
	// ErrValidation a request was rejected before touching the dataset
	ErrValidation = errors.New("validation failed")

	// ErrNotFound unknown task, row index, employee or project
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable the spreadsheet could not be read or written
	ErrStoreUnavailable = interfaces.ErrStoreUnavailable

	// ErrLockBusy another writer holds the dataset write lock
	ErrLockBusy = errors.New("another update is in progress, retry shortly")
)
