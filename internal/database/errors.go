package database

import "errors"

var (
	// ErrConcurrentUpdate means another writer changed the review track between
	// read and write. The write was not applied and may be retried.
	ErrConcurrentUpdate = errors.New("database: concurrent update of review track")
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("database: not found")
)
