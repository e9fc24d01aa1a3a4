package storage

import "errors"

var (
	// ErrConflict is returned when a write would violate a uniqueness constraint
	ErrConflict = errors.New("storage: conflicting row")

	// ErrCacheMiss is returned by caches that hold no entry for a key
	ErrCacheMiss = errors.New("storage: cache miss")
)
