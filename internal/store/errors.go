package store

import "errors"

var (
	// ErrNotFound is returned when a looked-up entity does not exist
	ErrNotFound = errors.New("not found")
	// ErrSeasonConflict means the active season changed under a compare-and-swap
	ErrSeasonConflict = errors.New("active season changed concurrently")
	// ErrTransient wraps store failures worth retrying
	ErrTransient = errors.New("transient store failure")
)
