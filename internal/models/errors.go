package models

import "errors"

// Custom errors
var (
	ErrFetch              = errors.New("odds fetch failed")
	ErrCorruptSnapshot    = errors.New("corrupt snapshot")
	ErrStorageWrite       = errors.New("snapshot write failed")
	ErrInvalidQuery       = errors.New("invalid query")
	ErrInvalidSnapshotKey = errors.New("invalid snapshot key")
	ErrCycleInProgress    = errors.New("poll cycle already in progress")
)
