package store

import (
	"errors"
	"fmt"
)

// ErrConflict is returned when a compare-and-swap advance loses the
// race against another runner that already advanced the schedule.
var ErrConflict = errors.New("schedule already advanced by another runner")

// ErrNotFound is returned when a record does not exist or is soft-deleted.
var ErrNotFound = errors.New("record not found")

// ValidationError rejects bad schedule input before anything is persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
