package view

import (
	"errors"
	"fmt"

	bk "github.com/hanksha/field-booking-realtime/booking"
)

var ErrViewNotFound = errors.New("view not found")

var ErrViewClosed = errors.New("view closed")

// SnapshotFetchError means the source could not deliver a snapshot. The view keeps
// its last-known-good list and is marked stale.
type SnapshotFetchError struct {
	Scope bk.Scope
	Err   error
}

func (e *SnapshotFetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s snapshot: %v", e.Scope, e.Err)
}

func (e *SnapshotFetchError) Unwrap() error {
	return e.Err
}
