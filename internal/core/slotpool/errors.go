package slotpool

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacityExceeded is returned by Create when every slot is live.
	ErrCapacityExceeded = errors.New("slotpool: capacity exceeded")
	// ErrInvalidHandle is returned for handles that are foreign, out of range
	// or point at a free slot.
	ErrInvalidHandle = errors.New("slotpool: invalid handle")
	// ErrPoolDesync marks an index that is live in one zipped pool but not the other.
	ErrPoolDesync = errors.New("slotpool: pools out of sync")
	// ErrClosed is returned by every mutating call on a closed pool.
	ErrClosed = errors.New("slotpool: pool closed")
)

// DesyncError reports one misaligned index found by Zip.
type DesyncError struct {
	Index     int
	ActiveInA bool
	ActiveInB bool
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("%v: index %d (a active=%t, b active=%t)",
		ErrPoolDesync, e.Index, e.ActiveInA, e.ActiveInB)
}

func (e *DesyncError) Unwrap() error { return ErrPoolDesync }
