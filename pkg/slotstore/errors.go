package slotstore

import (
	"errors"
	"fmt"
)

// Store errors.
var (
	ErrIndexOutOfRange = errors.New("slot index out of range")
	ErrCapacity        = errors.New("data exceeds slot capacity")
	ErrTruncatedRead   = errors.New("region read truncated")
	ErrTransport       = errors.New("storage transport failure")
	ErrNoFreeSlot      = errors.New("no free slot")
	ErrInvalidGeometry = errors.New("invalid region geometry")
)

// IndexOutOfRangeError reports a slot index outside [0, Count).
type IndexOutOfRangeError struct {
	Index int
	Count int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("slot %d out of range [0, %d)", e.Index, e.Count)
}

func (e *IndexOutOfRangeError) Is(target error) bool { return target == ErrIndexOutOfRange }

// CapacityError reports data that does not fit in a slot.
type CapacityError struct {
	Size     int
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%d bytes exceed slot capacity of %d bytes", e.Size, e.Capacity)
}

func (e *CapacityError) Is(target error) bool { return target == ErrCapacity }

// TruncatedReadError reports a region buffer holding fewer complete slots
// than the geometry implies.
type TruncatedReadError struct {
	Got      int
	Expected int
}

func (e *TruncatedReadError) Error() string {
	return fmt.Sprintf("region holds %d complete slots, expected %d", e.Got, e.Expected)
}

func (e *TruncatedReadError) Is(target error) bool { return target == ErrTruncatedRead }

// TransportError wraps a failure reported by the Transport.
type TransportError struct {
	// Op is the transport operation: "read", "erase" or "write".
	Op string

	// Offset and Length describe the affected range.
	Offset uint32
	Length uint32

	// Cause is the underlying error.
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s 0x%08x+0x%x: %v", e.Op, e.Offset, e.Length, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }
