package slotstore

import "context"

// Transport moves bytes to and from the storage medium. Offsets are
// relative to the start of the flash bank. Every call blocks until the
// medium has completed the operation or the context expires.
type Transport interface {
	// ReadRegion reads length bytes at offset.
	ReadRegion(ctx context.Context, offset, length uint32) ([]byte, error)

	// EraseRegion returns length bytes at offset to the erased state (0xFF).
	EraseRegion(ctx context.Context, offset, length uint32) error

	// WriteRegion programs data at offset.
	WriteRegion(ctx context.Context, offset uint32, data []byte) error
}
