package slotstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrOutOfBounds is returned by the built-in transports for accesses
// outside the backing medium.
var ErrOutOfBounds = errors.New("access outside flash bank")

// MemoryTransport emulates a NOR flash bank in memory. The bank starts
// erased; programming can only clear bits, like real flash, so writing over
// a programmed area without erasing corrupts it.
// This is primarily useful for testing and offline image building.
type MemoryTransport struct {
	mu   sync.Mutex
	bank []byte
}

// NewMemoryTransport creates an erased bank of the given size.
func NewMemoryTransport(size int) *MemoryTransport {
	return &MemoryTransport{bank: bytes.Repeat([]byte{0xFF}, size)}
}

// NewMemoryTransportFrom wraps a copy of an existing bank image.
func NewMemoryTransportFrom(image []byte) *MemoryTransport {
	return &MemoryTransport{bank: append([]byte(nil), image...)}
}

// ReadRegion returns a copy of the requested range.
func (m *MemoryTransport) ReadRegion(ctx context.Context, offset, length uint32) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(offset, uint64(length)); err != nil {
		return nil, err
	}
	return append([]byte(nil), m.bank[offset:offset+length]...), nil
}

// EraseRegion sets the requested range to 0xFF.
func (m *MemoryTransport) EraseRegion(ctx context.Context, offset, length uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(offset, uint64(length)); err != nil {
		return err
	}
	erase(m.bank[offset : offset+length])
	return nil
}

// WriteRegion programs data at offset.
func (m *MemoryTransport) WriteRegion(ctx context.Context, offset uint32, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(offset, uint64(len(data))); err != nil {
		return err
	}
	program(m.bank[offset:], data)
	return nil
}

// Bytes returns a copy of the whole bank.
func (m *MemoryTransport) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.bank...)
}

func (m *MemoryTransport) check(offset uint32, length uint64) error {
	if uint64(offset)+length > uint64(len(m.bank)) {
		return fmt.Errorf("%w: 0x%x+0x%x beyond 0x%x", ErrOutOfBounds, offset, length, len(m.bank))
	}
	return nil
}

func erase(b []byte) {
	for i := range b {
		b[i] = 0xFF
	}
}

// program applies NOR flash semantics: bits can only go from 1 to 0.
func program(dst, src []byte) {
	for i, v := range src {
		dst[i] &= v
	}
}

// Compile-time interface satisfaction check.
var _ Transport = (*MemoryTransport)(nil)
