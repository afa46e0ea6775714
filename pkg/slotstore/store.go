package slotstore

import (
	"context"
	"fmt"

	"github.com/lucasdietrich/caniot-creds/pkg/creds"
)

// Store is the slot-level view of the credential region.
type Store struct {
	geom      Geometry
	transport Transport
}

// NewStore creates a store for the given geometry.
func NewStore(geom Geometry, t Transport) (*Store, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("slotstore: nil transport")
	}
	return &Store{geom: geom, transport: t}, nil
}

// Geometry returns the region geometry.
func (s *Store) Geometry() Geometry {
	return s.geom
}

// SlotCount returns the number of slots in the region.
func (s *Store) SlotCount() int {
	return s.geom.SlotCount()
}

// EraseRegion wipes the entire region.
func (s *Store) EraseRegion(ctx context.Context) error {
	if err := s.transport.EraseRegion(ctx, s.geom.Offset, s.geom.RegionSize); err != nil {
		return &TransportError{Op: "erase", Offset: s.geom.Offset, Length: s.geom.RegionSize, Cause: err}
	}
	return nil
}

// WriteSlot programs data at the start of slot index. Range and size are
// checked before any I/O. On a transport failure the slot contents are
// undefined.
func (s *Store) WriteSlot(ctx context.Context, index int, data []byte) error {
	if index < 0 || index >= s.geom.SlotCount() {
		return &IndexOutOfRangeError{Index: index, Count: s.geom.SlotCount()}
	}
	if len(data) > int(s.geom.SlotSize) {
		return &CapacityError{Size: len(data), Capacity: int(s.geom.SlotSize)}
	}

	offset := s.geom.SlotOffset(index)
	if err := s.transport.WriteRegion(ctx, offset, data); err != nil {
		return &TransportError{Op: "write", Offset: offset, Length: uint32(len(data)), Cause: err}
	}
	return nil
}

// ReadRegion reads the whole region.
func (s *Store) ReadRegion(ctx context.Context) ([]byte, error) {
	data, err := s.transport.ReadRegion(ctx, s.geom.Offset, s.geom.RegionSize)
	if err != nil {
		return nil, &TransportError{Op: "read", Offset: s.geom.Offset, Length: s.geom.RegionSize, Cause: err}
	}
	return data, nil
}

// Parse returns a fresh parser over raw region bytes. No I/O is performed.
func (s *Store) Parse(raw []byte) *Parser {
	return NewParser(s.geom, raw)
}

// ParseAll classifies every slot in raw. On a truncated buffer the records
// parsed so far are returned together with a *TruncatedReadError.
func (s *Store) ParseAll(raw []byte) ([]creds.Record, error) {
	return s.Parse(raw).All()
}

// ReadRecords reads the region and classifies every slot.
func (s *Store) ReadRecords(ctx context.Context) ([]creds.Record, error) {
	raw, err := s.ReadRegion(ctx)
	if err != nil {
		return nil, err
	}
	return s.ParseAll(raw)
}

// FindFirstFreeSlot returns the lowest index whose status is unallocated.
func FindFirstFreeSlot(records []creds.Record) (int, error) {
	for _, rec := range records {
		if rec.Status == creds.StatusUnallocated {
			return rec.Slot, nil
		}
	}
	return -1, ErrNoFreeSlot
}
