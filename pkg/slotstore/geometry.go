package slotstore

import (
	"fmt"

	"github.com/lucasdietrich/caniot-creds/pkg/creds"
)

// DefaultSlotSize is the slot size used by the firmware (one flash page).
const DefaultSlotSize = 0x1000

// Geometry describes the credential region.
type Geometry struct {
	// Offset is the region start, relative to the flash bank.
	Offset uint32

	// RegionSize is the size of the region in bytes.
	RegionSize uint32

	// SlotSize is the size of one slot, control block included.
	SlotSize uint32
}

// Validate checks that the geometry describes at least one usable slot.
func (g Geometry) Validate() error {
	if g.SlotSize <= creds.ControlBlockSize {
		return fmt.Errorf("%w: slot size 0x%x must exceed the %d-byte control block",
			ErrInvalidGeometry, g.SlotSize, creds.ControlBlockSize)
	}
	if g.RegionSize < g.SlotSize {
		return fmt.Errorf("%w: region size 0x%x smaller than slot size 0x%x",
			ErrInvalidGeometry, g.RegionSize, g.SlotSize)
	}
	if uint64(g.Offset)+uint64(g.RegionSize) > 1<<32 {
		return fmt.Errorf("%w: region 0x%x+0x%x overflows the address space",
			ErrInvalidGeometry, g.Offset, g.RegionSize)
	}
	return nil
}

// SlotCount returns the number of complete slots in the region.
func (g Geometry) SlotCount() int {
	if g.SlotSize == 0 {
		return 0
	}
	return int(g.RegionSize / g.SlotSize)
}

// PayloadCapacity returns the payload bytes available per slot.
func (g Geometry) PayloadCapacity() int {
	if g.SlotSize <= creds.ControlBlockSize {
		return 0
	}
	return int(g.SlotSize) - creds.ControlBlockSize
}

// SlotOffset returns the absolute offset of slot i.
func (g Geometry) SlotOffset(i int) uint32 {
	return g.Offset + uint32(i)*g.SlotSize
}

// String returns a compact description of the geometry.
func (g Geometry) String() string {
	return fmt.Sprintf("region 0x%08x+0x%x, %d slots of 0x%x bytes",
		g.Offset, g.RegionSize, g.SlotCount(), g.SlotSize)
}
