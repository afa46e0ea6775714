package creds

import (
	"hash/crc32"
)

// Record is a classified slot.
type Record struct {
	// Slot is the slot index within the region.
	Slot int

	// Status is the classification result.
	Status Status

	// Descriptor fields. Filled for every allocated slot but only trusted
	// when Status is StatusValid.
	ID       CredentialID
	Format   Format
	Strength uint8
	Version  uint8

	// CRC32 is the stored checksum.
	CRC32 uint32

	// Size is the declared payload size.
	Size uint32

	// Revoked is set when the revocation word is programmed.
	Revoked bool

	// Data is the payload, only set when Status is StatusValid.
	Data []byte
}

// Valid reports whether the record holds a usable credential.
func (r Record) Valid() bool {
	return r.Status == StatusValid
}

// Checksum returns the IEEE CRC32 of data, seeded with zero.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// Classify decodes and classifies one raw slot. len(raw) is the slot
// capacity including the control block.
func Classify(slot int, raw []byte) Record {
	rec := Record{Slot: slot}
	if len(raw) < ControlBlockSize {
		rec.Status = StatusSizeError
		return rec
	}

	cb := DecodeControlBlock([ControlBlockSize]byte(raw[:ControlBlockSize]))
	if cb.Unallocated() {
		rec.Status = StatusUnallocated
		return rec
	}

	d := cb.Fields()
	rec.ID = d.ID
	rec.Format = d.Format
	rec.Strength = d.Strength
	rec.Version = d.Version
	rec.CRC32 = cb.CRC32
	rec.Size = cb.Size
	rec.Revoked = cb.IsRevoked()

	payload := raw[ControlBlockSize:]
	switch {
	case rec.Revoked:
		rec.Status = StatusRevoked
	case cb.Size == 0 || uint64(cb.Size) > uint64(len(payload)):
		rec.Status = StatusSizeError
	case Checksum(payload[:cb.Size]) != cb.CRC32:
		rec.Status = StatusCRCError
	default:
		rec.Status = StatusValid
		rec.Data = append([]byte(nil), payload[:cb.Size]...)
	}
	return rec
}
