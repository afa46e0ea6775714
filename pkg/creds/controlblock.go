package creds

import (
	"encoding/binary"
	"math"
)

// ControlBlockSize is the size of the slot header in bytes.
const ControlBlockSize = 16

// Blank is the value of an erased 32-bit flash word.
const Blank uint32 = 0xFFFFFFFF

// Descriptor is the unpacked first word of a control block.
type Descriptor struct {
	ID       CredentialID
	Format   Format
	Strength uint8
	Version  uint8
}

// Pack returns the descriptor as stored on flash.
func (d Descriptor) Pack() uint32 {
	return uint32(d.ID) |
		uint32(d.Format)<<8 |
		uint32(d.Strength)<<16 |
		uint32(d.Version)<<24
}

// UnpackDescriptor splits a stored descriptor word into its fields.
// The result is not validated: an unallocated or corrupted slot may yield
// IDs and formats outside the known sets.
func UnpackDescriptor(v uint32) Descriptor {
	return Descriptor{
		ID:       CredentialID(v & 0xFF),
		Format:   Format((v >> 8) & 0xFF),
		Strength: uint8((v >> 16) & 0xFF),
		Version:  uint8((v >> 24) & 0xFF),
	}
}

// ControlBlock is the 16-byte header at the start of every slot.
type ControlBlock struct {
	// Descriptor is the raw descriptor word.
	Descriptor uint32

	// Size is the declared payload length.
	Size uint32

	// CRC32 is the IEEE CRC32 of the first Size payload bytes.
	CRC32 uint32

	// Revoked is Blank unless the credential has been revoked.
	Revoked uint32
}

// NewControlBlock builds a control block for a fresh, non-revoked credential.
func NewControlBlock(id CredentialID, format Format, strength, version, size int, crc uint32) (ControlBlock, error) {
	if err := checkByte("strength", int64(strength)); err != nil {
		return ControlBlock{}, err
	}
	if err := checkByte("version", int64(version)); err != nil {
		return ControlBlock{}, err
	}
	if err := checkWord("size", int64(size)); err != nil {
		return ControlBlock{}, err
	}
	d := Descriptor{ID: id, Format: format, Strength: uint8(strength), Version: uint8(version)}
	if err := checkDescriptor(d); err != nil {
		return ControlBlock{}, err
	}
	return ControlBlock{
		Descriptor: d.Pack(),
		Size:       uint32(size),
		CRC32:      crc,
		Revoked:    Blank,
	}, nil
}

// EncodeFields range-checks every field and returns the encoded block.
func EncodeFields(id, format, strength, version int, size int64, crc, revoked uint32) ([ControlBlockSize]byte, error) {
	var out [ControlBlockSize]byte
	for _, f := range []struct {
		name  string
		value int
	}{
		{"id", id},
		{"format", format},
		{"strength", strength},
		{"version", version},
	} {
		if err := checkByte(f.name, int64(f.value)); err != nil {
			return out, err
		}
	}
	if err := checkWord("size", size); err != nil {
		return out, err
	}
	d := Descriptor{
		ID:       CredentialID(id),
		Format:   Format(format),
		Strength: uint8(strength),
		Version:  uint8(version),
	}
	if err := checkDescriptor(d); err != nil {
		return out, err
	}
	cb := ControlBlock{Descriptor: d.Pack(), Size: uint32(size), CRC32: crc, Revoked: revoked}
	return cb.Encode(), nil
}

// checkDescriptor rejects the all-ones descriptor, which marks an erased slot.
func checkDescriptor(d Descriptor) error {
	if v := d.Pack(); v == Blank {
		return &EncodingError{Field: "descriptor", Value: int64(v), Max: int64(Blank) - 1}
	}
	return nil
}

func checkByte(field string, v int64) error {
	if v < 0 || v > math.MaxUint8 {
		return &EncodingError{Field: field, Value: v, Max: math.MaxUint8}
	}
	return nil
}

func checkWord(field string, v int64) error {
	if v < 0 || v > math.MaxUint32 {
		return &EncodingError{Field: field, Value: v, Max: math.MaxUint32}
	}
	return nil
}

// Fields returns the unpacked descriptor.
func (cb ControlBlock) Fields() Descriptor {
	return UnpackDescriptor(cb.Descriptor)
}

// Unallocated reports whether the descriptor is still erased.
func (cb ControlBlock) Unallocated() bool {
	return cb.Descriptor == Blank
}

// IsRevoked reports whether the revocation word has been programmed.
func (cb ControlBlock) IsRevoked() bool {
	return cb.Revoked != Blank
}

// Encode returns the little-endian on-flash representation.
func (cb ControlBlock) Encode() [ControlBlockSize]byte {
	var b [ControlBlockSize]byte
	binary.LittleEndian.PutUint32(b[0:4], cb.Descriptor)
	binary.LittleEndian.PutUint32(b[4:8], cb.Size)
	binary.LittleEndian.PutUint32(b[8:12], cb.CRC32)
	binary.LittleEndian.PutUint32(b[12:16], cb.Revoked)
	return b
}

// AppendBinary appends the encoded block to b.
func (cb ControlBlock) AppendBinary(b []byte) ([]byte, error) {
	enc := cb.Encode()
	return append(b, enc[:]...), nil
}

// DecodeControlBlock parses a control block. It never fails: interpreting
// the fields is left to the caller.
func DecodeControlBlock(b [ControlBlockSize]byte) ControlBlock {
	return ControlBlock{
		Descriptor: binary.LittleEndian.Uint32(b[0:4]),
		Size:       binary.LittleEndian.Uint32(b[4:8]),
		CRC32:      binary.LittleEndian.Uint32(b[8:12]),
		Revoked:    binary.LittleEndian.Uint32(b[12:16]),
	}
}
