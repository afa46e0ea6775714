// Package creds defines the on-flash format of credential slots.
//
// A credential region is split into fixed-size slots. Each slot starts with
// a 16-byte control block followed by the credential payload:
//
//	offset  field       meaning
//	0       descriptor  byte0=CredentialID, byte1=Format, byte2=strength, byte3=version
//	4       size        payload length in bytes
//	8       crc32       IEEE CRC32 of the first size payload bytes
//	12      revoked     0xFFFFFFFF when the credential is not revoked
//
// All fields are little-endian 32-bit words. Erased flash reads as all ones,
// so a descriptor equal to Blank marks an unallocated slot.
//
// # Classification
//
// Classify maps the raw bytes of one slot to exactly one Status. The rules
// are evaluated in order and the first match wins:
//
//  1. descriptor == Blank: StatusUnallocated
//  2. revoked != Blank: StatusRevoked
//  3. size == 0 or size > capacity: StatusSizeError
//  4. CRC mismatch: StatusCRCError
//  5. otherwise: StatusValid
//
// Revocation is checked before any payload validation so that a revoked
// slot is reported as such even when its payload is damaged.
package creds
