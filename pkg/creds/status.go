package creds

// Status is the read-time classification of a slot.
type Status uint8

const (
	StatusUnknown     Status = 0
	StatusUnallocated Status = 1
	StatusValid       Status = 2
	StatusRevoked     Status = 3
	StatusCRCError    Status = 4
	StatusSizeError   Status = 5
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusUnallocated:
		return "UNALLOCATED"
	case StatusValid:
		return "VALID"
	case StatusRevoked:
		return "REVOKED"
	case StatusCRCError:
		return "CRC_ERROR"
	case StatusSizeError:
		return "SIZE_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Allocated reports whether the slot holds (or held) a credential.
func (s Status) Allocated() bool {
	switch s {
	case StatusValid, StatusRevoked, StatusCRCError, StatusSizeError:
		return true
	}
	return false
}

// Faulty reports whether the status signals corruption or a foreign block.
func (s Status) Faulty() bool {
	return s == StatusCRCError || s == StatusSizeError
}
