package log

import (
	"strings"
	"time"

	"github.com/lucasdietrich/caniot-creds/pkg/creds"
)

// Event is a provisioning event. Exactly one of the payload pointers is set.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the provisioning session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"3,keyasint"`

	// Target describes the device or image being provisioned.
	Target string `cbor:"4,keyasint,omitempty"`

	Session   *SessionEvent   `cbor:"10,keyasint,omitempty"`
	Transport *TransportEvent `cbor:"11,keyasint,omitempty"`
	Slot      *SlotEvent      `cbor:"12,keyasint,omitempty"`
	Verify    *VerifyEvent    `cbor:"13,keyasint,omitempty"`
	Error     *ErrorEventData `cbor:"14,keyasint,omitempty"`
}

// Category classifies the event type.
type Category uint8

const (
	CategorySession   Category = 0
	CategoryTransport Category = 1
	CategorySlot      Category = 2
	CategoryVerify    Category = 3
	CategoryError     Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategorySession:
		return "SESSION"
	case CategoryTransport:
		return "TRANSPORT"
	case CategorySlot:
		return "SLOT"
	case CategoryVerify:
		return "VERIFY"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory parses a category name (case-insensitive).
func ParseCategory(s string) (Category, bool) {
	for c := CategorySession; c <= CategoryError; c++ {
		if strings.EqualFold(c.String(), s) {
			return c, true
		}
	}
	return 0, false
}

// SessionEvent captures the provisioning session lifecycle.
type SessionEvent struct {
	// Phase is the lifecycle step.
	Phase SessionPhase `cbor:"1,keyasint"`

	// Credentials is the number of credentials in the batch.
	Credentials int `cbor:"2,keyasint,omitempty"`

	// Written is the number of slots written so far.
	Written int `cbor:"3,keyasint,omitempty"`

	// Reason explains an abort.
	Reason string `cbor:"4,keyasint,omitempty"`
}

// SessionPhase is a step in the session lifecycle.
type SessionPhase uint8

const (
	SessionStart SessionPhase = 0
	SessionEnd   SessionPhase = 1
	SessionAbort SessionPhase = 2
)

// String returns the phase name.
func (p SessionPhase) String() string {
	switch p {
	case SessionStart:
		return "START"
	case SessionEnd:
		return "END"
	case SessionAbort:
		return "ABORT"
	default:
		return "UNKNOWN"
	}
}

// TransportEvent captures one operation on the storage medium.
type TransportEvent struct {
	// Op is the operation performed.
	Op TransportOp `cbor:"1,keyasint"`

	// Offset is the start of the affected range.
	Offset uint32 `cbor:"2,keyasint"`

	// Length is the size of the affected range.
	Length uint32 `cbor:"3,keyasint"`

	// Duration is how long the medium took. Stored as nanoseconds.
	Duration time.Duration `cbor:"4,keyasint,omitempty"`
}

// TransportOp is a storage operation.
type TransportOp uint8

const (
	TransportRead  TransportOp = 0
	TransportErase TransportOp = 1
	TransportWrite TransportOp = 2
)

// String returns the operation name.
func (o TransportOp) String() string {
	switch o {
	case TransportRead:
		return "READ"
	case TransportErase:
		return "ERASE"
	case TransportWrite:
		return "WRITE"
	default:
		return "UNKNOWN"
	}
}

// SlotEvent captures a credential written into a slot.
type SlotEvent struct {
	Slot   int                `cbor:"1,keyasint"`
	Name   string             `cbor:"2,keyasint,omitempty"`
	ID     creds.CredentialID `cbor:"3,keyasint"`
	Format creds.Format       `cbor:"4,keyasint"`
	Size   uint32             `cbor:"5,keyasint"`
	CRC32  uint32             `cbor:"6,keyasint"`
}

// VerifyEvent captures the read-back check of one slot.
type VerifyEvent struct {
	Slot   int                `cbor:"1,keyasint"`
	ID     creds.CredentialID `cbor:"2,keyasint"`
	Status creds.Status       `cbor:"3,keyasint"`
	OK     bool               `cbor:"4,keyasint"`
	Reason string             `cbor:"5,keyasint,omitempty"`
}

// ErrorEventData captures a failure.
type ErrorEventData struct {
	// Op is the operation that failed (e.g. "allocate", "write").
	Op string `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Slot is the slot involved, if any.
	Slot *int `cbor:"3,keyasint,omitempty"`

	// Credential names the credential being handled, if any.
	Credential string `cbor:"4,keyasint,omitempty"`
}
