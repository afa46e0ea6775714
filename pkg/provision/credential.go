package provision

import (
	"fmt"
	"time"

	"github.com/lucasdietrich/caniot-creds/pkg/creds"
)

// Credential is one entry of a provisioning batch.
type Credential struct {
	// Name is a human-readable label, usually the manifest key.
	Name string

	ID       creds.CredentialID
	Format   creds.Format
	Strength int
	Version  int

	// Data is the credential as read from its source.
	Data []byte
}

// Label returns Name, or the ID name when Name is empty.
func (c Credential) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID.String()
}

// validate rejects ids and formats outside the closed sets the firmware reads.
func (c Credential) validate() error {
	if !c.ID.Known() {
		return fmt.Errorf("%w: unknown credential id 0x%02x", ErrInvalid, uint8(c.ID))
	}
	if !c.Format.Known() {
		return fmt.Errorf("%w: unknown format %d", ErrInvalid, uint8(c.Format))
	}
	return nil
}

// Payload returns the bytes stored in the slot. PEM data is NUL-terminated.
func (c Credential) Payload() []byte {
	payload := make([]byte, 0, len(c.Data)+1)
	payload = append(payload, c.Data...)
	if c.Format == creds.FormatPEM {
		payload = append(payload, 0x00)
	}
	return payload
}

// Entry records a credential written by a session.
type Entry struct {
	Name     string             `json:"name"`
	Slot     int                `json:"slot"`
	ID       creds.CredentialID `json:"id"`
	Format   creds.Format       `json:"format"`
	Strength uint8              `json:"strength"`
	Version  uint8              `json:"version"`
	Size     uint32             `json:"size"`
	CRC32    uint32             `json:"crc32"`
}

// Mismatch describes a slot that did not verify.
type Mismatch struct {
	Entry  Entry        `json:"entry"`
	Got    creds.Record `json:"-"`
	Reason string       `json:"reason"`
}

// Report summarizes a provisioning session.
type Report struct {
	SessionID  string     `json:"session_id"`
	Target     string     `json:"target,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Erased     bool       `json:"erased"`
	Entries    []Entry    `json:"entries"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}
