package provision

import (
	"errors"
	"fmt"

	"github.com/lucasdietrich/caniot-creds/pkg/slotstore"
)

// Provisioning errors.
var (
	ErrSessionActive = errors.New("provisioning session already active")
	ErrAllocation    = errors.New("no free slot for credential")
	ErrVerification  = errors.New("verification failed")
	ErrInvalid       = errors.New("invalid credential")
)

// AllocationError reports a credential that found no unallocated slot.
type AllocationError struct {
	Credential string
	SlotCount  int
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("no free slot for %s among %d slots", e.Credential, e.SlotCount)
}

func (e *AllocationError) Is(target error) bool { return target == ErrAllocation }

func (e *AllocationError) Unwrap() error { return slotstore.ErrNoFreeSlot }

// CredentialError ties a failure to the batch entry that caused it.
type CredentialError struct {
	// Index is the position of the entry in the batch.
	Index int

	// Name is the credential name.
	Name string

	// Err is the underlying error.
	Err error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// VerificationError lists slots that did not read back as written.
type VerificationError struct {
	Mismatches []Mismatch
}

func (e *VerificationError) Error() string {
	if len(e.Mismatches) == 1 {
		m := e.Mismatches[0]
		return fmt.Sprintf("verification failed: slot %d: %s", m.Entry.Slot, m.Reason)
	}
	return fmt.Sprintf("verification failed: %d slots mismatch", len(e.Mismatches))
}

func (e *VerificationError) Is(target error) bool { return target == ErrVerification }
