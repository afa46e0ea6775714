package provision

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lucasdietrich/caniot-creds/pkg/creds"
	"github.com/lucasdietrich/caniot-creds/pkg/log"
	"github.com/lucasdietrich/caniot-creds/pkg/slotstore"
)

// Config configures a Provisioner.
type Config struct {
	// Store is the slot store to provision. Required.
	Store *slotstore.Store

	// Logger receives session events. Defaults to log.NoopLogger.
	Logger log.Logger

	// Target labels events and reports, e.g. "stlink:stm32f4" or an image path.
	Target string

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// Options controls a single provisioning run.
type Options struct {
	// Erase wipes the region before allocating.
	Erase bool

	// Verify re-reads the region after writing and checks every entry.
	Verify bool
}

// Provisioner writes credential batches into a slot store. At most one
// session (Provision, Verify, Erase or Inspect) runs at a time; a call made
// while another is in progress fails with ErrSessionActive.
type Provisioner struct {
	store  *slotstore.Store
	logger log.Logger
	target string
	clock  func() time.Time

	mu sync.Mutex
}

// New creates a Provisioner.
func New(cfg Config) (*Provisioner, error) {
	if cfg.Store == nil {
		return nil, errors.New("provision: store is required")
	}
	p := &Provisioner{
		store:  cfg.Store,
		logger: cfg.Logger,
		target: cfg.Target,
		clock:  cfg.Clock,
	}
	if p.logger == nil {
		p.logger = log.NoopLogger{}
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	return p, nil
}

// Store returns the underlying slot store.
func (p *Provisioner) Store() *slotstore.Store {
	return p.store
}

// Provision writes batch into the store, in order, each credential into the
// first unallocated slot. On error the returned report lists the entries
// written before the failure.
func (p *Provisioner) Provision(ctx context.Context, batch []Credential, opts Options) (*Report, error) {
	if !p.mu.TryLock() {
		return nil, ErrSessionActive
	}
	defer p.mu.Unlock()

	s := p.newSession()
	report := &Report{
		SessionID: s.id,
		Target:    p.target,
		StartedAt: p.clock(),
		Erased:    opts.Erase,
	}
	s.log(log.Event{
		Category: log.CategorySession,
		Session:  &log.SessionEvent{Phase: log.SessionStart, Credentials: len(batch)},
	})

	fail := func(op string, slot int, name string, err error) (*Report, error) {
		s.logError(op, slot, name, err)
		s.log(log.Event{
			Category: log.CategorySession,
			Session: &log.SessionEvent{
				Phase:       log.SessionAbort,
				Credentials: len(batch),
				Written:     len(report.Entries),
				Reason:      err.Error(),
			},
		})
		report.FinishedAt = p.clock()
		return report, err
	}

	if opts.Erase {
		if err := s.erase(ctx); err != nil {
			return fail("erase", -1, "", err)
		}
	}

	records, err := s.readRecords(ctx)
	if err != nil {
		return fail("read", -1, "", err)
	}

	capacity := p.store.Geometry().PayloadCapacity()
	for i, c := range batch {
		name := c.Label()
		if err := c.validate(); err != nil {
			return fail("encode", -1, name, &CredentialError{Index: i, Name: name, Err: err})
		}
		payload := c.Payload()
		if len(payload) > capacity {
			err := &slotstore.CapacityError{Size: len(payload), Capacity: capacity}
			return fail("encode", -1, name, &CredentialError{Index: i, Name: name, Err: err})
		}

		crc := creds.Checksum(payload)
		cb, err := creds.NewControlBlock(c.ID, c.Format, c.Strength, c.Version, len(payload), crc)
		if err != nil {
			return fail("encode", -1, name, &CredentialError{Index: i, Name: name, Err: err})
		}

		slot, err := slotstore.FindFirstFreeSlot(records)
		if err != nil {
			err := &AllocationError{Credential: name, SlotCount: len(records)}
			return fail("allocate", -1, name, &CredentialError{Index: i, Name: name, Err: err})
		}

		header := cb.Encode()
		block := make([]byte, 0, creds.ControlBlockSize+len(payload))
		block = append(block, header[:]...)
		block = append(block, payload...)
		if err := s.writeSlot(ctx, slot, block); err != nil {
			return fail("write", slot, name, &CredentialError{Index: i, Name: name, Err: err})
		}

		d := cb.Fields()
		entry := Entry{
			Name:     name,
			Slot:     slot,
			ID:       d.ID,
			Format:   d.Format,
			Strength: d.Strength,
			Version:  d.Version,
			Size:     cb.Size,
			CRC32:    cb.CRC32,
		}
		report.Entries = append(report.Entries, entry)
		records[slot] = entry.record(payload)

		s.log(log.Event{
			Category: log.CategorySlot,
			Slot: &log.SlotEvent{
				Slot:   slot,
				Name:   name,
				ID:     entry.ID,
				Format: entry.Format,
				Size:   entry.Size,
				CRC32:  entry.CRC32,
			},
		})
	}

	if opts.Verify {
		mismatches, err := s.verify(ctx, report.Entries)
		if err != nil {
			return fail("verify", -1, "", err)
		}
		if len(mismatches) > 0 {
			report.Mismatches = mismatches
			return fail("verify", mismatches[0].Entry.Slot, mismatches[0].Entry.Name,
				&VerificationError{Mismatches: mismatches})
		}
	}

	report.FinishedAt = p.clock()
	s.log(log.Event{
		Category: log.CategorySession,
		Session: &log.SessionEvent{
			Phase:       log.SessionEnd,
			Credentials: len(batch),
			Written:     len(report.Entries),
		},
	})
	return report, nil
}

// Verify re-reads the region and checks that every entry is stored as
// recorded. Mismatches are returned, not treated as errors; the error is
// only set when the region cannot be read.
func (p *Provisioner) Verify(ctx context.Context, entries []Entry) ([]Mismatch, error) {
	if !p.mu.TryLock() {
		return nil, ErrSessionActive
	}
	defer p.mu.Unlock()

	s := p.newSession()
	mismatches, err := s.verify(ctx, entries)
	if err != nil {
		s.logError("verify", -1, "", err)
		return nil, err
	}
	return mismatches, nil
}

// Erase wipes the whole region.
func (p *Provisioner) Erase(ctx context.Context) error {
	if !p.mu.TryLock() {
		return ErrSessionActive
	}
	defer p.mu.Unlock()

	s := p.newSession()
	if err := s.erase(ctx); err != nil {
		s.logError("erase", -1, "", err)
		return err
	}
	return nil
}

// Inspect reads and classifies every slot of the region. A region read that
// comes back short yields the records of the complete slots together with
// a *slotstore.TruncatedReadError.
func (p *Provisioner) Inspect(ctx context.Context) ([]creds.Record, error) {
	if !p.mu.TryLock() {
		return nil, ErrSessionActive
	}
	defer p.mu.Unlock()

	s := p.newSession()
	records, err := s.readRecords(ctx)
	if err != nil {
		s.logError("read", -1, "", err)
	}
	return records, err
}

// record returns the in-session view of a freshly written slot.
func (e Entry) record(payload []byte) creds.Record {
	return creds.Record{
		Slot:     e.Slot,
		Status:   creds.StatusValid,
		ID:       e.ID,
		Format:   e.Format,
		Strength: e.Strength,
		Version:  e.Version,
		CRC32:    e.CRC32,
		Size:     e.Size,
		Data:     payload,
	}
}

// describe returns the mismatch reason between an entry and what was read
// back, or "" if they agree.
func (e Entry) describe(got creds.Record) string {
	switch {
	case got.Status != creds.StatusValid:
		return fmt.Sprintf("status %s", got.Status)
	case got.ID != e.ID:
		return fmt.Sprintf("id %s, want %s", got.ID, e.ID)
	case got.Format != e.Format:
		return fmt.Sprintf("format %s, want %s", got.Format, e.Format)
	case got.Size != e.Size:
		return fmt.Sprintf("size %d, want %d", got.Size, e.Size)
	case got.CRC32 != e.CRC32:
		return fmt.Sprintf("crc32 %08x, want %08x", got.CRC32, e.CRC32)
	}
	return ""
}

// session carries the per-call identity used to tag events.
type session struct {
	p  *Provisioner
	id string
}

func (p *Provisioner) newSession() *session {
	return &session{p: p, id: uuid.New().String()}
}

func (s *session) log(event log.Event) {
	event.Timestamp = s.p.clock()
	event.SessionID = s.id
	event.Target = s.p.target
	s.p.logger.Log(event)
}

func (s *session) logError(op string, slot int, name string, err error) {
	data := &log.ErrorEventData{Op: op, Message: err.Error(), Credential: name}
	if slot >= 0 {
		data.Slot = &slot
	}
	s.log(log.Event{Category: log.CategoryError, Error: data})
}

func (s *session) logTransport(op log.TransportOp, offset, length uint32, start time.Time) {
	s.log(log.Event{
		Category: log.CategoryTransport,
		Transport: &log.TransportEvent{
			Op:       op,
			Offset:   offset,
			Length:   length,
			Duration: s.p.clock().Sub(start),
		},
	})
}

func (s *session) erase(ctx context.Context) error {
	geom := s.p.store.Geometry()
	start := s.p.clock()
	if err := s.p.store.EraseRegion(ctx); err != nil {
		return err
	}
	s.logTransport(log.TransportErase, geom.Offset, geom.RegionSize, start)
	return nil
}

func (s *session) readRecords(ctx context.Context) ([]creds.Record, error) {
	geom := s.p.store.Geometry()
	start := s.p.clock()
	raw, err := s.p.store.ReadRegion(ctx)
	if err != nil {
		return nil, err
	}
	s.logTransport(log.TransportRead, geom.Offset, uint32(len(raw)), start)
	return s.p.store.ParseAll(raw)
}

func (s *session) writeSlot(ctx context.Context, slot int, block []byte) error {
	start := s.p.clock()
	if err := s.p.store.WriteSlot(ctx, slot, block); err != nil {
		return err
	}
	s.logTransport(log.TransportWrite, s.p.store.Geometry().SlotOffset(slot), uint32(len(block)), start)
	return nil
}

func (s *session) verify(ctx context.Context, entries []Entry) ([]Mismatch, error) {
	records, err := s.readRecords(ctx)
	if err != nil {
		return nil, err
	}

	var mismatches []Mismatch
	for _, e := range entries {
		var got creds.Record
		reason := ""
		if e.Slot < 0 || e.Slot >= len(records) {
			reason = fmt.Sprintf("slot %d outside region of %d slots", e.Slot, len(records))
		} else {
			got = records[e.Slot]
			reason = e.describe(got)
		}

		s.log(log.Event{
			Category: log.CategoryVerify,
			Verify: &log.VerifyEvent{
				Slot:   e.Slot,
				ID:     e.ID,
				Status: got.Status,
				OK:     reason == "",
				Reason: reason,
			},
		})
		if reason != "" {
			mismatches = append(mismatches, Mismatch{Entry: e, Got: got, Reason: reason})
		}
	}
	return mismatches, nil
}
