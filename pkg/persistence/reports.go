package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lucasdietrich/caniot-creds/pkg/provision"
	"github.com/lucasdietrich/caniot-creds/pkg/slotstore"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// DefaultMaxSessions bounds the session history kept in a state file.
const DefaultMaxSessions = 16

// ProvisioningState is the content of a report state file.
type ProvisioningState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Geometry is the region layout the sessions were written with.
	Geometry GeometryRecord `json:"geometry"`

	// Sessions holds reports, oldest first.
	Sessions []provision.Report `json:"sessions,omitempty"`
}

// GeometryRecord mirrors slotstore.Geometry for JSON serialization.
type GeometryRecord struct {
	Offset     uint32 `json:"offset"`
	RegionSize uint32 `json:"region_size"`
	SlotSize   uint32 `json:"slot_size"`
}

// NewGeometryRecord captures a geometry.
func NewGeometryRecord(g slotstore.Geometry) GeometryRecord {
	return GeometryRecord{Offset: g.Offset, RegionSize: g.RegionSize, SlotSize: g.SlotSize}
}

// Geometry converts the record back.
func (r GeometryRecord) Geometry() slotstore.Geometry {
	return slotstore.Geometry{Offset: r.Offset, RegionSize: r.RegionSize, SlotSize: r.SlotSize}
}

// Last returns the most recent session report, or nil.
func (s *ProvisioningState) Last() *provision.Report {
	if s == nil || len(s.Sessions) == 0 {
		return nil
	}
	return &s.Sessions[len(s.Sessions)-1]
}

// ReportStore manages persistence of provisioning reports to a JSON file.
type ReportStore struct {
	mu          sync.Mutex
	path        string
	maxSessions int
}

// NewReportStore creates a new report store.
func NewReportStore(path string) *ReportStore {
	return &ReportStore{path: path, maxSessions: DefaultMaxSessions}
}

// Path returns the state file path.
func (s *ReportStore) Path() string {
	return s.path
}

// Save persists the state to disk.
func (s *ReportStore) Save(state *ProvisioningState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(state)
}

func (s *ReportStore) save(state *ProvisioningState) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	if state.SavedAt.IsZero() {
		state.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0644)
}

// Load reads the state from disk.
// Returns nil, nil if the file doesn't exist (empty state).
func (s *ReportStore) Load() (*ProvisioningState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *ReportStore) load() (*ProvisioningState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &ProvisioningState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}
	if state.Version > StateVersion {
		return nil, fmt.Errorf("state file version %d is newer than supported version %d", state.Version, StateVersion)
	}

	return state, nil
}

// Append adds a session report. An erasing session, or one written with a
// different geometry, starts a fresh history since earlier slots are gone.
func (s *ReportStore) Append(geom slotstore.Geometry, report *provision.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return err
	}
	rec := NewGeometryRecord(geom)
	if state == nil || report.Erased || state.Geometry != rec {
		state = &ProvisioningState{Geometry: rec}
	}

	state.Sessions = append(state.Sessions, *report)
	if over := len(state.Sessions) - s.maxSessions; over > 0 {
		state.Sessions = state.Sessions[over:]
	}
	state.SavedAt = time.Time{}
	return s.save(state)
}

// Entries returns every entry recorded since the last erase, in write order.
func (s *ReportStore) Entries() ([]provision.Entry, error) {
	state, err := s.Load()
	if err != nil || state == nil {
		return nil, err
	}
	var entries []provision.Entry
	for _, r := range state.Sessions {
		entries = append(entries, r.Entries...)
	}
	return entries, nil
}

// Clear removes the state file.
func (s *ReportStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
