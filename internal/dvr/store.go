// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/ManuGH/tvrec/internal/log"
	"github.com/ManuGH/tvrec/internal/metrics"
	"github.com/rs/zerolog"
)

// Store owns the pending schedule and the set of running recordings.
// Every access goes through one mutex; the snapshot is rewritten while it is
// held so that file order always matches memory order.
type Store struct {
	mu       sync.Mutex
	pending  []ScheduleEntry
	active   map[string]ActiveRecording
	inflight map[string]struct{} // claimed for launch, not yet active
	snapshot snapshotFile
	logger   zerolog.Logger
}

// NewStore returns an empty store persisting to snapshotPath.
func NewStore(snapshotPath string) *Store {
	logger := log.WithComponent("dvr.store")
	return &Store{
		active:   make(map[string]ActiveRecording),
		inflight: make(map[string]struct{}),
		snapshot: snapshotFile{path: snapshotPath, logger: logger},
		logger:   logger,
	}
}

// Load replaces the pending collection with the snapshot contents.
// A missing or unreadable snapshot leaves the store empty; it never fails startup.
func (s *Store) Load() int {
	entries, err := s.snapshot.read()
	if err != nil {
		s.logger.Error().Err(err).
			Str(log.FieldEvent, "dvr.snapshot_unreadable").
			Str(log.FieldPath, s.snapshot.path).
			Msg("ignoring schedule snapshot, starting empty")
		entries = nil
	}

	kept := make([]ScheduleEntry, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.ID) == "" {
			s.logger.Warn().Str(log.FieldTitle, e.Title).Msg("dropping snapshot entry without id")
			continue
		}
		if _, dup := seen[e.ID]; dup {
			s.logger.Warn().Str(log.FieldScheduleID, e.ID).Msg("dropping duplicate snapshot entry")
			continue
		}
		seen[e.ID] = struct{}{}
		kept = append(kept, e)
	}

	s.mu.Lock()
	s.pending = kept
	s.mu.Unlock()
	metrics.SetSchedulesPending(len(kept))

	s.logger.Info().
		Str(log.FieldEvent, "dvr.snapshot_loaded").
		Int("count", len(kept)).
		Msg("loaded scheduled recordings")
	return len(kept)
}

// ListPending returns a copy of the pending entries in insertion order.
func (s *Store) ListPending() []ScheduleEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.pending)
}

// ListActive returns a copy of the running recordings ordered by start time.
func (s *Store) ListActive() []ActiveRecording {
	s.mu.Lock()
	out := make([]ActiveRecording, 0, len(s.active))
	for _, rec := range s.active {
		out = append(out, rec)
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b ActiveRecording) int {
		if c := a.Started.Compare(b.Started); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Add appends entry and persists. When the write fails the returned error
// wraps ErrPersistence but the entry stays scheduled in memory.
func (s *Store) Add(entry ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(entry.ID) >= 0 {
		return fmt.Errorf("%w: %s is pending", ErrDuplicateSchedule, entry.ID)
	}
	if _, ok := s.active[entry.ID]; ok {
		return fmt.Errorf("%w: %s is recording", ErrDuplicateSchedule, entry.ID)
	}
	if _, ok := s.inflight[entry.ID]; ok {
		return fmt.Errorf("%w: %s is starting", ErrDuplicateSchedule, entry.ID)
	}

	s.pending = append(s.pending, entry)
	metrics.SetSchedulesPending(len(s.pending))
	return s.persistLocked()
}

// RemovePending drops id from the pending collection. It reports whether the
// entry was present; absent ids are a no-op without a write.
func (s *Store) RemovePending(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.removeLocked(id) {
		return false, nil
	}
	return true, s.persistLocked()
}

// Claim removes id from the pending collection for launching. Until the
// claim ends with PromoteToActive or Release the id cannot be added again.
// It reports false when id was not pending, e.g. cancelled concurrently.
func (s *Store) Claim(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.removeLocked(id) {
		return false, nil
	}
	s.inflight[id] = struct{}{}
	return true, s.persistLocked()
}

// Release ends a claim whose launch failed. Unknown ids are ignored.
func (s *Store) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}

// PromoteToActive records that entry's capture process is running. If the
// entry is still pending it is removed from the pending collection first.
// Promoting an id that is already active is refused and the existing record
// is left untouched.
func (s *Store) PromoteToActive(entry ScheduleEntry, h Handle) (ActiveRecording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inflight, entry.ID)

	if existing, ok := s.active[entry.ID]; ok {
		s.logger.Error().
			Str(log.FieldEvent, "dvr.invariant_violation").
			Str(log.FieldScheduleID, entry.ID).
			Int("existing_pid", existing.PID).
			Int(log.FieldPID, h.PID).
			Msg("recording already active, refusing second promotion")
		return ActiveRecording{}, fmt.Errorf("%w: %s already active", ErrInvariantViolation, entry.ID)
	}

	if s.removeLocked(entry.ID) {
		if err := s.persistLocked(); err != nil {
			s.logger.Warn().Err(err).Str(log.FieldScheduleID, entry.ID).Msg("snapshot not updated after promotion")
		}
	}

	rec := ActiveRecording{
		ID:         entry.ID,
		PID:        h.PID,
		Title:      entry.Title,
		Channel:    h.ChannelName,
		Started:    h.Started,
		OutputFile: h.OutputFile,
	}
	s.active[entry.ID] = rec
	metrics.SetRecordingsActive(len(s.active))
	return rec, nil
}

// Complete forgets a finished recording. Unknown ids are ignored.
func (s *Store) Complete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, id)
	metrics.SetRecordingsActive(len(s.active))
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.pending, func(e ScheduleEntry) bool { return e.ID == id })
}

func (s *Store) removeLocked(id string) bool {
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.pending = slices.Delete(s.pending, i, i+1)
	metrics.SetSchedulesPending(len(s.pending))
	return true
}

func (s *Store) persistLocked() error {
	if err := s.snapshot.write(slices.Clone(s.pending)); err != nil {
		metrics.IncSnapshotWrite("failure")
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	metrics.IncSnapshotWrite("success")
	return nil
}
