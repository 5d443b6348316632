// Package session keeps the last submitted input and its result for each
// user session.
package session

import (
	"sync"
	"time"

	"github.com/abhisek/heartrisk/internal/features"
	"github.com/abhisek/heartrisk/internal/predict"
)

// Entry is the last successful prediction of a session.
type Entry struct {
	Record   features.Record
	Snapshot []byte
	Result   predict.Result
	At       time.Time
}

// State holds at most one Entry. It is safe for concurrent use.
type State struct {
	mu    sync.RWMutex
	last  *Entry
	touch time.Time
}

// Save replaces the last entry with rec and res. The record's JSON snapshot
// is rendered once here so later downloads return identical bytes.
func (s *State) Save(rec features.Record, res predict.Result, at time.Time) error {
	snap, err := features.MarshalSnapshot(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &Entry{Record: rec, Snapshot: snap, Result: res, At: at}
	s.touch = at
	return nil
}

// Last returns the last entry, if any.
func (s *State) Last() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Entry{}, false
	}
	e := *s.last
	e.Snapshot = append([]byte(nil), s.last.Snapshot...)
	return e, true
}

// SnapshotJSON returns the input.json bytes of the last entry.
func (s *State) SnapshotJSON() ([]byte, bool) {
	e, ok := s.Last()
	if !ok {
		return nil, false
	}
	return e.Snapshot, true
}

// Clear drops the last entry.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = nil
}

func (s *State) lastTouched() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.touch
}

func (s *State) markTouched(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch = at
}
