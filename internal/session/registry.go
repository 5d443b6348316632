package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry maps session IDs to their State.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*State
	now      func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*State), now: time.Now}
}

// NewID mints a session ID.
func NewID() string { return uuid.NewString() }

// ValidID reports whether id is a well-formed session ID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Get returns the state for id, creating it if needed.
func (r *Registry) Get(id string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		s = &State{}
		r.sessions[id] = s
	}
	s.markTouched(r.now())
	return s
}

// Lookup returns the state for id without creating one.
func (r *Registry) Lookup(id string) (*State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Delete forgets id.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Expire drops sessions untouched for longer than ttl and returns how many
// were removed.
func (r *Registry) Expire(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if s.lastTouched().Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}
