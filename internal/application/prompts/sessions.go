package prompts

import (
	"sync"

	"github.com/bryanwahyu/prompt-integrity/internal/domain/audit"
)

// SessionKey identifies one interactive session of a tenant.
type SessionKey struct {
	TenantID  string
	SessionID string
}

type sessionSlot struct {
	latest   *audit.Record
	inFlight bool
}

// SessionStore keeps the latest successful record per session, in memory only.
// A new record overwrites the previous one; there is no history here.
type SessionStore struct {
	mu    sync.Mutex
	slots map[SessionKey]*sessionSlot
}

func NewSessionStore() *SessionStore {
	return &SessionStore{slots: make(map[SessionKey]*sessionSlot)}
}

// begin marks the session as having a prompt in flight.
func (s *SessionStore) begin(key SessionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[key]
	if !ok {
		slot = &sessionSlot{}
		s.slots[key] = slot
	}
	if slot.inFlight {
		return ErrSessionBusy
	}
	slot.inFlight = true
	return nil
}

func (s *SessionStore) end(key SessionKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[key]
	if !ok {
		return
	}
	slot.inFlight = false
	if slot.latest == nil {
		delete(s.slots, key)
	}
}

func (s *SessionStore) put(key SessionKey, r *audit.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[key]
	if !ok {
		slot = &sessionSlot{}
		s.slots[key] = slot
	}
	slot.latest = r
}

// Latest returns the session's record, if one was produced.
func (s *SessionStore) Latest(key SessionKey) (*audit.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[key]
	if !ok || slot.latest == nil {
		return nil, false
	}
	return slot.latest, true
}

// Forget drops the session's record, e.g. when the session ends.
func (s *SessionStore) Forget(key SessionKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[key]
	if !ok {
		return
	}
	slot.latest = nil
	if !slot.inFlight {
		delete(s.slots, key)
	}
}

// Len reports how many sessions currently hold state.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}
