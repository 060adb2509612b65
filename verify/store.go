package verify

import (
	"errors"
	"sort"
	"sync"

	"github.com/onnwee/habbo-verify/telemetry"
)

// ErrSessionExists is returned by Insert when the owner already has a session.
var ErrSessionExists = errors.New("verification already in progress")

// Store maps user ids to their live session. It is the single source of truth
// for "is this user mid-verification".
//
// Removal doubles as the terminal claim: Remove succeeds for exactly one
// caller per session, and only that caller may post the final notice.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	lastProfile map[string]string
	generation  uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		sessions:    make(map[string]*Session),
		lastProfile: make(map[string]string),
	}
}

// Insert adds s unless its owner already has a session, in which case the
// existing session is returned with ErrSessionExists.
func (st *Store) Insert(s *Session) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if cur, ok := st.sessions[s.Owner.UserID]; ok {
		return cur, ErrSessionExists
	}
	st.put(s)
	return s, nil
}

// Replace swaps old for s atomically. It fails if old is no longer the
// owner's current session.
func (st *Store) Replace(old, s *Session) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if cur, ok := st.sessions[old.Owner.UserID]; !ok || cur != old {
		return false
	}
	if old.Owner.UserID != s.Owner.UserID {
		delete(st.sessions, old.Owner.UserID)
	}
	st.put(s)
	return true
}

// must hold st.mu
func (st *Store) put(s *Session) {
	st.generation++
	s.Generation = st.generation
	st.sessions[s.Owner.UserID] = s
	st.lastProfile[s.Owner.UserID] = s.Profile
	telemetry.SetActiveSessions(len(st.sessions))
}

// Remove deletes s if it is still current and reports whether this call did so.
func (st *Store) Remove(s *Session) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	cur, ok := st.sessions[s.Owner.UserID]
	if !ok || cur != s || cur.Generation != s.Generation {
		return false
	}
	delete(st.sessions, s.Owner.UserID)
	telemetry.SetActiveSessions(len(st.sessions))
	return true
}

// Current reports whether s is still the live session of its owner.
func (st *Store) Current(s *Session) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	cur, ok := st.sessions[s.Owner.UserID]
	return ok && cur == s
}

// Get returns the live session of userID.
func (st *Store) Get(userID string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[userID]
	return s, ok
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// LastProfile returns the profile of the most recent session userID started
// in this process.
func (st *Store) LastProfile(userID string) (string, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	p, ok := st.lastProfile[userID]
	return p, ok
}

// Snapshot lists live sessions ordered by creation time.
func (st *Store) Snapshot() []Info {
	st.mu.Lock()
	list := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		list = append(list, s)
	}
	st.mu.Unlock()

	out := make([]Info, 0, len(list))
	for _, s := range list {
		out = append(out, s.info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
