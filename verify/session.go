package verify

import (
	"context"
	"sync"
	"time"
)

// State is the lifecycle position of a session. Active is the only
// non-terminal state.
type State int

const (
	StateActive State = iota
	StateMatched
	StateNotFound
	StateExpired
	StateCancelled
	StatePermissionError
	StateInternalError
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateMatched:
		return "matched"
	case StateNotFound:
		return "not_found"
	case StateExpired:
		return "expired"
	case StateCancelled:
		return "cancelled"
	case StatePermissionError:
		return "permission_error"
	case StateInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a session.
func (s State) Terminal() bool { return s != StateActive }

// Invocation identifies who ran a command and where.
type Invocation struct {
	UserID    string
	GuildID   string
	ChannelID string
	// Mention is the platform markup that pings the user.
	Mention string
}

// Session is one member's in-progress verification.
type Session struct {
	ID         string
	Generation uint64
	Owner      Invocation
	Profile    string
	Code       string
	CreatedAt  time.Time
	ExpiresAt  time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// msgMu serialises updates to the status message, so a post guarded by
	// a Current check cannot land after a terminal notice.
	msgMu sync.Mutex

	mu       sync.Mutex
	status   *MessageRef
	resolved string
}

// Status returns the message used for this session's updates, if any.
func (s *Session) Status() (MessageRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == nil {
		return MessageRef{}, false
	}
	return *s.status, true
}

func (s *Session) setStatus(ref MessageRef) {
	s.mu.Lock()
	s.status = &ref
	s.mu.Unlock()
}

func (s *Session) clearStatus() {
	s.mu.Lock()
	s.status = nil
	s.mu.Unlock()
}

func (s *Session) setResolved(name string) {
	s.mu.Lock()
	s.resolved = name
	s.mu.Unlock()
}

// DisplayName is the canonical name from the latest poll, or the requested
// profile when no poll has resolved one yet.
func (s *Session) DisplayName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved != "" {
		return s.resolved
	}
	return s.Profile
}

// Done is closed when the session's poll goroutine has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Info is a read-only view of a session for status endpoints.
type Info struct {
	ID         string    `json:"id"`
	Generation uint64    `json:"generation"`
	UserID     string    `json:"user_id"`
	GuildID    string    `json:"guild_id"`
	Profile    string    `json:"profile"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	HasStatus  bool      `json:"has_status_message"`
}

func (s *Session) info() Info {
	_, has := s.Status()
	return Info{
		ID:         s.ID,
		Generation: s.Generation,
		UserID:     s.Owner.UserID,
		GuildID:    s.Owner.GuildID,
		Profile:    s.Profile,
		CreatedAt:  s.CreatedAt,
		ExpiresAt:  s.ExpiresAt,
		HasStatus:  has,
	}
}
