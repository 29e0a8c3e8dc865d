package callflow

import (
	"sync"
	"time"
)

// State tracks where a conversation is in the verification flow.
//
//	Unbound --load ok--> Bound --verify ok--> Verified --confirm--> Resolved
//	                       \--verify bad--> Failed (terminal, no retry)
//
// A failed load keeps the session Unbound; the orchestrator is expected
// to end the call on that path.
type State int

const (
	StateUnbound State = iota
	StateBound
	StateVerified
	StateFailed
	StateResolved
)

// String returns the state name used in logs and call records.
func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateVerified:
		return "verified"
	case StateFailed:
		return "failed"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Session is the ephemeral per-call state. Exactly one exists per
// concurrent conversation and it is never shared across calls.
//
// ActiveCaseKey is a reference into the case store, not ownership; once
// set it stays bound to the same case for the session's lifetime (there
// is no rebind operation).
type Session struct {
	ID                 string
	ActiveCaseKey      string
	State              State
	VerificationFailed bool
	StartedAt          time.Time
	LastActivity       time.Time

	// One tool call runs at a time per conversation, but the HTTP and
	// WebSocket surfaces may deliver them on different goroutines.
	mu sync.Mutex
}

// NewSession creates a fresh unbound session.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		State:        StateUnbound,
		StartedAt:    now,
		LastActivity: now,
	}
}

// Touch records orchestrator activity; idle sessions past the configured
// timeout get reaped by the session manager.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActivity = time.Now()
}

// IdleSince returns the last activity time.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LastActivity
}

// Snapshot returns the current state and bound key without holding the
// lock across caller code.
func (s *Session) Snapshot() (State, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State, s.ActiveCaseKey
}
