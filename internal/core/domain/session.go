package domain

// SessionPhase is the lifecycle stage of a vendor session.
type SessionPhase uint8

const (
	// SessionUnauthenticated means no live handle exists; the next use must
	// go through a reload.
	SessionUnauthenticated SessionPhase = iota
	// SessionLive means the handle can be used directly by adapters.
	SessionLive
	// SessionExpired means the last handle was rejected by the vendor and a
	// reload is required before the next use.
	SessionExpired
)

// SessionState models the per-account session lifecycle explicitly instead of
// inferring it from the presence of a handle. Transitions are owned by the
// reload orchestrator; adapters only ever read the live handle.
type SessionState struct {
	phase  SessionPhase
	handle any
}

// Phase returns the current lifecycle stage.
func (s *SessionState) Phase() SessionPhase { return s.phase }

// Live returns the vendor handle when the session is usable.
func (s *SessionState) Live() (any, bool) {
	if s.phase != SessionLive {
		return nil, false
	}
	return s.handle, true
}

// MarkLive installs a freshly constructed vendor handle.
func (s *SessionState) MarkLive(handle any) {
	s.phase = SessionLive
	s.handle = handle
}

// MarkExpired records a vendor auth-expired signal. The stale handle is kept
// for services whose reload derives the new session from the old one.
func (s *SessionState) MarkExpired() {
	if s.phase == SessionLive {
		s.phase = SessionExpired
	}
}

// LastHandle returns the most recent handle regardless of phase.
func (s *SessionState) LastHandle() any { return s.handle }

// Reset drops everything, returning to the cold-start state.
func (s *SessionState) Reset() {
	s.phase = SessionUnauthenticated
	s.handle = nil
}
