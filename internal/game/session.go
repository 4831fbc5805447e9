package game

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/froghopperjacob/FredBoat/internal/akinator"
)

// Phase is the session's position in the question/guess protocol.
type Phase int

const (
	PhaseAwaitingAnswer Phase = iota
	PhaseAwaitingGuessConfirmation
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingAnswer:
		return "awaiting_answer"
	case PhaseAwaitingGuessConfirmation:
		return "awaiting_guess_confirmation"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Session holds one user's live game. The registry owns the map entry; the
// coordinator mutates fields only while holding mu, which also serializes
// turns so answers for the same session never interleave.
type Session struct {
	mu sync.Mutex

	// ID identifies this game across restarts of the same archive row.
	ID string

	UserID    string
	ChannelID string
	UserName  string

	// Issued by the guess service at session start, required on every call.
	SessionID string
	Signature string

	Step         int
	Progression  float64
	Question     string
	PendingGuess *akinator.Guess
	Phase        Phase

	StartedAt    time.Time
	lastActivity time.Time
	removed      bool
}

func newSession(userID, channelID, userName string, now time.Time) *Session {
	return &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		ChannelID:    channelID,
		UserName:     userName,
		Phase:        PhaseAwaitingAnswer,
		StartedAt:    now,
		lastActivity: now,
	}
}

// Lock serializes a turn. Callers must Unlock when the turn is finished.
func (s *Session) Lock() { s.mu.Lock() }

func (s *Session) Unlock() { s.mu.Unlock() }

// Touch records activity. Called at the moment an answer is accepted, before
// the upstream call, so a slow service round-trip cannot look like idleness.
func (s *Session) Touch(now time.Time) {
	s.lastActivity = now
}

// LastActivity is safe for the reaper to read without the turn lock; a stale
// read only delays eviction by one tick.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Removed reports whether the registry has already evicted this session.
// Checked after acquiring the turn lock to close the race with the reaper.
func (s *Session) Removed() bool {
	return s.removed
}

func (s *Session) markRemoved() {
	s.Phase = PhaseTerminated
	s.removed = true
}
