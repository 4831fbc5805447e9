package game

import (
	"errors"
	"sync"
	"time"
)

// ErrAlreadyActive is returned when a user tries to start a second game.
var ErrAlreadyActive = errors.New("session already active for user")

// Registry is the single source of truth for live sessions, keyed by user.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create inserts a fresh session for the user. Fails with ErrAlreadyActive if
// one exists; never silently replaces a live game.
func (r *Registry) Create(userID, channelID, userName string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[userID]; ok {
		return nil, ErrAlreadyActive
	}
	s := newSession(userID, channelID, userName, r.now())
	r.sessions[userID] = s
	return s, nil
}

// Get returns the live session for the user, if any.
func (r *Registry) Get(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	return s, ok
}

// Remove evicts the user's session. Idempotent; returns whether a session was
// actually present, so double evictions (reaper vs termination) resolve to a
// single winner.
func (r *Registry) Remove(userID string) bool {
	r.mu.Lock()
	s, ok := r.sessions[userID]
	if ok {
		delete(r.sessions, userID)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	s.mu.Lock()
	s.markRemoved()
	s.mu.Unlock()
	return true
}

// IdleBeyond snapshots the users whose sessions have been inactive longer
// than d. It copies under the read lock and releases it before returning, so
// callers may do slow work per user without holding up the message path.
func (r *Registry) IdleBeyond(d time.Duration) []string {
	cutoff := r.now().Add(-d)

	r.mu.RLock()
	candidates := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		candidates = append(candidates, s)
	}
	r.mu.RUnlock()

	idle := make([]string, 0)
	for _, s := range candidates {
		if s.LastActivity().Before(cutoff) {
			idle = append(idle, s.UserID)
		}
	}
	return idle
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
