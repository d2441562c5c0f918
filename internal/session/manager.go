package session

import (
	"time"

	"github.com/google/uuid"

	"stocktake/internal/cache"
)

const (
	// DefaultTTL is how long a session survives without activity.
	DefaultTTL = 8 * time.Hour

	// DefaultMaxSessions bounds concurrent sessions; beyond it the least
	// recently used session is dropped.
	DefaultMaxSessions = 1000
)

// Manager issues opaque session tokens and stores the state behind them.
// Tokens slide: every successful lookup renews the TTL.
type Manager struct {
	sessions *cache.LRUCache[*State]
}

func NewManager(ttl time.Duration, maxSessions int) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Manager{sessions: cache.NewLRUCache[*State](maxSessions, ttl)}
}

// Create starts a fresh session and returns its token.
func (m *Manager) Create() (string, *State) {
	token := uuid.NewString()
	st := newState()
	m.sessions.Set(token, st)
	return token, st
}

// Get resolves a token and renews its TTL.
func (m *Manager) Get(token string) (*State, bool) {
	st, ok := m.sessions.Get(token)
	if !ok {
		return nil, false
	}
	m.sessions.Touch(token)
	return st, true
}

// Destroy ends a session. Unknown tokens are ignored.
func (m *Manager) Destroy(token string) {
	m.sessions.Delete(token)
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	return m.sessions.Size()
}

// CleanExpired drops expired sessions; the cache manager calls this.
func (m *Manager) CleanExpired() int {
	return m.sessions.CleanExpired()
}
