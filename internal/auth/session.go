package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionCookieName names the cookie holding the session ID.
const SessionCookieName = "session"

// Session records the access token issued to a client.
type Session struct {
	Token     string
	Username  string
	ExpiresAt time.Time
}

// SessionStore keeps sessions in memory, keyed by an opaque ID.
// It is not a revocation list: token expiry still decides validity.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]Session), now: time.Now}
}

// Create stores a session and returns its new ID.
func (s *SessionStore) Create(session Session) string {
	id := uuid.New().String()
	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()
	return id
}

// Get returns the session with the given ID.
func (s *SessionStore) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Len returns the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// PurgeExpired drops sessions whose token has expired and returns how many were removed.
func (s *SessionStore) PurgeExpired() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
