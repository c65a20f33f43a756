package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// SessionTTL is how long a web-form hand-off token stays valid.
const SessionTTL = time.Hour

// Session is the state captured when a card-selector hand-off is issued.
// It is consumed exactly once by a successful card selection.
type Session struct {
	UserID         int64     `json:"user_id"`
	Wallet         int       `json:"wallet"`
	AvailableCards []int     `json:"available_cards"`
	IssuedAt       time.Time `json:"issued_at"`
}

// SessionStore holds single-use web-form sessions. Implementations must make
// Consume a one-shot operation: a second consume of the same id fails.
type SessionStore interface {
	Put(ctx context.Context, id string, s Session) error
	Consume(ctx context.Context, id string) (Session, error)
}

// NewSessionID returns an opaque random 32-hex-char token.
func NewSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// MemorySessionStore keeps sessions in process memory. Expired entries are
// swept lazily whenever a new session is stored.
type MemorySessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]Session
	now      func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		ttl:      SessionTTL,
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Put(_ context.Context, id string, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for old, existing := range s.sessions {
		if now.Sub(existing.IssuedAt) > s.ttl {
			delete(s.sessions, old)
		}
	}
	s.sessions[id] = sess
	return nil
}

func (s *MemorySessionStore) Consume(_ context.Context, id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionInvalid
	}
	delete(s.sessions, id)
	if s.now().Sub(sess.IssuedAt) > s.ttl {
		return Session{}, ErrSessionInvalid
	}
	return sess, nil
}
