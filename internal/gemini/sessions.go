package gemini

import (
	"sync"
	"time"

	"google.golang.org/genai"
)

// session holds one user's chat history. The mutex serializes message
// exchanges so a user's two in-flight prompts cannot interleave history;
// lastUsed is only read or written while holding it.
type session struct {
	mu       sync.Mutex
	history  []*genai.Content
	lastUsed time.Time
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	maxIdle  time.Duration
}

func newSessionStore(maxIdle time.Duration) *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*session),
		maxIdle:  maxIdle,
	}
}

func (s *sessionStore) get(userID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{lastUsed: time.Now()}
		s.sessions[userID] = sess
	}
	return sess
}

func (s *sessionStore) removeAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.sessions)
	s.sessions = make(map[string]*session)
	return removed
}

func (s *sessionStore) removeIdle() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.maxIdle)
	removed := 0
	for id, sess := range s.sessions {
		// A held session mutex means an exchange is in flight; never
		// drop that history, whatever lastUsed says.
		if !sess.mu.TryLock() {
			continue
		}
		idle := sess.lastUsed.Before(cutoff)
		sess.mu.Unlock()

		if idle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
