package memory

import (
	"sync"

	"github.com/FloatinggOnion/telegram-json-quizbot/internal/quiz"
)

// SessionStore is an in-memory implementation of quiz.SessionStore, keyed by
// user id. Each user has at most one session.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*quiz.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]*quiz.Session),
	}
}

func (s *SessionStore) Put(userID int64, session *quiz.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = session
}

func (s *SessionStore) Get(userID int64) (*quiz.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	return session, ok
}

func (s *SessionStore) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
