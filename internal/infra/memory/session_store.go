package memory

import (
	"sync"

	"quiz-screening-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(userID, quizID string, create func() *app.Session) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[key(userID, quizID)]; ok {
		return session, false
	}
	session := create()
	s.sessions[key(userID, quizID)] = session
	return session, true
}

func (s *SessionStore) Get(userID, quizID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key(userID, quizID)]
	return session, ok
}

func (s *SessionStore) Delete(userID, quizID string, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sessions[key(userID, quizID)]; ok && current == session {
		delete(s.sessions, key(userID, quizID))
	}
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func key(userID, quizID string) string {
	return userID + "\x00" + quizID
}
