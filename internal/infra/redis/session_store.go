package redis

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-screening-service/internal/app"
)

const markerTimeout = 2 * time.Second

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions and their clocks live in process; the map below owns them.
//   - Redis holds a liveness marker per (user, quiz) with the session TTL so other
//     instances and operators can see who is mid-quiz.
//   - Seal safety does not depend on this store: the attempt table's unique key does that.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(userID, quizID string, create func() *app.Session) (*app.Session, bool) {
	s.mu.Lock()
	if session, ok := s.sessions[s.key(userID, quizID)]; ok {
		s.mu.Unlock()
		return session, false
	}
	session := create()
	s.sessions[s.key(userID, quizID)] = session
	s.mu.Unlock()

	s.mark(userID, quizID)
	return session, true
}

func (s *SessionStore) Get(userID, quizID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[s.key(userID, quizID)]
	return session, ok
}

func (s *SessionStore) Delete(userID, quizID string, session *app.Session) {
	s.mu.Lock()
	current, ok := s.sessions[s.key(userID, quizID)]
	if !ok || current != session {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, s.key(userID, quizID))
	s.mu.Unlock()

	s.unmark(userID, quizID)
}

// mark writes the best-effort liveness marker.
func (s *SessionStore) mark(userID, quizID string) {
	ctx, cancel := context.WithTimeout(context.Background(), markerTimeout)
	defer cancel()
	if err := s.client.Set(ctx, s.key(userID, quizID), time.Now().UTC().Format(time.RFC3339), s.ttl).Err(); err != nil {
		log.Printf("session marker write %s/%s: %v", userID, quizID, err)
	}
}

func (s *SessionStore) unmark(userID, quizID string) {
	ctx, cancel := context.WithTimeout(context.Background(), markerTimeout)
	defer cancel()
	if err := s.client.Del(ctx, s.key(userID, quizID)).Err(); err != nil {
		log.Printf("session marker delete %s/%s: %v", userID, quizID, err)
	}
}

func (s *SessionStore) key(userID, quizID string) string {
	return "quiz:session:" + quizID + ":" + userID
}
