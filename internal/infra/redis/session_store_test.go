package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-screening-service/internal/app"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	session, _ := store.GetOrCreate("u1", "quiz-1", func() *app.Session { return &app.Session{} })
	if !mr.Exists("quiz:session:quiz-1:u1") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("quiz:session:quiz-1:u1"); ttl != time.Minute {
		t.Fatalf("expected liveness ttl of a minute, got %s", ttl)
	}

	store.Delete("u1", "quiz-1", session)
	if mr.Exists("quiz:session:quiz-1:u1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("u1", "quiz-1"); ok {
		t.Fatalf("expected session removed")
	}
}

func TestSessionStoreSurvivesRedisOutage(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	store := NewSessionStore(client, time.Minute)
	mr.Close()

	start := time.Now()
	session, created := store.GetOrCreate("u1", "quiz-1", func() *app.Session { return &app.Session{} })
	if !created {
		t.Fatalf("expected session to be created without redis")
	}
	if _, ok := store.Get("u1", "quiz-1"); !ok {
		t.Fatalf("expected session tracked in process")
	}
	store.Delete("u1", "quiz-1", session)
	if _, ok := store.Get("u1", "quiz-1"); ok {
		t.Fatalf("expected session removed")
	}
	if elapsed := time.Since(start); elapsed > 2*markerTimeout+time.Second {
		t.Fatalf("marker writes must be bounded, took %s", elapsed)
	}
}
