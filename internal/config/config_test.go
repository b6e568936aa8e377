package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quiz-screening-service/internal/domain"
)

func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  port: "9090"
redis:
  addr: localhost:6379
  ttl: 15m
quiz:
  catalog: quizzes.yaml
session:
  tickInterval: 500ms
auth:
  secret: from-file
`)
	t.Setenv("AUTH_SECRET", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" || cfg.Quiz.Catalog != "quizzes.yaml" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Auth.Secret != "from-file" {
		t.Fatalf("expected secret from file, got %q", cfg.Auth.Secret)
	}
	if d := TTLDuration(cfg.Session.TickInterval, time.Second); d != 500*time.Millisecond {
		t.Fatalf("expected 500ms tick, got %s", d)
	}
}

func TestLoadSecretFromEnv(t *testing.T) {
	path := writeFile(t, "config.yaml", "auth:\n  secret: from-file\n")
	t.Setenv("AUTH_SECRET", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.Secret != "from-env" {
		t.Fatalf("expected env override, got %q", cfg.Auth.Secret)
	}
}

func TestTTLDuration(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"", time.Minute},
		{"garbage", time.Minute},
		{"90s", 90 * time.Second},
	}
	for _, tc := range tests {
		if got := TTLDuration(tc.raw, time.Minute); got != tc.want {
			t.Fatalf("TTLDuration(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestLoadCatalog(t *testing.T) {
	path := writeFile(t, "quizzes.yaml", `
quizzes:
  - id: quiz-1
    slug: go-basics
    title: Go basics
    passingScore: 60
    timeLimitSeconds: 300
    questions:
      - id: q1
        text: Zero value of a string?
        options: ['""', "nil"]
        correctAnswer: '""'
      - id: q2
        text: Keyword for a goroutine?
        options: ["go", "async"]
        correctAnswer: go
`)
	quizzes, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if len(quizzes) != 1 || len(quizzes[0].Questions) != 2 {
		t.Fatalf("unexpected catalog %+v", quizzes)
	}
	if quizzes[0].Questions[0].CorrectAnswer != `""` || quizzes[0].TimeLimitSeconds != 300 {
		t.Fatalf("fields not decoded: %+v", quizzes[0])
	}
}

func TestLoadCatalogRejectsInvalidQuiz(t *testing.T) {
	path := writeFile(t, "quizzes.yaml", `
quizzes:
  - id: quiz-1
    passingScore: 60
    timeLimitSeconds: 30
    questions:
      - id: q1
        options: ["a", "b"]
        correctAnswer: a
`)
	if _, err := LoadCatalog(path); !errors.Is(err, domain.ErrInvalidQuiz) {
		t.Fatalf("expected ErrInvalidQuiz, got %v", err)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
