package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"quiz-screening-service/internal/domain"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
		// Catalog is a YAML file of quiz definitions, used when Postgres is not configured
		// and by the seed command.
		Catalog string `yaml:"catalog"`
	} `yaml:"quiz"`
	Session struct {
		TickInterval  string `yaml:"tickInterval"`
		SubmitTimeout string `yaml:"submitTimeout"`
	} `yaml:"session"`
	Auth struct {
		Secret   string `yaml:"secret"`
		Issuer   string `yaml:"issuer"`
		TokenTTL string `yaml:"tokenTTL"`
	} `yaml:"auth"`
}

// Load reads YAML config from path. AUTH_SECRET overrides auth.secret.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if secret := os.Getenv("AUTH_SECRET"); secret != "" {
		cfg.Auth.Secret = secret
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

type catalogFile struct {
	Quizzes []domain.Quiz `yaml:"quizzes"`
}

// LoadCatalog reads quiz definitions from a YAML file and validates each one.
func LoadCatalog(path string) ([]domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	seen := make(map[string]struct{}, len(file.Quizzes))
	for _, quiz := range file.Quizzes {
		if err := domain.ValidateQuiz(quiz); err != nil {
			return nil, err
		}
		if _, dup := seen[quiz.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate quiz id %s", domain.ErrInvalidQuiz, quiz.ID)
		}
		seen[quiz.ID] = struct{}{}
	}
	return file.Quizzes, nil
}
