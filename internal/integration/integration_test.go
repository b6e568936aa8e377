package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quiz-screening-service/internal/app"
	"quiz-screening-service/internal/domain"
	pgstore "quiz-screening-service/internal/infra/postgres"
	pgmigrations "quiz-screening-service/internal/infra/postgres/migrations"
	infraredis "quiz-screening-service/internal/infra/redis"
)

func TestAttemptLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgstore.NewQuizLoader(pool)
	if err := loader.UpsertQuiz(ctx, sampleQuiz()); err != nil {
		t.Fatalf("upsert quiz: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	catalog := infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute)
	recorder := app.NewAttemptRecorder(catalog, pgstore.NewAttemptRepository(pool))
	runner := app.NewQuizRunner(catalog, recorder, infraredis.NewSessionStore(redisClient, 5*time.Minute))

	started, err := runner.Start(ctx, "u1", "quiz-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != app.StartStarted {
		t.Fatalf("expected a live session, got %s", started.Status)
	}
	if err := started.Session.Answer("q1", "4"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	result, err := runner.Submit(ctx, "u1", "quiz-1", time.Now())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Attempt.Score != 50 || !result.Attempt.Passed {
		t.Fatalf("expected 50 passed, got %+v", result.Attempt)
	}

	reopened, err := runner.Start(ctx, "u1", "quiz-1")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if reopened.Status != app.StartCompleted || reopened.Attempt.ID != result.Attempt.ID {
		t.Fatalf("expected the stored attempt on re-entry, got %+v", reopened)
	}
	if reopened.Attempt.Answers["q1"] != "4" {
		t.Fatalf("answers not persisted: %+v", reopened.Attempt.Answers)
	}

	unavailable, err := runner.Start(ctx, "u1", "missing")
	if err != nil || unavailable.Status != app.StartUnavailable {
		t.Fatalf("expected unavailable, got %+v %v", unavailable, err)
	}
}

func TestConcurrentSubmissionsSealOnce(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgstore.NewQuizLoader(pool)
	if err := loader.UpsertQuiz(ctx, sampleQuiz()); err != nil {
		t.Fatalf("upsert quiz: %v", err)
	}
	attempts := pgstore.NewAttemptRepository(pool)
	// two recorders stand in for two service instances
	recorders := []*app.AttemptRecorder{
		app.NewAttemptRecorder(loaderCatalog{loader}, attempts),
		app.NewAttemptRecorder(loaderCatalog{loader}, attempts),
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		sealed   int
		rejected int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := recorders[i%2].Submit(ctx, "u1", "quiz-1", domain.AnswerSet{"q2": "Paris"}, time.Time{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				sealed++
			case errors.Is(err, domain.ErrAlreadyAttempted):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if sealed != 1 || rejected != 9 {
		t.Fatalf("expected one sealed and nine rejected, got %d/%d", sealed, rejected)
	}
	list, err := attempts.ListByQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one stored attempt, got %d", len(list))
	}

	if _, err := attempts.Create(ctx, domain.Attempt{ID: "00000000-0000-0000-0000-000000000001", UserID: "u1", QuizID: "missing", SubmittedAt: time.Now()}); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound for an unknown quiz, got %v", err)
	}
}

type loaderCatalog struct {
	loader *pgstore.QuizLoader
}

func (c loaderCatalog) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return c.loader.LoadQuiz(ctx, quizID)
}

func (c loaderCatalog) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return c.loader.LoadQuizzes(ctx)
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:               "quiz-1",
		Slug:             "basics",
		Title:            "Basics",
		PassingScore:     50,
		TimeLimitSeconds: 300,
		Questions: []domain.Question{
			{ID: "q1", Text: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectAnswer: "4"},
			{ID: "q2", Text: "Capital of France?", Options: []string{"Paris", "Lyon"}, CorrectAnswer: "Paris"},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
