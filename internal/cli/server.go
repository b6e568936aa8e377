package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-screening-service/internal/app"
	"quiz-screening-service/internal/config"
	"quiz-screening-service/internal/domain"
	"quiz-screening-service/internal/infra/memory"
	pgstore "quiz-screening-service/internal/infra/postgres"
	redisstore "quiz-screening-service/internal/infra/redis"
	transport "quiz-screening-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	tokens, err := newTokenManager(cfg)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader
	var attempts app.AttemptRepository
	if pool != nil {
		loader = pgstore.NewQuizLoader(pool)
		attempts = pgstore.NewAttemptRepository(pool)
	} else {
		quizzes := sampleQuizzes()
		if cfg.Quiz.Catalog != "" {
			if quizzes, err = config.LoadCatalog(cfg.Quiz.Catalog); err != nil {
				return err
			}
		}
		loader = memory.NewStaticQuizLoaderFromList(quizzes)
		attempts = memory.NewAttemptStore()
		log.Printf("postgres not configured: attempts are kept in memory")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var catalog app.QuizCatalog
	if redisClient != nil {
		catalog = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		catalog = memory.NewQuizRepository(loader, quizTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	tick := config.TTLDuration(cfg.Session.TickInterval, time.Second)
	recorder := app.NewAttemptRecorder(catalog, attempts)
	runner := app.NewQuizRunner(catalog, recorder, sessions,
		app.WithClockFactory(func(limit time.Duration) *app.SessionClock {
			return app.NewSessionClock(limit, app.WithTickInterval(tick))
		}),
		app.WithSubmitTimeout(config.TTLDuration(cfg.Session.SubmitTimeout, 10*time.Second)),
	)

	router := transport.NewRouter(transport.NewAPI(runner, recorder), transport.NewWSHandler(runner), tokens)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes is the demo catalog used when neither Postgres nor a catalog file is configured.
func sampleQuizzes() []domain.Quiz {
	return []domain.Quiz{
		{
			ID:               "quiz-1",
			Slug:             "go-fundamentals",
			Title:            "Go fundamentals",
			Description:      "Screening questions on the Go language basics.",
			PassingScore:     60,
			TimeLimitSeconds: 300,
			Questions: []domain.Question{
				{ID: "q1", Text: "What is the zero value of a map?", Options: []string{"nil", "empty map", "0"}, CorrectAnswer: "nil"},
				{ID: "q2", Text: "Which keyword starts a goroutine?", Options: []string{"go", "async", "spawn"}, CorrectAnswer: "go"},
				{ID: "q3", Text: "What does len() of a nil slice return?", Options: []string{"0", "panic", "-1"}, CorrectAnswer: "0"},
			},
		},
	}
}
