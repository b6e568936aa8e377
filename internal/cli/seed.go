package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"quiz-screening-service/internal/config"
	pgstore "quiz-screening-service/internal/infra/postgres"
)

// NewSeedCmd loads the catalog file into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var catalog string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert quiz definitions from a catalog file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, catalog)
		},
	}
	cmd.Flags().StringVar(&catalog, "catalog", "", "catalog YAML file (defaults to quiz.catalog)")
	return cmd
}

func runSeed(ctx context.Context, configPath, catalogPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if catalogPath == "" {
		catalogPath = cfg.Quiz.Catalog
	}
	if catalogPath == "" {
		return fmt.Errorf("no catalog file given")
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	quizzes, err := config.LoadCatalog(catalogPath)
	if err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	loader := pgstore.NewQuizLoader(pool)
	for _, quiz := range quizzes {
		if err := loader.UpsertQuiz(ctx, quiz); err != nil {
			return err
		}
		log.Printf("seeded quiz %s (%d questions)", quiz.ID, len(quiz.Questions))
	}
	return nil
}
