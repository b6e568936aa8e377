package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-screening-service/internal/domain"
)

const foreignKeyViolation = "23503"

// AttemptRepository stores sealed attempts. The attempts_user_quiz_key unique constraint
// makes Create an atomic check-and-insert.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func (r *AttemptRepository) Create(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("%w: marshal answers: %w", domain.ErrPersistence, err)
	}

	var id string
	err = r.pool.QueryRow(ctx, `
		INSERT INTO attempts (id, user_id, quiz_id, answers, score, passed, submitted_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT attempts_user_quiz_key DO NOTHING
		RETURNING id`,
		attempt.ID, attempt.UserID, attempt.QuizID, string(answers), attempt.Score, attempt.Passed, attempt.SubmittedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAlreadyAttempted
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return domain.Attempt{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("%w: insert attempt: %w", domain.ErrPersistence, err)
	}
	attempt.ID = id
	return attempt, nil
}

func (r *AttemptRepository) Get(ctx context.Context, userID, quizID string) (domain.Attempt, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, quiz_id, answers, score, passed, submitted_at
		FROM attempts WHERE user_id=$1 AND quiz_id=$2`, userID, quizID)
	attempt, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("%w: get attempt: %w", domain.ErrPersistence, err)
	}
	return attempt, nil
}

func (r *AttemptRepository) ListByQuiz(ctx context.Context, quizID string) ([]domain.Attempt, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, quiz_id, answers, score, passed, submitted_at
		FROM attempts WHERE quiz_id=$1 ORDER BY submitted_at, user_id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("%w: list attempts: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	attempts := make([]domain.Attempt, 0)
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan attempt: %w", domain.ErrPersistence, err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list attempts: %w", domain.ErrPersistence, err)
	}
	return attempts, nil
}

func scanAttempt(row pgx.Row) (domain.Attempt, error) {
	var (
		attempt domain.Attempt
		answers []byte
	)
	if err := row.Scan(&attempt.ID, &attempt.UserID, &attempt.QuizID, &answers, &attempt.Score, &attempt.Passed, &attempt.SubmittedAt); err != nil {
		return domain.Attempt{}, err
	}
	if err := json.Unmarshal(answers, &attempt.Answers); err != nil {
		return domain.Attempt{}, err
	}
	attempt.SubmittedAt = attempt.SubmittedAt.UTC()
	return attempt, nil
}
