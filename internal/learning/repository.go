// Package learning mines past conversations for response patterns that
// worked, and serves the best-scoring pattern back to the responder.
package learning

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNoPattern = errors.New("no matching pattern")

// Pattern is one learned trigger/response pair with its track record.
type Pattern struct {
	ID           uuid.UUID
	LeadAge      string
	Stage        string
	TriggerText  string
	ResponseText string
	SuccessCount int
	FailureCount int
	Score        float64
	LastUsedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository provides data access for conversation patterns.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new pattern repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record upserts a pattern observation. success increments the success
// count, otherwise the failure count; the score is recomputed as the
// success ratio.
func (r *Repository) Record(ctx context.Context, leadAge, stage, triggerText, responseText string, success bool) error {
	successInc, failureInc := 0, 1
	if success {
		successInc, failureInc = 1, 0
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversation_patterns (lead_age, stage, trigger_text, response_text, success_count, failure_count, score)
		VALUES ($1, $2, $3, $4, $5, $6, $5::float / GREATEST($5 + $6, 1))
		ON CONFLICT (lead_age, stage, trigger_text) DO UPDATE SET
			response_text = EXCLUDED.response_text,
			success_count = conversation_patterns.success_count + $5,
			failure_count = conversation_patterns.failure_count + $6,
			score = (conversation_patterns.success_count + $5)::float /
				GREATEST(conversation_patterns.success_count + $5 + conversation_patterns.failure_count + $6, 1),
			updated_at = now()
	`, leadAge, stage, triggerText, responseText, successInc, failureInc)
	return err
}

// Best returns the highest-scoring pattern for a lead age and stage.
// Only patterns with a majority success rate qualify.
func (r *Repository) Best(ctx context.Context, leadAge, stage string) (Pattern, error) {
	var p Pattern
	err := r.pool.QueryRow(ctx, `
		SELECT id, lead_age, stage, trigger_text, response_text, success_count, failure_count, score, last_used_at, created_at, updated_at
		FROM conversation_patterns
		WHERE lead_age = $1 AND stage = $2 AND score > 0.5
		ORDER BY score DESC, updated_at DESC
		LIMIT 1
	`, leadAge, stage).Scan(
		&p.ID, &p.LeadAge, &p.Stage, &p.TriggerText, &p.ResponseText,
		&p.SuccessCount, &p.FailureCount, &p.Score, &p.LastUsedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Pattern{}, ErrNoPattern
	}
	return p, err
}

// MarkUsed stamps the pattern's last use.
func (r *Repository) MarkUsed(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE conversation_patterns SET last_used_at = now()
		WHERE id = $1
	`, id)
	return err
}
