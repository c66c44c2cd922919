// Package bot provides the runtime kill switch: a persisted flag the worker
// consults before replying to any inbound message, plus the admin endpoints
// that flip it.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const keyBotEnabled = "bot_enabled"

// Repository reads and writes system_config entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new system config repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Status is the current state of the bot toggle.
type Status struct {
	Enabled     bool
	LastUpdated *time.Time
}

// GetStatus reads the bot_enabled flag. A missing row counts as enabled so
// a fresh database does not silence the bot.
func (r *Repository) GetStatus(ctx context.Context) (Status, error) {
	var raw []byte
	var updatedAt time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT value, updated_at FROM system_config WHERE key = $1`, keyBotEnabled,
	).Scan(&raw, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Status{Enabled: true}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("get bot status: %w", err)
	}

	var enabled bool
	if err := json.Unmarshal(raw, &enabled); err != nil {
		return Status{}, fmt.Errorf("decode bot status: %w", err)
	}
	return Status{Enabled: enabled, LastUpdated: &updatedAt}, nil
}

// SetEnabled upserts the bot_enabled flag.
func (r *Repository) SetEnabled(ctx context.Context, enabled bool) (Status, error) {
	raw, err := json.Marshal(enabled)
	if err != nil {
		return Status{}, err
	}

	var updatedAt time.Time
	err = r.pool.QueryRow(ctx, `
		INSERT INTO system_config (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
		RETURNING updated_at`, keyBotEnabled, raw,
	).Scan(&updatedAt)
	if err != nil {
		return Status{}, fmt.Errorf("set bot status: %w", err)
	}
	return Status{Enabled: enabled, LastUpdated: &updatedAt}, nil
}
