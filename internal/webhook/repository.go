package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smsbot_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event processing statuses.
const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// ErrEventNotFound is returned when a webhook event does not exist.
var ErrEventNotFound = apperr.NotFound("webhook event not found")

// Event is a stored webhook delivery. Every inbound webhook is persisted
// before any processing happens so jobs can be retried from the raw payload.
type Event struct {
	ID              uuid.UUID
	Source          string
	EventType       string
	ExternalEventID string
	Payload         []byte
	Status          string
	Error           string
	ProcessedAt     *time.Time
	CreatedAt       time.Time
}

// Repository persists webhook events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new webhook event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, source, event_type, external_event_id, payload, status, error, processed_at, created_at`

// FindOrCreate stores a webhook delivery, deduplicating on
// (source, event_type, external_event_id). The returned bool is true when
// a new row was inserted and false when the delivery was already known.
func (r *Repository) FindOrCreate(ctx context.Context, source, eventType, externalEventID string, payload []byte) (Event, bool, error) {
	var ev Event
	err := r.pool.QueryRow(ctx, `
		INSERT INTO webhook_events (source, event_type, external_event_id, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (source, event_type, external_event_id) DO NOTHING
		RETURNING `+eventColumns,
		source, eventType, externalEventID, payload,
	).Scan(&ev.ID, &ev.Source, &ev.EventType, &ev.ExternalEventID, &ev.Payload,
		&ev.Status, &ev.Error, &ev.ProcessedAt, &ev.CreatedAt)
	if err == nil {
		return ev, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Event{}, false, fmt.Errorf("insert webhook event: %w", err)
	}

	// Conflict: another delivery of the same event won, read it back.
	existing, err := r.getByDedupKey(ctx, source, eventType, externalEventID)
	if err != nil {
		return Event{}, false, err
	}
	return existing, false, nil
}

// GetByID fetches a stored webhook event.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Event, error) {
	var ev Event
	err := r.pool.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM webhook_events
		WHERE id = $1`, id,
	).Scan(&ev.ID, &ev.Source, &ev.EventType, &ev.ExternalEventID, &ev.Payload,
		&ev.Status, &ev.Error, &ev.ProcessedAt, &ev.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, ErrEventNotFound
	}
	if err != nil {
		return Event{}, fmt.Errorf("get webhook event: %w", err)
	}
	return ev, nil
}

// MarkProcessed records successful processing of the event.
func (r *Repository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE webhook_events
		SET status = $2, error = '', processed_at = now()
		WHERE id = $1`, id, StatusProcessed)
	if err != nil {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}
	return nil
}

// MarkFailed records a processing failure with the error message.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE webhook_events
		SET status = $2, error = $3, processed_at = now()
		WHERE id = $1`, id, StatusFailed, errMsg)
	if err != nil {
		return fmt.Errorf("mark webhook event failed: %w", err)
	}
	return nil
}

func (r *Repository) getByDedupKey(ctx context.Context, source, eventType, externalEventID string) (Event, error) {
	var ev Event
	err := r.pool.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM webhook_events
		WHERE source = $1 AND event_type = $2 AND external_event_id = $3`,
		source, eventType, externalEventID,
	).Scan(&ev.ID, &ev.Source, &ev.EventType, &ev.ExternalEventID, &ev.Payload,
		&ev.Status, &ev.Error, &ev.ProcessedAt, &ev.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, ErrEventNotFound
	}
	if err != nil {
		return Event{}, fmt.Errorf("get webhook event by dedup key: %w", err)
	}
	return ev, nil
}
