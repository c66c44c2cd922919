package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrConversationNotFound = errors.New("conversation not found")

// Status of a conversation thread.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusPaused    = "paused"
)

// BotType distinguishes the sales bot from possible future bots sharing
// the same lead.
const BotTypeSales = "sales"

// Conversation is one bot thread with a lead.
type Conversation struct {
	ID            uuid.UUID
	LeadID        uuid.UUID
	BotType       string
	Status        string
	Stage         string
	Persona       string
	Context       Context
	LastMessageAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Repository provides data access for conversations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new conversation repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const conversationColumns = `id, lead_id, bot_type, status, stage, persona, context, last_message_at, created_at, updated_at`

func scanConversation(row pgx.Row) (Conversation, error) {
	var conv Conversation
	var contextJSON []byte
	err := row.Scan(
		&conv.ID, &conv.LeadID, &conv.BotType, &conv.Status, &conv.Stage,
		&conv.Persona, &contextJSON, &conv.LastMessageAt, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err != nil {
		return Conversation{}, err
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &conv.Context); err != nil {
			return Conversation{}, err
		}
	}
	return conv, nil
}

// GetOrCreateActive returns the active conversation for a lead and bot
// type, creating one if none exists. A concurrent insert losing the race
// on the partial unique index falls back to reading the winner's row.
func (r *Repository) GetOrCreateActive(ctx context.Context, leadID uuid.UUID, botType string) (Conversation, error) {
	conv, err := r.getActive(ctx, leadID, botType)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, ErrConversationNotFound) {
		return Conversation{}, err
	}

	conv, err = scanConversation(r.pool.QueryRow(ctx, `
		INSERT INTO conversations (lead_id, bot_type)
		VALUES ($1, $2)
		RETURNING `+conversationColumns+`
	`, leadID, botType))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return r.getActive(ctx, leadID, botType)
		}
		return Conversation{}, err
	}
	return conv, nil
}

// GetActiveByLead returns the lead's active conversation for the bot type.
func (r *Repository) GetActiveByLead(ctx context.Context, leadID uuid.UUID, botType string) (Conversation, error) {
	return r.getActive(ctx, leadID, botType)
}

func (r *Repository) getActive(ctx context.Context, leadID uuid.UUID, botType string) (Conversation, error) {
	conv, err := scanConversation(r.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE lead_id = $1 AND bot_type = $2 AND status = $3
	`, leadID, botType, StatusActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// GetByID retrieves a conversation.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Conversation, error) {
	conv, err := scanConversation(r.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// UpdateStage persists the resolved stage and persona after a turn.
func (r *Repository) UpdateStage(ctx context.Context, id uuid.UUID, stage, persona string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE conversations
		SET stage = $2, persona = $3, last_message_at = now(), updated_at = now()
		WHERE id = $1
	`, id, stage, persona)
	return err
}

// UpdateContext replaces the conversation's scratch context.
func (r *Repository) UpdateContext(ctx context.Context, id uuid.UUID, convContext Context) error {
	payload, err := json.Marshal(convContext)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE conversations SET context = $2, updated_at = now()
		WHERE id = $1
	`, id, payload)
	return err
}

// SetStatus transitions the conversation lifecycle state.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE conversations SET status = $2, updated_at = now()
		WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConversationNotFound
	}
	return nil
}
