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

// ErrDuplicateMessage indicates the inbound SMS activity was already
// stored, meaning a webhook re-delivery.
var ErrDuplicateMessage = errors.New("message already processed")

// Message direction values.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Meta is the per-message provenance stored as jsonb: which responder
// produced an outbound reply and the phone pair the SMS moved between.
type Meta struct {
	Source      string `json:"source,omitempty"`
	Model       string `json:"model,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
	LocalPhone  string `json:"local_phone,omitempty"`
	RemotePhone string `json:"remote_phone,omitempty"`
}

// Message is one SMS in a conversation.
type Message struct {
	ID              uuid.UUID
	ConversationID  uuid.UUID
	Direction       string
	Content         string
	CloseActivityID *string
	Tokens          int
	Meta            Meta
	CreatedAt       time.Time
}

// MessageRepository provides data access for messages.
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new message repository.
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

const messageColumns = `id, conversation_id, direction, content, close_activity_id, tokens, metadata, created_at`

func scanMessage(row pgx.Row) (Message, error) {
	var msg Message
	var metaJSON []byte
	err := row.Scan(
		&msg.ID, &msg.ConversationID, &msg.Direction, &msg.Content,
		&msg.CloseActivityID, &msg.Tokens, &metaJSON, &msg.CreatedAt,
	)
	if err != nil {
		return Message{}, err
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &msg.Meta); err != nil {
			return Message{}, err
		}
	}
	return msg, nil
}

// nullIfEmpty keeps empty activity IDs out of the partial unique index,
// which would otherwise treat the empty string as a real key.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// InsertInbound stores an inbound SMS keyed by its CRM activity ID.
// Returns ErrDuplicateMessage when the activity was stored before.
func (r *MessageRepository) InsertInbound(ctx context.Context, conversationID uuid.UUID, content, closeActivityID string, meta Meta) (Message, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return Message{}, err
	}

	msg, err := scanMessage(r.pool.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, direction, content, close_activity_id, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+messageColumns+`
	`, conversationID, DirectionInbound, content, nullIfEmpty(closeActivityID), metaJSON))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Message{}, ErrDuplicateMessage
		}
		return Message{}, err
	}
	return msg, nil
}

// InsertOutbound stores a bot reply with its generation metadata. The CRM
// activity ID is recorded after the send succeeds.
func (r *MessageRepository) InsertOutbound(ctx context.Context, conversationID uuid.UUID, content string, tokens int, meta Meta) (Message, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return Message{}, err
	}

	return scanMessage(r.pool.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, direction, content, tokens, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+messageColumns+`
	`, conversationID, DirectionOutbound, content, tokens, metaJSON))
}

// SetCloseActivityID records the CRM activity created for an outbound message.
func (r *MessageRepository) SetCloseActivityID(ctx context.Context, messageID uuid.UUID, activityID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE messages SET close_activity_id = $2
		WHERE id = $1
	`, messageID, activityID)
	return err
}

// ListRecent returns the most recent messages in chronological order.
func (r *MessageRepository) ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM (
			SELECT `+messageColumns+`
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// LastOutbound returns the bot's most recent reply, or nil.
func (r *MessageRepository) LastOutbound(ctx context.Context, conversationID uuid.UUID) (*Message, error) {
	messages, err := r.ListRecent(ctx, conversationID, 10)
	if err != nil {
		return nil, err
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Direction == DirectionOutbound {
			return &messages[i], nil
		}
	}
	return nil, nil
}
