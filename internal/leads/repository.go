// Package leads provides the lead bounded context: a local mirror of the
// Close CRM leads the bot talks to.
package leads

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrLeadNotFound = errors.New("lead not found")

// Lead is the locally stored projection of a CRM lead.
type Lead struct {
	ID           uuid.UUID
	CloseID      string
	Phone        string
	Email        string
	FirstName    string
	LastName     string
	State        string
	CRMCreatedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository provides data access for leads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new lead repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, close_id, phone, email, first_name, last_name, state, crm_created_at, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.CloseID, &lead.Phone, &lead.Email, &lead.FirstName,
		&lead.LastName, &lead.State, &lead.CRMCreatedAt, &lead.CreatedAt, &lead.UpdatedAt,
	)
	return lead, err
}

// GetByCloseID retrieves a lead by its external CRM ID.
func (r *Repository) GetByCloseID(ctx context.Context, closeID string) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE close_id = $1
	`, closeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrLeadNotFound
	}
	return lead, err
}

// GetByEmail retrieves a lead by email. Used to associate Calendly invitees
// with leads, since Calendly only knows the booker's email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE lower(email) = lower($1)
		ORDER BY updated_at DESC
		LIMIT 1
	`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrLeadNotFound
	}
	return lead, err
}

// GetByID retrieves a lead by its local ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrLeadNotFound
	}
	return lead, err
}

// Upsert inserts a lead or refreshes it from the CRM snapshot. Existing
// non-empty local fields win over empty CRM values.
func (r *Repository) Upsert(ctx context.Context, lead Lead) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		INSERT INTO leads (close_id, phone, email, first_name, last_name, state, crm_created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (close_id) DO UPDATE SET
			phone          = CASE WHEN EXCLUDED.phone = '' THEN leads.phone ELSE EXCLUDED.phone END,
			email          = CASE WHEN EXCLUDED.email = '' THEN leads.email ELSE EXCLUDED.email END,
			first_name     = CASE WHEN EXCLUDED.first_name = '' THEN leads.first_name ELSE EXCLUDED.first_name END,
			last_name      = CASE WHEN EXCLUDED.last_name = '' THEN leads.last_name ELSE EXCLUDED.last_name END,
			state          = CASE WHEN EXCLUDED.state = '' THEN leads.state ELSE EXCLUDED.state END,
			crm_created_at = COALESCE(EXCLUDED.crm_created_at, leads.crm_created_at),
			updated_at     = now()
		RETURNING `+leadColumns+`
	`, lead.CloseID, lead.Phone, lead.Email, lead.FirstName, lead.LastName, lead.State, lead.CRMCreatedAt))
}

// UpdateEmail sets the lead's email.
func (r *Repository) UpdateEmail(ctx context.Context, id uuid.UUID, email string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET email = $2, updated_at = now()
		WHERE id = $1
	`, id, email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}
