package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrAppointmentNotFound = errors.New("appointment not found")

// Appointment status values.
const (
	StatusBooked   = "booked"
	StatusCanceled = "canceled"
)

// DefaultDurationMinutes is the appointment length when neither the lead
// nor Calendly specified one.
const DefaultDurationMinutes = 30

// Appointment is a scheduled call with a lead.
type Appointment struct {
	ID                    uuid.UUID
	LeadID                uuid.UUID
	ConversationID        *uuid.UUID
	ScheduledAt           time.Time
	DurationMinutes       int
	Status                string
	CalendlyEventURI      string
	CalendlyInviteeURI    string
	CalendlySchedulingURL string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Repository provides data access for appointments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new appointment repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const appointmentColumns = `id, lead_id, conversation_id, scheduled_at, duration_minutes, status, calendly_event_uri, calendly_invitee_uri, calendly_scheduling_url, created_at, updated_at`

func scanAppointment(row pgx.Row) (Appointment, error) {
	var appt Appointment
	err := row.Scan(
		&appt.ID, &appt.LeadID, &appt.ConversationID, &appt.ScheduledAt, &appt.DurationMinutes,
		&appt.Status, &appt.CalendlyEventURI, &appt.CalendlyInviteeURI, &appt.CalendlySchedulingURL,
		&appt.CreatedAt, &appt.UpdatedAt,
	)
	return appt, err
}

// Create stores a new appointment.
func (r *Repository) Create(ctx context.Context, appt Appointment) (Appointment, error) {
	if appt.DurationMinutes <= 0 {
		appt.DurationMinutes = DefaultDurationMinutes
	}
	return scanAppointment(r.pool.QueryRow(ctx, `
		INSERT INTO appointments (lead_id, conversation_id, scheduled_at, duration_minutes, status, calendly_event_uri, calendly_invitee_uri, calendly_scheduling_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+appointmentColumns+`
	`, appt.LeadID, appt.ConversationID, appt.ScheduledAt, appt.DurationMinutes, StatusBooked,
		appt.CalendlyEventURI, appt.CalendlyInviteeURI, appt.CalendlySchedulingURL))
}

// GetUnlinkedByLeadAndTime finds an SMS-booked appointment that has no
// Calendly event attached yet.
func (r *Repository) GetUnlinkedByLeadAndTime(ctx context.Context, leadID uuid.UUID, scheduledAt time.Time) (Appointment, error) {
	appt, err := scanAppointment(r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE lead_id = $1 AND scheduled_at = $2 AND status = $3 AND calendly_event_uri = ''
		ORDER BY created_at DESC
		LIMIT 1
	`, leadID, scheduledAt, StatusBooked))
	if errors.Is(err, pgx.ErrNoRows) {
		return Appointment{}, ErrAppointmentNotFound
	}
	return appt, err
}

// LinkCalendlyEvent attaches Calendly identifiers to an appointment booked
// over SMS, so a later cancellation webhook can find it.
func (r *Repository) LinkCalendlyEvent(ctx context.Context, id uuid.UUID, eventURI, inviteeURI string) (Appointment, error) {
	appt, err := scanAppointment(r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET calendly_event_uri = $2, calendly_invitee_uri = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, eventURI, inviteeURI))
	if errors.Is(err, pgx.ErrNoRows) {
		return Appointment{}, ErrAppointmentNotFound
	}
	return appt, err
}

// GetByCalendlyEvent retrieves an appointment by its Calendly event URI.
func (r *Repository) GetByCalendlyEvent(ctx context.Context, eventURI string) (Appointment, error) {
	appt, err := scanAppointment(r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE calendly_event_uri = $1
	`, eventURI))
	if errors.Is(err, pgx.ErrNoRows) {
		return Appointment{}, ErrAppointmentNotFound
	}
	return appt, err
}

// CancelByCalendlyEvent marks the appointment canceled. Returns the
// updated row so the caller can notify the lead.
func (r *Repository) CancelByCalendlyEvent(ctx context.Context, eventURI string) (Appointment, error) {
	appt, err := scanAppointment(r.pool.QueryRow(ctx, `
		UPDATE appointments SET status = $2, updated_at = now()
		WHERE calendly_event_uri = $1
		RETURNING `+appointmentColumns+`
	`, eventURI, StatusCanceled))
	if errors.Is(err, pgx.ErrNoRows) {
		return Appointment{}, ErrAppointmentNotFound
	}
	return appt, err
}

// ListByLead returns a lead's appointments, newest first.
func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE lead_id = $1
		ORDER BY scheduled_at DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appointments []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, appt)
	}
	return appointments, rows.Err()
}
