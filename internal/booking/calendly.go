package booking

import (
	"context"
	"errors"
	"fmt"

	"smsbot_backend/internal/conversation"
	"smsbot_backend/internal/leads"
	"smsbot_backend/internal/webhook"
	"smsbot_backend/platform/events"
	"smsbot_backend/platform/logger"
)

// CalendlyProcessor applies invitee.created and invitee.canceled webhook
// events to the appointment store and publishes the matching domain events.
type CalendlyProcessor struct {
	repo     *Repository
	leadRepo *leads.Repository
	convRepo *conversation.Repository
	bus      events.Bus
	log      *logger.Logger
}

// NewCalendlyProcessor creates the Calendly webhook event processor.
func NewCalendlyProcessor(
	repo *Repository,
	leadRepo *leads.Repository,
	convRepo *conversation.Repository,
	bus events.Bus,
	log *logger.Logger,
) *CalendlyProcessor {
	return &CalendlyProcessor{
		repo:     repo,
		leadRepo: leadRepo,
		convRepo: convRepo,
		bus:      bus,
		log:      log,
	}
}

// ProcessCalendlyEvent routes one stored Calendly webhook payload. Unknown
// event types are acknowledged without effect.
func (p *CalendlyProcessor) ProcessCalendlyEvent(ctx context.Context, payload webhook.CalendlyPayload) error {
	switch payload.Event {
	case webhook.CalendlyInviteeCreated:
		return p.handleCreated(ctx, payload)
	case webhook.CalendlyInviteeCanceled:
		return p.handleCanceled(ctx, payload)
	default:
		p.log.Info("unhandled calendly event type", "event", payload.Event)
		return nil
	}
}

func (p *CalendlyProcessor) handleCreated(ctx context.Context, payload webhook.CalendlyPayload) error {
	ev := payload.Payload.Event
	invitee := payload.Payload.Invitee
	if ev == nil || invitee == nil {
		return nil
	}

	// Calendly only knows the booker's email; an invitee we cannot match
	// to a lead is logged and dropped rather than retried forever.
	lead, err := p.leadRepo.GetByEmail(ctx, invitee.Email)
	if errors.Is(err, leads.ErrLeadNotFound) {
		p.log.Warn("calendly invitee matches no lead", "invitee_uri", invitee.URI)
		return nil
	}
	if err != nil {
		return fmt.Errorf("match invitee to lead: %w", err)
	}

	// An appointment already booked over SMS for this time just gains its
	// Calendly identifiers; the lead was confirmed in that flow.
	if existing, lookErr := p.repo.GetUnlinkedByLeadAndTime(ctx, lead.ID, ev.StartTime); lookErr == nil {
		if _, linkErr := p.repo.LinkCalendlyEvent(ctx, existing.ID, ev.URI, invitee.URI); linkErr != nil {
			return fmt.Errorf("link calendly event: %w", linkErr)
		}
		p.log.Info("calendly event linked to existing appointment",
			"appointment_id", existing.ID.String(), "lead_id", lead.ID.String())
		return nil
	}

	duration := 0
	if !ev.EndTime.IsZero() {
		duration = int(ev.EndTime.Sub(ev.StartTime).Minutes())
	}

	appt := Appointment{
		LeadID:             lead.ID,
		ScheduledAt:        ev.StartTime,
		DurationMinutes:    duration,
		CalendlyEventURI:   ev.URI,
		CalendlyInviteeURI: invitee.URI,
	}
	if conv, convErr := p.convRepo.GetActiveByLead(ctx, lead.ID, conversation.BotTypeSales); convErr == nil {
		convID := conv.ID
		appt.ConversationID = &convID
	}

	created, err := p.repo.Create(ctx, appt)
	if err != nil {
		return fmt.Errorf("store calendly appointment: %w", err)
	}

	p.bus.Publish(ctx, AppointmentBooked{
		BaseEvent:     events.NewBaseEvent(),
		AppointmentID: created.ID,
		LeadID:        lead.ID,
		ScheduledAt:   created.ScheduledAt,
		Source:        SourceCalendly,
	})

	p.log.Info("calendly appointment recorded",
		"appointment_id", created.ID.String(), "lead_id", lead.ID.String())
	return nil
}

func (p *CalendlyProcessor) handleCanceled(ctx context.Context, payload webhook.CalendlyPayload) error {
	ev := payload.Payload.Event
	if ev == nil {
		return nil
	}

	appt, err := p.repo.CancelByCalendlyEvent(ctx, ev.URI)
	if errors.Is(err, ErrAppointmentNotFound) {
		p.log.Warn("cancellation for unknown calendly event", "event_uri", ev.URI)
		return nil
	}
	if err != nil {
		return fmt.Errorf("cancel appointment: %w", err)
	}

	p.bus.Publish(ctx, AppointmentCanceled{
		BaseEvent:     events.NewBaseEvent(),
		AppointmentID: appt.ID,
		LeadID:        appt.LeadID,
		ScheduledAt:   appt.ScheduledAt,
		Source:        SourceCalendly,
	})

	p.log.Info("calendly appointment canceled", "appointment_id", appt.ID.String())
	return nil
}
