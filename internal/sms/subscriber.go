package sms

import (
	"context"
	"fmt"
	"time"

	"smsbot_backend/internal/booking"
	"smsbot_backend/internal/conversation"
	"smsbot_backend/internal/leads"
	"smsbot_backend/internal/learning"
	"smsbot_backend/platform/events"
	"smsbot_backend/platform/logger"
)

// Subscriber reacts to appointment lifecycle events: it completes the
// conversation, feeds the transcript into the pattern store, and texts the
// lead when the booking arrived through Calendly rather than the SMS flow
// (where the confirmation is the reply itself).
type Subscriber struct {
	leadRepo  *leads.Repository
	convs     *conversation.Repository
	msgs      *conversation.MessageRepository
	learning  *learning.Service
	messenger Messenger
	log       *logger.Logger
	now       func() time.Time
}

// NewSubscriber creates the appointment event subscriber.
func NewSubscriber(
	leadRepo *leads.Repository,
	convs *conversation.Repository,
	msgs *conversation.MessageRepository,
	learningSvc *learning.Service,
	messenger Messenger,
	log *logger.Logger,
) *Subscriber {
	return &Subscriber{
		leadRepo:  leadRepo,
		convs:     convs,
		msgs:      msgs,
		learning:  learningSvc,
		messenger: messenger,
		log:       log,
		now:       time.Now,
	}
}

// Register attaches the subscriber to the bus.
func (s *Subscriber) Register(bus events.Bus) {
	bus.Subscribe(booking.EventAppointmentBooked, events.HandlerFunc(s.onBooked))
	bus.Subscribe(booking.EventAppointmentCanceled, events.HandlerFunc(s.onCanceled))
}

func (s *Subscriber) onBooked(ctx context.Context, event events.Event) error {
	booked, ok := event.(booking.AppointmentBooked)
	if !ok {
		return fmt.Errorf("unexpected event type for %s", event.EventName())
	}

	lead, err := s.leadRepo.GetByID(ctx, booked.LeadID)
	if err != nil {
		return fmt.Errorf("load lead for booked appointment: %w", err)
	}

	conv, err := s.convs.GetActiveByLead(ctx, booked.LeadID, conversation.BotTypeSales)
	if err == nil {
		s.ingestTranscript(ctx, lead, conv)

		if err := s.convs.SetStatus(ctx, conv.ID, conversation.StatusCompleted); err != nil {
			s.log.DatabaseError("update_conversations", err)
		}
	}

	if booked.Source != booking.SourceCalendly {
		return nil
	}

	text := fmt.Sprintf(
		"You're all set! Your appointment is confirmed for %s. Talk to you then!",
		booking.FormatSlot(booked.ScheduledAt, booked.ScheduledAt.Location()),
	)
	return s.text(ctx, lead, text)
}

func (s *Subscriber) onCanceled(ctx context.Context, event events.Event) error {
	canceled, ok := event.(booking.AppointmentCanceled)
	if !ok {
		return fmt.Errorf("unexpected event type for %s", event.EventName())
	}

	if canceled.Source != booking.SourceCalendly {
		return nil
	}

	lead, err := s.leadRepo.GetByID(ctx, canceled.LeadID)
	if err != nil {
		return fmt.Errorf("load lead for canceled appointment: %w", err)
	}

	text := "I saw your appointment was canceled - no problem at all. Want me to send over a few new times that might work better?"
	return s.text(ctx, lead, text)
}

// ingestTranscript turns the finished conversation into learned patterns.
// A booked appointment is the success signal the pattern store scores on.
func (s *Subscriber) ingestTranscript(ctx context.Context, lead leads.Lead, conv conversation.Conversation) {
	history, err := s.msgs.ListRecent(ctx, conv.ID, historyDepth)
	if err != nil {
		s.log.DatabaseError("select_messages", err)
		return
	}

	exchanges := toExchanges(history)
	if len(exchanges) == 0 {
		return
	}

	age := string(leads.AgeOf(lead, s.now()))
	if err := s.learning.Ingest(ctx, age, exchanges); err != nil {
		s.log.Warn("pattern ingest failed", "conversation_id", conv.ID.String(), "error", err.Error())
	}
}

func (s *Subscriber) text(ctx context.Context, lead leads.Lead, text string) error {
	if s.messenger == nil {
		return nil
	}
	if _, err := s.messenger.SendSMS(ctx, lead.CloseID, "", lead.Phone, text); err != nil {
		return fmt.Errorf("send appointment sms: %w", err)
	}
	return nil
}

// toExchanges pairs each outbound message with the inbound reaction that
// followed it.
func toExchanges(history []conversation.Message) []learning.Exchange {
	var exchanges []learning.Exchange
	total := len(history)
	for i := 0; i < total-1; i++ {
		if history[i].Direction != conversation.DirectionOutbound ||
			history[i+1].Direction != conversation.DirectionInbound {
			continue
		}

		trigger := ""
		if i > 0 && history[i-1].Direction == conversation.DirectionInbound {
			trigger = history[i-1].Content
		}

		exchanges = append(exchanges, learning.Exchange{
			Trigger:  trigger,
			Response: history[i].Content,
			Reaction: history[i+1].Content,
			Index:    i,
			Total:    total,
		})
	}
	return exchanges
}
