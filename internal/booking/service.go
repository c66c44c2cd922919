package booking

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"smsbot_backend/internal/calendly"
	"smsbot_backend/internal/conversation"
	"smsbot_backend/internal/leads"
	"smsbot_backend/platform/events"
	"smsbot_backend/platform/logger"

	"github.com/google/uuid"
)

// Calendar is the slice of the Calendly client the booking flow uses.
type Calendar interface {
	EventTypeURI() string
	AvailableTimes(ctx context.Context, start, end time.Time) ([]calendly.AvailableTime, error)
	SchedulingLink(ctx context.Context) (string, error)
}

// EmailBackfiller pushes a collected email to the lead store and CRM.
type EmailBackfiller interface {
	BackfillEmail(ctx context.Context, lead leads.Lead, email string) error
}

// AppointmentStore persists booked appointments.
type AppointmentStore interface {
	Create(ctx context.Context, appt Appointment) (Appointment, error)
}

// ContextStore persists the conversation's booking scratch state.
type ContextStore interface {
	UpdateContext(ctx context.Context, id uuid.UUID, convContext conversation.Context) error
}

var (
	slotChoiceRe = regexp.MustCompile(`^([1-9])$`)
	emailRe      = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
)

// Service drives the appointment booking conversation.
type Service struct {
	repo     AppointmentStore
	convRepo ContextStore
	emails   EmailBackfiller
	calendar Calendar
	bus      events.Bus
	rules    SlotRules
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates the booking service. calendar may be nil; the flow
// then offers locally generated slots and books without a Calendly link.
func NewService(
	repo AppointmentStore,
	convRepo ContextStore,
	emails EmailBackfiller,
	calendar Calendar,
	bus events.Bus,
	rules SlotRules,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:     repo,
		convRepo: convRepo,
		emails:   emails,
		calendar: calendar,
		bus:      bus,
		rules:    rules,
		log:      log,
		now:      time.Now,
	}
}

// Handle processes one booking-flow message and returns the reply text.
// The conversation context is updated in place and persisted.
func (s *Service) Handle(ctx context.Context, conv conversation.Conversation, lead leads.Lead, userMessage string) (string, error) {
	trimmed := strings.TrimSpace(userMessage)

	if m := slotChoiceRe.FindStringSubmatch(trimmed); m != nil {
		choice, _ := strconv.Atoi(m[1])
		return s.handleSlotChoice(ctx, conv, lead, choice)
	}

	if conv.Context.AwaitingEmail {
		if email := emailRe.FindString(trimmed); email != "" {
			return s.handleEmailReply(ctx, conv, lead, email)
		}
		return "I didn't catch an email address there. Could you send it again so I can get your confirmation out?", nil
	}

	if lead.Email == "" {
		conv.Context.AwaitingEmail = true
		if err := s.convRepo.UpdateContext(ctx, conv.ID, conv.Context); err != nil {
			return "", err
		}
		return "I'd be happy to book that appointment for you! I'll just need your email address to send you the confirmation. What's your email?", nil
	}

	return s.showAvailability(ctx, conv, lead, userMessage)
}

func (s *Service) showAvailability(ctx context.Context, conv conversation.Conversation, lead leads.Lead, userMessage string) (string, error) {
	now := s.now()
	prefs := ParsePreferences(userMessage)
	slots := BuildSlots(now, prefs, s.rules)

	// Locally generated slots are only offered when Calendly can actually
	// book them. An availability outage degrades to the local calendar.
	if s.calendar != nil && len(slots) > 0 {
		window := slots[len(slots)-1].Add(time.Hour)
		avail, err := s.calendar.AvailableTimes(ctx, now, window)
		if err != nil {
			s.log.Warn("calendly availability check failed, offering local slots", "error", err.Error())
		} else {
			slots = intersectAvailability(slots, avail)
		}
	}

	if len(slots) == 0 {
		return "I don't have any immediate availability, but let me check my calendar manually. What times work best for you this week?", nil
	}
	conv.Context.OfferedSlots = slots
	conv.Context.LastAvailabilityShown = &now
	if s.calendar != nil {
		conv.Context.EventTypeURI = s.calendar.EventTypeURI()
	}
	if err := s.convRepo.UpdateContext(ctx, conv.ID, conv.Context); err != nil {
		return "", err
	}

	response := FormatSlotList(slots, s.rules.Location)
	response += fmt.Sprintf("\n\nI'll send the confirmation to %s - does that work for you?", lead.Email)
	return response, nil
}

func (s *Service) handleSlotChoice(ctx context.Context, conv conversation.Conversation, lead leads.Lead, choice int) (string, error) {
	offered := conv.Context.OfferedSlots
	if len(offered) == 0 {
		response, err := s.showAvailability(ctx, conv, lead, "")
		if err != nil {
			return "", err
		}
		return "Let me show you my available times first, then you can pick one:\n\n" + response, nil
	}

	if choice > len(offered) {
		return fmt.Sprintf("Please choose a number between 1 and %d. Which time works best for you?", len(offered)), nil
	}

	selected := offered[choice-1]

	if lead.Email == "" {
		conv.Context.AwaitingEmail = true
		conv.Context.PendingSlot = &selected
		if err := s.convRepo.UpdateContext(ctx, conv.ID, conv.Context); err != nil {
			return "", err
		}
		return fmt.Sprintf(
			"Perfect! I'll book %s for you. I just need your email address to send the confirmation.",
			FormatSlot(selected, s.rules.Location),
		), nil
	}

	return s.book(ctx, conv, lead, selected)
}

func (s *Service) handleEmailReply(ctx context.Context, conv conversation.Conversation, lead leads.Lead, email string) (string, error) {
	if err := s.emails.BackfillEmail(ctx, lead, email); err != nil {
		return "", err
	}
	lead.Email = email

	conv.Context.AwaitingEmail = false
	pending := conv.Context.PendingSlot
	conv.Context.PendingSlot = nil

	if pending != nil {
		return s.book(ctx, conv, lead, *pending)
	}

	if err := s.convRepo.UpdateContext(ctx, conv.ID, conv.Context); err != nil {
		return "", err
	}
	return s.showAvailability(ctx, conv, lead, "")
}

func (s *Service) book(ctx context.Context, conv conversation.Conversation, lead leads.Lead, slot time.Time) (string, error) {
	// A Calendly link failure degrades to a manually confirmed booking;
	// the appointment row is the source of truth either way.
	schedulingURL := ""
	if s.calendar != nil {
		link, linkErr := s.calendar.SchedulingLink(ctx)
		if linkErr != nil {
			s.log.Warn("calendly link creation failed, booking confirmed manually",
				"lead_id", lead.ID.String(), "error", linkErr.Error())
		} else {
			schedulingURL = link
		}
	}

	convID := conv.ID
	appt, err := s.repo.Create(ctx, Appointment{
		LeadID:                lead.ID,
		ConversationID:        &convID,
		ScheduledAt:           slot,
		DurationMinutes:       DefaultDurationMinutes,
		CalendlySchedulingURL: schedulingURL,
	})
	if err != nil {
		return "", fmt.Errorf("store appointment: %w", err)
	}

	conv.Context.OfferedSlots = nil
	conv.Context.PendingSlot = nil
	conv.Context.AwaitingEmail = false
	if err := s.convRepo.UpdateContext(ctx, conv.ID, conv.Context); err != nil {
		return "", err
	}

	s.bus.Publish(ctx, AppointmentBooked{
		BaseEvent:     events.NewBaseEvent(),
		AppointmentID: appt.ID,
		LeadID:        lead.ID,
		ScheduledAt:   slot,
		Source:        SourceSMS,
	})

	response := fmt.Sprintf(
		"Perfect! Your appointment is confirmed for %s.\n\nYou'll receive a confirmation email at %s with all the details and calendar invitation.\n\nI look forward to speaking with you!",
		FormatSlot(slot, s.rules.Location), lead.Email,
	)
	if appt.CalendlySchedulingURL != "" {
		response += "\n\nYou can also lock it in on my calendar here: " + appt.CalendlySchedulingURL
	}
	return response, nil
}

// intersectAvailability keeps only the offered slots Calendly reports as
// bookable.
func intersectAvailability(slots []time.Time, avail []calendly.AvailableTime) []time.Time {
	bookable := make(map[int64]struct{}, len(avail))
	for _, a := range avail {
		bookable[a.StartTime.Unix()] = struct{}{}
	}

	var kept []time.Time
	for _, slot := range slots {
		if _, ok := bookable[slot.Unix()]; ok {
			kept = append(kept, slot)
		}
	}
	return kept
}
