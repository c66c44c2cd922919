// Package sms runs the conversation pipeline for inbound text messages:
// lead resolution, persona and stage classification, reply generation, and
// outbound delivery through Close.
package sms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smsbot_backend/internal/bot"
	"smsbot_backend/internal/conversation"
	"smsbot_backend/internal/leads"
	"smsbot_backend/internal/nurture"
	"smsbot_backend/internal/responder"
	"smsbot_backend/internal/webhook"
	"smsbot_backend/platform/ai/anthropic"
	"smsbot_backend/platform/logger"

	"github.com/google/uuid"
)

// historyDepth bounds how much transcript is loaded per turn.
const historyDepth = 50

// BotToggle reads the persisted kill switch.
type BotToggle interface {
	GetStatus(ctx context.Context) (bot.Status, error)
}

// Messenger delivers outbound SMS. Implemented by the Close client.
type Messenger interface {
	SendSMS(ctx context.Context, leadID, localPhone, remotePhone, text string) (string, error)
}

// LeadResolver maps webhook lead references onto local lead rows.
type LeadResolver interface {
	GetOrCreate(ctx context.Context, closeID, fallbackPhone string) (leads.Lead, error)
}

// ConversationStore persists conversation threads and their stage.
type ConversationStore interface {
	GetOrCreateActive(ctx context.Context, leadID uuid.UUID, botType string) (conversation.Conversation, error)
	UpdateStage(ctx context.Context, id uuid.UUID, stage, persona string) error
}

// MessageStore persists the SMS transcript.
type MessageStore interface {
	InsertInbound(ctx context.Context, conversationID uuid.UUID, content, closeActivityID string, meta conversation.Meta) (conversation.Message, error)
	InsertOutbound(ctx context.Context, conversationID uuid.UUID, content string, tokens int, meta conversation.Meta) (conversation.Message, error)
	SetCloseActivityID(ctx context.Context, messageID uuid.UUID, activityID string) error
	ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]conversation.Message, error)
	LastOutbound(ctx context.Context, conversationID uuid.UUID) (*conversation.Message, error)
}

// Booker runs the appointment sub-flow.
type Booker interface {
	Handle(ctx context.Context, conv conversation.Conversation, lead leads.Lead, userMessage string) (string, error)
}

// Processor handles one inbound SMS end to end.
type Processor struct {
	toggle    BotToggle
	leads     LeadResolver
	convs     ConversationStore
	msgs      MessageStore
	booking   Booker
	chain     *responder.Chain
	messenger Messenger
	log       *logger.Logger
	now       func() time.Time
}

// NewProcessor wires the pipeline.
func NewProcessor(
	toggle BotToggle,
	leadSvc LeadResolver,
	convs ConversationStore,
	msgs MessageStore,
	bookingSvc Booker,
	chain *responder.Chain,
	messenger Messenger,
	log *logger.Logger,
) *Processor {
	return &Processor{
		toggle:    toggle,
		leads:     leadSvc,
		convs:     convs,
		msgs:      msgs,
		booking:   bookingSvc,
		chain:     chain,
		messenger: messenger,
		log:       log,
		now:       time.Now,
	}
}

// ProcessInboundSMS runs the pipeline for one stored Close webhook event.
// The inbound message is persisted first; a duplicate activity id makes the
// whole job a no-op. The reply is persisted before the send so a delivery
// failure never loses the transcript.
func (p *Processor) ProcessInboundSMS(ctx context.Context, payload webhook.ClosePayload) error {
	status, err := p.toggle.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("check bot status: %w", err)
	}
	if !status.Enabled {
		p.log.Info("bot disabled, skipping inbound sms",
			"close_lead_id", payload.Event.Data.LeadID)
		return nil
	}

	data := payload.Event.Data
	lead, err := p.leads.GetOrCreate(ctx, data.LeadID, data.RemotePhone)
	if err != nil {
		return fmt.Errorf("resolve lead: %w", err)
	}

	log := p.log.WithLeadID(lead.ID.String())

	conv, err := p.convs.GetOrCreateActive(ctx, lead.ID, conversation.BotTypeSales)
	if err != nil {
		return fmt.Errorf("resolve conversation: %w", err)
	}

	inboundMeta := conversation.Meta{
		LocalPhone:  data.LocalPhone,
		RemotePhone: data.RemotePhone,
	}
	if _, err := p.msgs.InsertInbound(ctx, conv.ID, data.Text, data.ID, inboundMeta); err != nil {
		if errors.Is(err, conversation.ErrDuplicateMessage) {
			log.Info("duplicate inbound sms, skipping", "close_activity_id", data.ID)
			return nil
		}
		return fmt.Errorf("store inbound message: %w", err)
	}

	history, err := p.msgs.ListRecent(ctx, conv.ID, historyDepth)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	turns := toTurns(history)

	persona := nurture.ClassifyPersona(data.Text)
	stage := nurture.ResolveStage(nurture.ParseStage(conv.Stage), turns)

	reply, nextStage, err := p.generateReply(ctx, conv, lead, stage, persona, data.Text, turns, history)
	if err != nil {
		return err
	}

	if reply.Text == "" {
		log.Info("no reply generated, sending nothing", "stage", string(nextStage))
		return p.convs.UpdateStage(ctx, conv.ID, string(nextStage), string(persona))
	}

	if p.messenger == nil {
		log.Warn("close client not configured, reply not sent", "stage", string(nextStage))
		return p.convs.UpdateStage(ctx, conv.ID, string(nextStage), string(persona))
	}

	outboundMeta := conversation.Meta{
		Source:      reply.Source,
		Model:       reply.Model,
		StopReason:  reply.StopReason,
		LocalPhone:  data.LocalPhone,
		RemotePhone: data.RemotePhone,
	}
	msg, err := p.msgs.InsertOutbound(ctx, conv.ID, reply.Text, reply.Tokens, outboundMeta)
	if err != nil {
		return fmt.Errorf("store outbound message: %w", err)
	}

	activityID, err := p.messenger.SendSMS(ctx, data.LeadID, data.LocalPhone, data.RemotePhone, reply.Text)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	if err := p.msgs.SetCloseActivityID(ctx, msg.ID, activityID); err != nil {
		log.DatabaseError("update_messages", err)
	}

	if err := p.convs.UpdateStage(ctx, conv.ID, string(nextStage), string(persona)); err != nil {
		return fmt.Errorf("update conversation stage: %w", err)
	}

	log.Info("reply sent",
		"stage", string(nextStage),
		"persona", string(persona),
		"close_activity_id", activityID)
	return nil
}

// generateReply picks between the scripted dialogue, the booking sub-flow,
// and the learned-pattern/LLM fallback chain.
func (p *Processor) generateReply(
	ctx context.Context,
	conv conversation.Conversation,
	lead leads.Lead,
	stage nurture.Stage,
	persona nurture.Persona,
	userMessage string,
	turns []nurture.Turn,
	history []conversation.Message,
) (responder.Reply, nurture.Stage, error) {
	info := nurture.LeadInfo{
		FirstName: lead.FirstName,
		Email:     lead.Email,
		State:     lead.State,
	}

	scripted := nurture.Respond(stage, info, userMessage, turns)
	reply := responder.Reply{Text: scripted.Response, Source: "script"}
	nextStage := scripted.NextStage

	// The booking flow takes over only when this turn actually landed on
	// the appointment stage. An objection raised there keeps the stage
	// pointer in NextStage, and its rebuttal must go out untouched.
	if scripted.Stage == nurture.StageAppointmentBooking ||
		(persona == nurture.PersonaAppointment && scripted.Stage != nurture.StageObjectionHandling) {
		booked, err := p.booking.Handle(ctx, conv, lead, userMessage)
		if err != nil {
			// Booking trouble falls back to the scripted reply so the
			// lead is never left hanging.
			p.log.Warn("booking flow failed, using scripted reply", "error", err.Error())
		} else {
			reply = responder.Reply{Text: booked, Source: "booking"}
		}
		nextStage = nurture.StageAppointmentBooking
	}

	lastReply := ""
	if last, err := p.msgs.LastOutbound(ctx, conv.ID); err == nil && last != nil {
		lastReply = last.Content
	}

	// The scripted machine never repeats itself; when it would, hand off
	// to the learned-pattern/LLM chain instead.
	if reply.Text == "" || reply.Text == lastReply {
		req := responder.Request{
			Lead:        lead,
			LeadAge:     string(leads.AgeOf(lead, p.now())),
			Stage:       string(stage),
			Persona:     string(persona),
			UserMessage: userMessage,
			History:     toLLMHistory(history, userMessage),
		}
		reply = p.chain.Respond(ctx, req, lastReply)
	}

	return reply, nextStage, nil
}

func toTurns(history []conversation.Message) []nurture.Turn {
	turns := make([]nurture.Turn, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Direction == conversation.DirectionOutbound {
			role = "assistant"
		}
		turns = append(turns, nurture.Turn{Role: role, Content: m.Content})
	}
	return turns
}

// toLLMHistory converts the transcript for the LLM strategy, which appends
// the current user message itself.
func toLLMHistory(history []conversation.Message, userMessage string) []anthropic.Message {
	if n := len(history); n > 0 &&
		history[n-1].Direction == conversation.DirectionInbound &&
		history[n-1].Content == userMessage {
		history = history[:n-1]
	}

	msgs := make([]anthropic.Message, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Direction == conversation.DirectionOutbound {
			role = "assistant"
		}
		msgs = append(msgs, anthropic.Message{Role: role, Content: m.Content})
	}
	return msgs
}
