package sms

import (
	"context"
	"errors"
	"strings"
	"testing"

	"smsbot_backend/internal/bot"
	"smsbot_backend/internal/conversation"
	"smsbot_backend/internal/leads"
	"smsbot_backend/internal/responder"
	"smsbot_backend/internal/webhook"
	"smsbot_backend/platform/logger"

	"github.com/google/uuid"
)

type stubToggle struct{ enabled bool }

func (s stubToggle) GetStatus(ctx context.Context) (bot.Status, error) {
	return bot.Status{Enabled: s.enabled}, nil
}

type stubLeads struct{ lead leads.Lead }

func (s *stubLeads) GetOrCreate(ctx context.Context, closeID, fallbackPhone string) (leads.Lead, error) {
	return s.lead, nil
}

type stubConvs struct {
	conv       conversation.Conversation
	stage      string
	persona    string
	stageCalls int
}

func (s *stubConvs) GetOrCreateActive(ctx context.Context, leadID uuid.UUID, botType string) (conversation.Conversation, error) {
	return s.conv, nil
}

func (s *stubConvs) UpdateStage(ctx context.Context, id uuid.UUID, stage, persona string) error {
	s.stage = stage
	s.persona = persona
	s.stageCalls++
	return nil
}

type stubMessages struct {
	msgs []conversation.Message
	seen map[string]bool
	ops  *[]string
}

func (s *stubMessages) record(op string) {
	if s.ops != nil {
		*s.ops = append(*s.ops, op)
	}
}

func (s *stubMessages) InsertInbound(ctx context.Context, conversationID uuid.UUID, content, closeActivityID string, meta conversation.Meta) (conversation.Message, error) {
	s.record("insert_inbound")
	if closeActivityID != "" {
		if s.seen == nil {
			s.seen = make(map[string]bool)
		}
		if s.seen[closeActivityID] {
			return conversation.Message{}, conversation.ErrDuplicateMessage
		}
		s.seen[closeActivityID] = true
	}
	msg := conversation.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Direction:      conversation.DirectionInbound,
		Content:        content,
		Meta:           meta,
	}
	s.msgs = append(s.msgs, msg)
	return msg, nil
}

func (s *stubMessages) InsertOutbound(ctx context.Context, conversationID uuid.UUID, content string, tokens int, meta conversation.Meta) (conversation.Message, error) {
	s.record("insert_outbound")
	msg := conversation.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Direction:      conversation.DirectionOutbound,
		Content:        content,
		Tokens:         tokens,
		Meta:           meta,
	}
	s.msgs = append(s.msgs, msg)
	return msg, nil
}

func (s *stubMessages) SetCloseActivityID(ctx context.Context, messageID uuid.UUID, activityID string) error {
	s.record("set_activity")
	return nil
}

func (s *stubMessages) ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]conversation.Message, error) {
	return s.msgs, nil
}

func (s *stubMessages) LastOutbound(ctx context.Context, conversationID uuid.UUID) (*conversation.Message, error) {
	for i := len(s.msgs) - 1; i >= 0; i-- {
		if s.msgs[i].Direction == conversation.DirectionOutbound {
			return &s.msgs[i], nil
		}
	}
	return nil, nil
}

func (s *stubMessages) outboundCount() int {
	count := 0
	for _, m := range s.msgs {
		if m.Direction == conversation.DirectionOutbound {
			count++
		}
	}
	return count
}

type stubBooker struct {
	reply string
	calls int
}

func (s *stubBooker) Handle(ctx context.Context, conv conversation.Conversation, lead leads.Lead, userMessage string) (string, error) {
	s.calls++
	return s.reply, nil
}

type stubMessenger struct {
	ops  *[]string
	sent []string
	err  error
}

func (s *stubMessenger) SendSMS(ctx context.Context, leadID, localPhone, remotePhone, text string) (string, error) {
	if s.ops != nil {
		*s.ops = append(*s.ops, "send_sms")
	}
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, text)
	return "acti_out_1", nil
}

func newTestProcessor(lead leads.Lead, convs *stubConvs, msgs *stubMessages, booker *stubBooker, messenger *stubMessenger) *Processor {
	log := logger.New("test")
	chain := responder.NewChain(log)
	return NewProcessor(stubToggle{enabled: true}, &stubLeads{lead: lead}, convs, msgs, booker, chain, messenger, log)
}

func inboundPayload(activityID, text string) webhook.ClosePayload {
	return webhook.ClosePayload{Event: webhook.CloseEvent{
		ID:         "ev_1",
		ObjectType: webhook.CloseObjectTypeSMS,
		Action:     webhook.CloseActionCreated,
		Data: webhook.CloseEventData{
			ID:          activityID,
			Text:        text,
			LeadID:      "lead_close_1",
			LocalPhone:  "+15025550100",
			RemotePhone: "+15025550134",
			Direction:   webhook.CloseDirectionInbound,
		},
	}}
}

func TestObjectionAtAppointmentStageOutranksBooking(t *testing.T) {
	lead := leads.Lead{ID: uuid.New(), FirstName: "Sam", Email: "sam@example.com", State: "Kentucky"}
	convs := &stubConvs{conv: conversation.Conversation{ID: uuid.New(), Stage: "appointment_booking"}}
	msgs := &stubMessages{}
	booker := &stubBooker{reply: "1. Monday, Jan 5 at 3:00 PM"}
	messenger := &stubMessenger{}
	p := newTestProcessor(lead, convs, msgs, booker, messenger)

	if err := p.ProcessInboundSMS(context.Background(), inboundPayload("acti_1", "not interested")); err != nil {
		t.Fatalf("ProcessInboundSMS: %v", err)
	}

	if booker.calls != 0 {
		t.Fatalf("expected the booking flow to stay out of an objection turn, ran %d times", booker.calls)
	}
	if len(messenger.sent) != 1 {
		t.Fatalf("expected one outbound SMS, got %d", len(messenger.sent))
	}
	if !strings.Contains(messenger.sent[0], "what's making you feel that way") {
		t.Fatalf("expected the objection rebuttal, got %q", messenger.sent[0])
	}
	if convs.stage != "appointment_booking" {
		t.Fatalf("expected the appointment stage kept for the next cooperative reply, got %q", convs.stage)
	}
}

func TestCooperativeReplyAtAppointmentStageBooks(t *testing.T) {
	lead := leads.Lead{ID: uuid.New(), FirstName: "Sam", Email: "sam@example.com"}
	convs := &stubConvs{conv: conversation.Conversation{ID: uuid.New(), Stage: "appointment_booking"}}
	msgs := &stubMessages{}
	booker := &stubBooker{reply: "1. Monday, Jan 5 at 3:00 PM"}
	messenger := &stubMessenger{}
	p := newTestProcessor(lead, convs, msgs, booker, messenger)

	if err := p.ProcessInboundSMS(context.Background(), inboundPayload("acti_2", "sounds good, what do you have?")); err != nil {
		t.Fatalf("ProcessInboundSMS: %v", err)
	}

	if booker.calls != 1 {
		t.Fatalf("expected the booking flow to handle the turn, ran %d times", booker.calls)
	}
	if len(messenger.sent) != 1 || messenger.sent[0] != booker.reply {
		t.Fatalf("expected the booking reply sent, got %v", messenger.sent)
	}
}

func TestDuplicateActivityProcessedOnce(t *testing.T) {
	lead := leads.Lead{ID: uuid.New(), FirstName: "Sam", Email: "sam@example.com", State: "Kentucky"}
	convs := &stubConvs{conv: conversation.Conversation{ID: uuid.New()}}
	msgs := &stubMessages{}
	messenger := &stubMessenger{}
	p := newTestProcessor(lead, convs, msgs, &stubBooker{}, messenger)

	payload := inboundPayload("acti_7", "hello")
	if err := p.ProcessInboundSMS(context.Background(), payload); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := p.ProcessInboundSMS(context.Background(), payload); err != nil {
		t.Fatalf("expected a re-delivery to be a no-op, got %v", err)
	}

	if len(messenger.sent) != 1 {
		t.Fatalf("expected exactly one send across both deliveries, got %d", len(messenger.sent))
	}
	if got := msgs.outboundCount(); got != 1 {
		t.Fatalf("expected exactly one stored reply, got %d", got)
	}
}

func TestReplyPersistedBeforeSend(t *testing.T) {
	var ops []string
	lead := leads.Lead{ID: uuid.New(), FirstName: "Sam", Email: "sam@example.com", State: "Kentucky"}
	convs := &stubConvs{conv: conversation.Conversation{ID: uuid.New()}}
	msgs := &stubMessages{ops: &ops}
	messenger := &stubMessenger{ops: &ops, err: errors.New("close is down")}
	p := newTestProcessor(lead, convs, msgs, &stubBooker{}, messenger)

	err := p.ProcessInboundSMS(context.Background(), inboundPayload("acti_9", "hello"))
	if err == nil {
		t.Fatal("expected the failed send to surface")
	}

	if got := msgs.outboundCount(); got != 1 {
		t.Fatalf("expected the reply stored despite the failed send, got %d outbound rows", got)
	}
	want := []string{"insert_inbound", "insert_outbound", "send_sms"}
	if len(ops) != len(want) {
		t.Fatalf("unexpected operation sequence %v", ops)
	}
	for i, op := range want {
		if ops[i] != op {
			t.Fatalf("expected %v, got %v", want, ops)
		}
	}
	if convs.stageCalls != 0 {
		t.Fatalf("expected no stage update after a failed send, got %d", convs.stageCalls)
	}
}

func TestOutboundMessageCarriesProvenance(t *testing.T) {
	lead := leads.Lead{ID: uuid.New(), FirstName: "Sam", Email: "sam@example.com", State: "Kentucky"}
	convs := &stubConvs{conv: conversation.Conversation{ID: uuid.New()}}
	msgs := &stubMessages{}
	messenger := &stubMessenger{}
	p := newTestProcessor(lead, convs, msgs, &stubBooker{}, messenger)

	if err := p.ProcessInboundSMS(context.Background(), inboundPayload("acti_11", "hello")); err != nil {
		t.Fatalf("ProcessInboundSMS: %v", err)
	}

	out, err := msgs.LastOutbound(context.Background(), convs.conv.ID)
	if err != nil || out == nil {
		t.Fatalf("expected a stored reply, got %v, %v", out, err)
	}
	if out.Meta.Source != "script" {
		t.Fatalf("expected the scripted source recorded, got %q", out.Meta.Source)
	}
	if out.Meta.RemotePhone != "+15025550134" {
		t.Fatalf("expected the remote phone recorded, got %q", out.Meta.RemotePhone)
	}
}
