package sms

import (
	"testing"

	"smsbot_backend/internal/conversation"
)

func TestToExchangesPairsOutboundWithReaction(t *testing.T) {
	history := []conversation.Message{
		{Direction: conversation.DirectionInbound, Content: "tell me about coverage"},
		{Direction: conversation.DirectionOutbound, Content: "happy to, quick question first"},
		{Direction: conversation.DirectionInbound, Content: "go ahead"},
		{Direction: conversation.DirectionOutbound, Content: "what works, morning or evening?"},
	}

	exchanges := toExchanges(history)

	if len(exchanges) != 1 {
		t.Fatalf("expected 1 exchange, got %d", len(exchanges))
	}
	ex := exchanges[0]
	if ex.Trigger != "tell me about coverage" {
		t.Fatalf("unexpected trigger %q", ex.Trigger)
	}
	if ex.Response != "happy to, quick question first" || ex.Reaction != "go ahead" {
		t.Fatalf("unexpected pairing: %+v", ex)
	}
	if ex.Total != len(history) {
		t.Fatalf("expected total %d, got %d", len(history), ex.Total)
	}
}

func TestToExchangesEmptyHistory(t *testing.T) {
	if got := toExchanges(nil); len(got) != 0 {
		t.Fatalf("expected no exchanges, got %d", len(got))
	}
}
