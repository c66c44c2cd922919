package sms

import (
	"testing"

	"smsbot_backend/internal/conversation"
)

func TestToTurnsMapsDirections(t *testing.T) {
	history := []conversation.Message{
		{Direction: conversation.DirectionInbound, Content: "hi"},
		{Direction: conversation.DirectionOutbound, Content: "hello!"},
	}

	turns := toTurns(history)

	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != "user" || turns[1].Role != "assistant" {
		t.Fatalf("unexpected roles: %q, %q", turns[0].Role, turns[1].Role)
	}
}

func TestToLLMHistoryDropsCurrentMessage(t *testing.T) {
	// The inbound message was already persisted before reply generation,
	// and the LLM strategy appends it itself.
	history := []conversation.Message{
		{Direction: conversation.DirectionOutbound, Content: "anything I can help with?"},
		{Direction: conversation.DirectionInbound, Content: "how much is it"},
	}

	msgs := toLLMHistory(history, "how much is it")

	if len(msgs) != 1 {
		t.Fatalf("expected the trailing inbound to be dropped, got %d messages", len(msgs))
	}
	if msgs[0].Role != "assistant" {
		t.Fatalf("expected assistant turn, got %q", msgs[0].Role)
	}
}

func TestToLLMHistoryKeepsUnrelatedTail(t *testing.T) {
	history := []conversation.Message{
		{Direction: conversation.DirectionInbound, Content: "an older message"},
	}

	msgs := toLLMHistory(history, "a new message")

	if len(msgs) != 1 {
		t.Fatalf("expected history to be kept, got %d messages", len(msgs))
	}
}
