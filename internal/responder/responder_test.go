package responder

import (
	"context"
	"errors"
	"testing"

	"smsbot_backend/platform/logger"
)

type stubStrategy struct {
	name  string
	reply Reply
	err   error
	calls int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Respond(ctx context.Context, req Request) (Reply, error) {
	s.calls++
	return s.reply, s.err
}

func TestChainReturnsFirstNonEmptyReply(t *testing.T) {
	first := &stubStrategy{name: "first"}
	second := &stubStrategy{name: "second", reply: Reply{Text: "hello there"}}
	third := &stubStrategy{name: "third", reply: Reply{Text: "unused"}}

	chain := NewChain(logger.New("test"), first, second, third)

	got := chain.Respond(context.Background(), Request{}, "")
	if got.Text != "hello there" {
		t.Fatalf("expected second strategy's reply, got %q", got.Text)
	}
	if got.Source != "second" {
		t.Fatalf("expected the winning strategy as source, got %q", got.Source)
	}
	if third.calls != 0 {
		t.Fatalf("expected the chain to stop after a hit, third ran %d times", third.calls)
	}
}

func TestChainSkipsFailedStrategy(t *testing.T) {
	failing := &stubStrategy{name: "failing", err: errors.New("boom")}
	fallback := &stubStrategy{name: "fallback", reply: Reply{Text: "recovered"}}

	chain := NewChain(logger.New("test"), failing, fallback)

	got := chain.Respond(context.Background(), Request{}, "")
	if got.Text != "recovered" {
		t.Fatalf("expected fallback reply, got %q", got.Text)
	}
}

func TestChainDiscardsRepeatOfLastReply(t *testing.T) {
	repeat := &stubStrategy{name: "repeat", reply: Reply{Text: "same thing"}}
	fresh := &stubStrategy{name: "fresh", reply: Reply{Text: "something new"}}

	chain := NewChain(logger.New("test"), repeat, fresh)

	got := chain.Respond(context.Background(), Request{}, "same thing")
	if got.Text != "something new" {
		t.Fatalf("expected the duplicate to be skipped, got %q", got.Text)
	}
}

func TestChainEmptyWhenAllPass(t *testing.T) {
	chain := NewChain(logger.New("test"),
		&stubStrategy{name: "a"},
		&stubStrategy{name: "b", err: errors.New("down")},
	)

	if got := chain.Respond(context.Background(), Request{}, ""); got.Text != "" {
		t.Fatalf("expected empty reply, got %q", got.Text)
	}
}

func TestChainKeepsStrategyProvidedProvenance(t *testing.T) {
	model := &stubStrategy{name: "llm", reply: Reply{
		Text:       "generated answer",
		Model:      "claude-sonnet-4-20250514",
		StopReason: "end_turn",
		Tokens:     321,
	}}

	chain := NewChain(logger.New("test"), model)

	got := chain.Respond(context.Background(), Request{}, "")
	if got.Source != "llm" {
		t.Fatalf("expected source %q, got %q", "llm", got.Source)
	}
	if got.Model != "claude-sonnet-4-20250514" || got.Tokens != 321 || got.StopReason != "end_turn" {
		t.Fatalf("expected completion provenance to survive the chain, got %+v", got)
	}
}

func TestLLMStrategyPassesWithoutClient(t *testing.T) {
	strategy := NewLLMStrategy(nil, nil)

	reply, err := strategy.Respond(context.Background(), Request{UserMessage: "hi"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if reply.Text != "" {
		t.Fatalf("expected empty reply without a client, got %q", reply.Text)
	}
}
