package responder

import (
	"context"
	"strings"
	"time"

	"smsbot_backend/internal/leads"
	"smsbot_backend/internal/learning"
	"smsbot_backend/platform/ai/anthropic"
	"smsbot_backend/platform/logger"
)

// Request carries everything a strategy needs to produce a reply.
type Request struct {
	Lead        leads.Lead
	LeadAge     string
	Stage       string
	Persona     string
	UserMessage string
	History     []anthropic.Message
}

// Reply is a generated response plus the provenance the transcript
// records: which strategy produced it and, for model output, the token
// spend and stop reason.
type Reply struct {
	Text       string
	Source     string
	Model      string
	StopReason string
	Tokens     int
}

// Strategy is one way of producing a reply. An empty reply with a nil
// error means "pass" and the chain moves on.
type Strategy interface {
	Name() string
	Respond(ctx context.Context, req Request) (Reply, error)
}

// Chain tries strategies in order and returns the first non-empty reply.
// When every strategy passes or fails, the reply is empty and the caller
// sends nothing - silence beats a broken answer on a sales channel.
type Chain struct {
	strategies []Strategy
	log        *logger.Logger
}

// NewChain builds a responder chain from the given ordered strategies.
func NewChain(log *logger.Logger, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, log: log}
}

// Respond runs the chain. lastReply is the bot's previous outbound
// message; a strategy's candidate identical to it is discarded so the
// bot never repeats itself verbatim.
func (c *Chain) Respond(ctx context.Context, req Request, lastReply string) Reply {
	for _, strategy := range c.strategies {
		reply, err := strategy.Respond(ctx, req)
		if err != nil {
			c.log.Warn("responder strategy failed",
				"strategy", strategy.Name(), "error", err.Error())
			continue
		}
		reply.Text = strings.TrimSpace(reply.Text)
		if reply.Text == "" {
			continue
		}
		if lastReply != "" && reply.Text == lastReply {
			c.log.Info("responder skipped duplicate reply", "strategy", strategy.Name())
			continue
		}
		if reply.Source == "" {
			reply.Source = strategy.Name()
		}
		return reply
	}
	return Reply{}
}

// PatternStrategy serves the highest-scoring learned response for the
// lead's age bucket and conversation stage.
type PatternStrategy struct {
	learning *learning.Service
}

// NewPatternStrategy creates the learned-pattern strategy.
func NewPatternStrategy(svc *learning.Service) *PatternStrategy {
	return &PatternStrategy{learning: svc}
}

func (s *PatternStrategy) Name() string { return "learned-pattern" }

func (s *PatternStrategy) Respond(ctx context.Context, req Request) (Reply, error) {
	text, err := s.learning.BestResponse(ctx, req.LeadAge, req.Stage)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: text}, nil
}

// LLMClient is the completion surface the LLM strategy needs.
type LLMClient interface {
	Name() string
	Complete(ctx context.Context, system string, history []anthropic.Message) (*anthropic.Completion, error)
}

// historyWindow limits how many prior turns go to the model.
const historyWindow = 8

// LLMStrategy renders the stage's prompt template and asks the model.
type LLMStrategy struct {
	templates *TemplateRepository
	client    LLMClient
	now       func() time.Time
}

// NewLLMStrategy creates the LLM strategy. client may be nil when no API
// key is configured; the strategy then always passes.
func NewLLMStrategy(templates *TemplateRepository, client LLMClient) *LLMStrategy {
	return &LLMStrategy{templates: templates, client: client, now: time.Now}
}

func (s *LLMStrategy) Name() string { return "llm" }

func (s *LLMStrategy) Respond(ctx context.Context, req Request) (Reply, error) {
	if s.client == nil {
		return Reply{}, nil
	}

	template, err := s.templates.ActiveForStage(ctx, req.Persona)
	if err != nil {
		if err == ErrTemplateNotFound {
			return Reply{}, nil
		}
		return Reply{}, err
	}

	system := Render(template.Content, Vars{
		LeadName:  strings.TrimSpace(req.Lead.FirstName + " " + req.Lead.LastName),
		LeadEmail: req.Lead.Email,
		LeadPhone: req.Lead.Phone,
		BotType:   req.Persona,
		Now:       s.now(),
	})

	history := req.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	history = append(append([]anthropic.Message(nil), history...), anthropic.Message{
		Role:    "user",
		Content: req.UserMessage,
	})

	completion, err := s.client.Complete(ctx, system, history)
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		Text:       completion.Text,
		Model:      s.client.Name(),
		StopReason: completion.StopReason,
		Tokens:     completion.InputTokens + completion.OutputTokens,
	}, nil
}
