package learning

import (
	"context"
	"strings"

	"smsbot_backend/platform/logger"
)

// Effectiveness buckets for a lead's reaction to a bot message.
type Effectiveness string

const (
	EffectHigh   Effectiveness = "high"
	EffectMedium Effectiveness = "medium"
	EffectLow    Effectiveness = "low"
)

var positiveIndicators = []string{
	"yes", "sounds good", "interested", "when", "schedule", "time", "available",
	"tell me more", "how much", "what are", "that works", "perfect", "great",
	"ok", "sure", "thank you", "thanks", "appreciate",
}

var negativeIndicators = []string{
	"no thanks", "not interested", "remove me", "stop", "too expensive",
	"can't afford", "not now", "busy", "maybe later", "not sure",
}

// AssessReaction scores the lead's reply to a bot message.
func AssessReaction(reaction string) Effectiveness {
	lower := strings.ToLower(reaction)

	var positive, negative int
	for _, indicator := range positiveIndicators {
		if strings.Contains(lower, indicator) {
			positive++
		}
	}
	for _, indicator := range negativeIndicators {
		if strings.Contains(lower, indicator) {
			negative++
		}
	}

	switch {
	case positive > negative && positive > 0:
		return EffectHigh
	case negative > positive:
		return EffectLow
	default:
		return EffectMedium
	}
}

// ClassifyStage buckets a bot message for pattern grouping. Coarser than
// the dialogue stages: learned patterns generalize across similar turns.
func ClassifyStage(botMessage string, index, total int) string {
	lower := strings.ToLower(botMessage)

	if index == 0 {
		return "opening"
	}
	if strings.Contains(lower, "schedule") || strings.Contains(lower, "available") ||
		strings.Contains(lower, "appointment") || strings.Contains(lower, "call") {
		return "appointment_setting"
	}
	if strings.Contains(lower, "qualify") || strings.Contains(lower, "coverage") ||
		strings.Contains(lower, "spouse") || strings.Contains(lower, "policy") {
		return "qualification"
	}
	if total > 0 && float64(index) > float64(total)*0.7 {
		return "closing"
	}
	return "objection"
}

// Exchange is one outbound bot message paired with the lead's reaction.
type Exchange struct {
	Trigger  string // lead message that preceded the bot message, if any
	Response string // the bot message
	Reaction string // the lead's reply to it
	Index    int
	Total    int
}

// Service records observed exchanges and serves learned responses.
type Service struct {
	repo *Repository
	log  *logger.Logger
}

// NewService creates the learning service.
func NewService(repo *Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Ingest records a batch of exchanges from one conversation for a lead
// of the given age bucket.
func (s *Service) Ingest(ctx context.Context, leadAge string, exchanges []Exchange) error {
	for _, ex := range exchanges {
		stage := ClassifyStage(ex.Response, ex.Index, ex.Total)
		success := AssessReaction(ex.Reaction) == EffectHigh

		trigger := strings.TrimSpace(ex.Trigger)
		if trigger == "" {
			trigger = "initial_contact"
		}

		if err := s.repo.Record(ctx, leadAge, stage, trigger, ex.Response, success); err != nil {
			s.log.DatabaseError("record_pattern", err)
			return err
		}
	}
	return nil
}

// BestResponse returns the top learned response for a lead age and
// stage, or empty when nothing qualifies.
func (s *Service) BestResponse(ctx context.Context, leadAge, stage string) (string, error) {
	pattern, err := s.repo.Best(ctx, leadAge, stage)
	if err != nil {
		if err == ErrNoPattern {
			return "", nil
		}
		return "", err
	}

	if err := s.repo.MarkUsed(ctx, pattern.ID); err != nil {
		s.log.DatabaseError("mark_pattern_used", err)
	}
	return pattern.ResponseText, nil
}
