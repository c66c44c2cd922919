// Package nurture implements the staged sales dialogue: a deterministic
// state machine that walks a lead from first contact to appointment
// booking, with an objection-handling overlay that can preempt any stage.
package nurture

import "strings"

// Stage identifies where a conversation sits in the sales flow. Stages
// are persisted on the conversation and only move forward.
type Stage string

const (
	StageOpening            Stage = "opening"
	StagePermission         Stage = "permission"
	StageFirstVsReplacement Stage = "first_vs_replacement"
	StageSpouseCoverage     Stage = "spouse_coverage"
	StageLicenseConfirm     Stage = "license_confirm"
	StageAppointmentBooking Stage = "appointment_booking"
	StageObjectionHandling  Stage = "objection_handling"
)

// stageRank orders the progressive stages. StageObjectionHandling is an
// overlay, not a step in the progression, and has no rank.
var stageRank = map[Stage]int{
	StageOpening:            0,
	StagePermission:         1,
	StageFirstVsReplacement: 2,
	StageSpouseCoverage:     3,
	StageLicenseConfirm:     4,
	StageAppointmentBooking: 5,
}

// ParseStage returns the stage for a stored value, defaulting to opening.
func ParseStage(value string) Stage {
	s := Stage(value)
	if _, ok := stageRank[s]; ok {
		return s
	}
	if s == StageObjectionHandling {
		return s
	}
	return StageOpening
}

// maxStage returns the further-along of two progressive stages.
func maxStage(a, b Stage) Stage {
	if stageRank[b] > stageRank[a] {
		return b
	}
	return a
}

// Turn is one message in the conversation history.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// ResolveStage determines the effective stage from the persisted value
// and the conversation history. The history scan recovers state for
// conversations that predate stage persistence; the resolved stage never
// moves backwards from what was persisted.
func ResolveStage(persisted Stage, history []Turn) Stage {
	if len(history) == 0 {
		return StageOpening
	}

	if persisted == StageObjectionHandling {
		persisted = StageOpening
	}

	recovered := recoverStageFromHistory(history)
	return maxStage(persisted, recovered)
}

func recoverStageFromHistory(history []Turn) Stage {
	var botContent strings.Builder
	for _, turn := range history {
		if strings.EqualFold(turn.Role, "assistant") {
			botContent.WriteString(strings.ToLower(turn.Content))
			botContent.WriteString(" ")
		}
	}
	content := botContent.String()

	// Phrase markers: each stage's question leaves a recognizable trace
	// in the bot's own messages.
	switch {
	case strings.Contains(content, "available times") ||
		strings.Contains(content, "call to go over") ||
		strings.Contains(content, "schedule a") ||
		strings.Contains(content, "set up a"):
		return StageAppointmentBooking
	case strings.Contains(content, "received my") && strings.Contains(content, "insurance license"):
		return StageLicenseConfirm
	case strings.Contains(content, "just yourself or") ||
		strings.Contains(content, "spouse") ||
		strings.Contains(content, "coverage for both"):
		return StageSpouseCoverage
	case strings.Contains(content, "first policy or") ||
		strings.Contains(content, "replace coverage"):
		return StageFirstVsReplacement
	case strings.Contains(content, "couple questions") ||
		strings.Contains(content, "do you mind if i ask") ||
		strings.Contains(content, "looking forward to speaking") ||
		strings.Contains(content, "assigned to go over"):
		return StagePermission
	}

	// Message-count floor: long conversations never fall back to early
	// stages even when no phrase matched.
	switch n := len(history); {
	case n >= 8:
		return StageAppointmentBooking
	case n >= 6:
		return StageLicenseConfirm
	case n >= 4:
		return StageSpouseCoverage
	case n >= 2:
		return StageFirstVsReplacement
	}

	return StageOpening
}

// introSent reports whether the bot's introduction already went out in
// any prior turn.
func introSent(history []Turn) bool {
	for _, turn := range history {
		if !strings.EqualFold(turn.Role, "assistant") {
			continue
		}
		content := strings.ToLower(turn.Content)
		if strings.Contains(content, "looking forward to speaking") ||
			strings.Contains(content, "assigned to go over") ||
			strings.Contains(content, "i'm nick neessen") {
			return true
		}
	}
	return false
}
