package nurture

import "testing"

func TestClassifyPersonaSchedulingKeywords(t *testing.T) {
	messages := []string{
		"can we schedule a call",
		"what time works for you",
		"I'd like to book an appointment",
		"when can we talk",
		"are you available tomorrow",
	}

	for _, msg := range messages {
		if got := ClassifyPersona(msg); got != PersonaAppointment {
			t.Fatalf("expected appointment for %q, got %q", msg, got)
		}
	}
}

func TestClassifyPersonaSlotSelection(t *testing.T) {
	if got := ClassifyPersona(" 2 "); got != PersonaAppointment {
		t.Fatalf("expected a bare digit to read as slot selection, got %q", got)
	}
	if got := ClassifyPersona("22"); got == PersonaAppointment {
		t.Fatalf("expected multi-digit not to read as slot selection")
	}
}

func TestClassifyPersonaQuotedQuestionIsNotScheduling(t *testing.T) {
	// The bot's own qualifying phrasing echoed back must not trigger
	// the booking flow.
	msg := "you said you wanted to ask you a couple questions, what about"
	if got := ClassifyPersona(msg); got != PersonaObjection {
		t.Fatalf("expected objection, got %q", got)
	}
}

func TestClassifyPersonaDefaultsToObjection(t *testing.T) {
	if got := ClassifyPersona("I already have coverage"); got != PersonaObjection {
		t.Fatalf("expected objection, got %q", got)
	}
}
