package nurture

import (
	"regexp"
	"strings"
)

// Persona selects which responder handles a message when the staged flow
// hands off: appointment traffic goes to the booking flow, everything
// else to objection handling.
type Persona string

const (
	PersonaAppointment Persona = "appointment"
	PersonaObjection   Persona = "objection"
)

var appointmentKeywords = []string{
	"appointment", "schedule", "meeting", "book", "available",
	"calendar", "time slots", "when can", "what time", "consultation",
}

// A bare digit is a slot selection from a previously offered list.
var slotSelectionRe = regexp.MustCompile(`^[1-9]$`)

// ClassifyPersona routes a message by content. The bot's own qualifying
// questions quote scheduling words back at the lead, so those phrasings
// are excluded from the appointment triggers.
func ClassifyPersona(message string) Persona {
	trimmed := strings.TrimSpace(message)
	if slotSelectionRe.MatchString(trimmed) {
		return PersonaAppointment
	}

	lower := strings.ToLower(trimmed)
	if strings.Contains(lower, "couple questions") ||
		strings.Contains(lower, "ask you") ||
		strings.Contains(lower, "before we hop on") {
		return PersonaObjection
	}

	for _, keyword := range appointmentKeywords {
		if strings.Contains(lower, keyword) {
			return PersonaAppointment
		}
	}

	return PersonaObjection
}
