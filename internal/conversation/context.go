// Package conversation provides the conversation bounded context: active
// threads per lead and their message transcripts.
package conversation

import "time"

// Context is the per-conversation scratch state the booking flow needs
// between turns. Stored as jsonb on the conversation row.
type Context struct {
	EventTypeURI          string      `json:"event_type_uri,omitempty"`
	OfferedSlots          []time.Time `json:"offered_slots,omitempty"`
	LastAvailabilityShown *time.Time  `json:"last_availability_shown,omitempty"`
	AwaitingEmail         bool        `json:"awaiting_email,omitempty"`
	PendingSlot           *time.Time  `json:"pending_slot,omitempty"`
}
