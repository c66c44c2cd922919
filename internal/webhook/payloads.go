package webhook

import "time"

// Webhook sources.
const (
	SourceClose    = "close"
	SourceCalendly = "calendly"
)

// Close event envelope fields we act on.
const (
	CloseObjectTypeSMS    = "activity.sms"
	CloseActionCreated    = "created"
	CloseDirectionInbound = "inbound"
)

// Calendly event types we act on.
const (
	CalendlyInviteeCreated  = "invitee.created"
	CalendlyInviteeCanceled = "invitee.canceled"
)

// ClosePayload is the webhook envelope delivered by Close.
type ClosePayload struct {
	Event CloseEvent `json:"event" validate:"required"`
}

// CloseEvent describes a single CRM event.
type CloseEvent struct {
	ID         string         `json:"id"`
	ObjectType string         `json:"object_type" validate:"required"`
	Action     string         `json:"action" validate:"required"`
	Data       CloseEventData `json:"data"`
}

// CloseEventData carries the SMS activity for activity.sms events.
type CloseEventData struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	LeadID      string `json:"lead_id"`
	ContactID   string `json:"contact_id"`
	LocalPhone  string `json:"local_phone"`
	RemotePhone string `json:"remote_phone"`
	Direction   string `json:"direction"`
	Status      string `json:"status"`
}

// IsInboundSMS reports whether this event is a newly created inbound SMS,
// the only Close event the bot reacts to.
func (p ClosePayload) IsInboundSMS() bool {
	return p.Event.ObjectType == CloseObjectTypeSMS &&
		p.Event.Action == CloseActionCreated &&
		p.Event.Data.Direction == CloseDirectionInbound
}

// CalendlyPayload is the webhook envelope delivered by Calendly.
type CalendlyPayload struct {
	Event     string          `json:"event" validate:"required"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   CalendlyDetails `json:"payload"`
}

// CalendlyDetails holds the scheduled event and invitee for invitee.* events.
type CalendlyDetails struct {
	Event   *CalendlyScheduledEvent `json:"event"`
	Invitee *CalendlyInvitee        `json:"invitee"`
}

// CalendlyScheduledEvent is the booked calendar event.
type CalendlyScheduledEvent struct {
	URI       string    `json:"uri"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	EventType string    `json:"event_type"`
}

// CalendlyInvitee is the person who booked or canceled.
type CalendlyInvitee struct {
	URI          string                `json:"uri"`
	Email        string                `json:"email"`
	Name         string                `json:"name"`
	Status       string                `json:"status"`
	Timezone     string                `json:"timezone"`
	Rescheduled  bool                  `json:"rescheduled"`
	Cancellation *CalendlyCancellation `json:"cancellation"`
}

// CalendlyCancellation is present on invitee.canceled events.
type CalendlyCancellation struct {
	CanceledBy string `json:"canceled_by"`
	Reason     string `json:"reason"`
}
