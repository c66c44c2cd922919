package booking

import (
	"time"

	"smsbot_backend/platform/events"

	"github.com/google/uuid"
)

// Event names published by the booking module.
const (
	EventAppointmentBooked   = "appointment.booked"
	EventAppointmentCanceled = "appointment.canceled"
)

// Where a booking event originated. SMS-flow bookings are confirmed in
// the reply itself; Calendly-originated ones need a follow-up SMS.
const (
	SourceSMS      = "sms"
	SourceCalendly = "calendly"
)

// AppointmentBooked is published when an appointment is confirmed, either
// by the SMS flow or by a Calendly invitee webhook.
type AppointmentBooked struct {
	events.BaseEvent
	AppointmentID uuid.UUID
	LeadID        uuid.UUID
	ScheduledAt   time.Time
	Source        string
}

// EventName implements events.Event.
func (e AppointmentBooked) EventName() string { return EventAppointmentBooked }

// AppointmentCanceled is published when a Calendly cancellation arrives.
type AppointmentCanceled struct {
	events.BaseEvent
	AppointmentID uuid.UUID
	LeadID        uuid.UUID
	ScheduledAt   time.Time
	Source        string
}

// EventName implements events.Event.
func (e AppointmentCanceled) EventName() string { return EventAppointmentCanceled }
