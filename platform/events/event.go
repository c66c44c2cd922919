// Package events carries the in-process domain events that connect the
// booking flow to its side effects (confirmation texts, transcript
// ingestion) without the packages importing each other.
package events

import (
	"context"
	"time"
)

// Event is anything that can travel over the bus. EventName doubles as
// the subscription key.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent supplies the occurrence timestamp domain events embed.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt returns when the event happened.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a new event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes events it subscribed for.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls the underlying function.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes domain events to subscribed handlers. Publish is
// fire-and-forget; PublishSync waits and surfaces the first handler
// error. Subscribe keys on the value of Event.EventName.
type Bus interface {
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
