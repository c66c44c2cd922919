package events

import (
	"context"
	"fmt"
	"sync"

	"smsbot_backend/platform/logger"
)

// InMemoryBus is a process-local Bus implementation. Handlers registered
// for an event name are invoked in registration order. Publish runs them
// on a goroutine; PublishSync runs them inline and collects errors.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
}

// NewInMemoryBus creates an empty in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish sends an event to all registered handlers asynchronously.
// Handler errors are logged, not propagated.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.EventName()]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	// Detach from the request context so in-flight handlers survive
	// the originating request completing.
	go func() {
		detached := context.WithoutCancel(ctx)
		for _, h := range handlers {
			if err := h.Handle(detached, event); err != nil && b.log != nil {
				b.log.Error("event_handler_failed",
					"event", event.EventName(),
					"error", err.Error(),
				)
			}
		}
	}()
}

// PublishSync sends an event and waits for all handlers to complete.
// The first handler error aborts the remaining handlers.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.EventName()]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h.Handle(ctx, event); err != nil {
			return fmt.Errorf("handler for %s: %w", event.EventName(), err)
		}
	}
	return nil
}
