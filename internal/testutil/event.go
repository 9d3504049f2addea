package testutil

import (
	"context"
	"sync"

	"github.com/storefront/backend/internal/domain/shared"
)

// RecordingPublisher is a shared.EventPublisher that keeps every event it is
// given. It can also be registered as a shared.EventHandler.
type RecordingPublisher struct {
	mu         sync.Mutex
	eventTypes []string
	events     []shared.DomainEvent
	err        error
}

// NewRecordingPublisher creates a publisher. When eventTypes is non-empty it
// reports them from EventTypes for use as a bus subscriber.
func NewRecordingPublisher(eventTypes ...string) *RecordingPublisher {
	return &RecordingPublisher{eventTypes: eventTypes}
}

// Publish records events and returns the configured error
func (p *RecordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

// EventTypes returns the event types this recorder subscribes to
func (p *RecordingPublisher) EventTypes() []string {
	return p.eventTypes
}

// Handle records a single event
func (p *RecordingPublisher) Handle(ctx context.Context, event shared.DomainEvent) error {
	return p.Publish(ctx, event)
}

// Events returns a copy of every recorded event
func (p *RecordingPublisher) Events() []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.DomainEvent, len(p.events))
	copy(out, p.events)
	return out
}

// OfType returns the recorded events with the given type
func (p *RecordingPublisher) OfType(eventType string) []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of recorded events
func (p *RecordingPublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// SetError sets the error returned from Publish and Handle
func (p *RecordingPublisher) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Reset clears recorded events and the configured error
func (p *RecordingPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
	p.err = nil
}
