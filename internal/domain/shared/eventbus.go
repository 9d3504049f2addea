package shared

import "context"

// EventHandler consumes published events. EventTypes lists the types it
// wants; nil subscribes it to everything.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventPublisher is what application services depend on
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus routes published events to subscribed handlers. Explicit
// eventTypes passed to Subscribe override the handler's own list.
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
