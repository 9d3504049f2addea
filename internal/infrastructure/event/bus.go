// Package event dispatches committed domain events to in-process handlers.
package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus delivers events synchronously to registered handlers.
// A failing or panicking handler is logged and does not stop delivery to the
// others, and Publish never reports handler errors to the caller: events are
// published after the transaction that raised them has committed.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool
	dropped  atomic.Int64
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Publish dispatches events in order. Events published while the bus is
// stopped are counted and dropped.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if !b.running.Load() {
		b.dropped.Add(int64(len(events)))
		b.logger.Warn("Event bus not running, dropping events", zap.Int("count", len(events)))
		return nil
	}
	for _, event := range events {
		for _, handler := range b.registry.GetHandlers(event.EventType()) {
			if err := b.dispatch(ctx, handler, event); err != nil {
				b.logger.Error("Event handler failed",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.Error(err))
			}
		}
	}
	return nil
}

// Subscribe registers handler for eventTypes, or for handler.EventTypes()
// when none are given
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Event handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start starts accepting events
func (b *InMemoryEventBus) Start(_ context.Context) error {
	b.running.Store(true)
	b.logger.Info("Event bus started")
	return nil
}

// Stop stops accepting events
func (b *InMemoryEventBus) Stop(_ context.Context) error {
	b.running.Store(false)
	b.logger.Info("Event bus stopped", zap.Int64("dropped", b.dropped.Load()))
	return nil
}

// Dropped returns how many events were published while the bus was stopped
func (b *InMemoryEventBus) Dropped() int64 {
	return b.dropped.Load()
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
