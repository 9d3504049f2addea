package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity is the identity and timestamps shared by every persisted
// domain object
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity stamps a fresh id with the current time
func NewBaseEntity() BaseEntity {
	return NewBaseEntityAt(time.Now())
}

// NewBaseEntityAt stamps a fresh id with now
func NewBaseEntityAt(now time.Time) BaseEntity {
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// Touch records a modification at now
func (e *BaseEntity) Touch(now time.Time) {
	e.UpdatedAt = now
}

// BaseAggregateRoot adds an optimistic lock version and the events raised
// since the aggregate was loaded. Services publish the events after the
// surrounding transaction commits, then clear them.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	pending []DomainEvent
}

// NewBaseAggregateRoot starts a new aggregate at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// IncrementVersion bumps the optimistic lock version
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// Raise queues an event for publication
func (a *BaseAggregateRoot) Raise(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// Events returns the queued events in the order they were raised
func (a *BaseAggregateRoot) Events() []DomainEvent {
	return a.pending
}

// ClearEvents drops the queued events
func (a *BaseAggregateRoot) ClearEvents() {
	a.pending = nil
}
