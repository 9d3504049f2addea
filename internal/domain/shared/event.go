package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a committed fact published on the event bus
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
}

// BaseDomainEvent is embedded by every concrete event
type BaseDomainEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	At            time.Time `json:"occurred_at"`
	AggregateType string    `json:"aggregate_type"`
	AggregateID   uuid.UUID `json:"aggregate_id"`
}

// NewBaseDomainEvent stamps a new event of eventType raised by the
// aggregate aggType/aggID
func NewBaseDomainEvent(eventType, aggType string, aggID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		ID:            uuid.New(),
		Type:          eventType,
		At:            time.Now(),
		AggregateType: aggType,
		AggregateID:   aggID,
	}
}

func (e *BaseDomainEvent) EventID() uuid.UUID    { return e.ID }
func (e *BaseDomainEvent) EventType() string     { return e.Type }
func (e *BaseDomainEvent) OccurredAt() time.Time { return e.At }
