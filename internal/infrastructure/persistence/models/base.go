package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// BaseModel is the id and timestamp columns every table carries. Times are
// written in UTC so range predicates compare the same way on PostgreSQL and
// SQLite.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (m *BaseModel) entity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (m *BaseModel) setEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt.UTC()
	m.UpdatedAt = e.UpdatedAt.UTC()
}

// AggregateModel adds the optimistic lock version of an aggregate root
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

func (m *AggregateModel) aggregate() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{BaseEntity: m.entity(), Version: m.Version}
}

func (m *AggregateModel) setAggregate(a shared.BaseAggregateRoot) {
	m.setEntity(a.BaseEntity)
	m.Version = a.Version
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
