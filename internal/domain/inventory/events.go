package inventory

import (
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Event type constants
const (
	EventTypeStockRestocked = "StockRestocked"
)

// StockRestockedEvent is raised when staff add units to a SKU
type StockRestockedEvent struct {
	shared.BaseDomainEvent
	SKUID    uuid.UUID `json:"sku_id"`
	SKUCode  string    `json:"sku_code"`
	Quantity int64     `json:"quantity"`
	Reason   string    `json:"reason,omitempty"`
}

// NewStockRestockedEvent creates a new StockRestockedEvent
func NewStockRestockedEvent(sku *SKUStock, qty int64, reason string) *StockRestockedEvent {
	return &StockRestockedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockRestocked, AggregateTypeSKUStock, sku.ID),
		SKUID:           sku.ID,
		SKUCode:         sku.Code,
		Quantity:        qty,
		Reason:          reason,
	}
}
