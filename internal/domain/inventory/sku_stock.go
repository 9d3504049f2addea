package inventory

import (
	"strings"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
)

// AggregateTypeSKUStock is the aggregate type for SKU stock events
const AggregateTypeSKUStock = "SKUStock"

// SKUStock is the stock counter of one purchasable product variant.
// AvailableQuantity is never negative; stock held by PENDING reservations
// has already been subtracted from it.
type SKUStock struct {
	shared.BaseAggregateRoot
	Code              string
	ProductName       string
	Size              string
	Colour            string
	AvailableQuantity int64
}

// NewSKUStock creates a SKU with an initial available quantity
func NewSKUStock(code, productName, size, colour string, quantity int64) (*SKUStock, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "SKU code cannot be empty")
	}
	if len(code) > 64 {
		return nil, shared.NewDomainError("INVALID_INPUT", "SKU code cannot exceed 64 characters")
	}
	if strings.TrimSpace(productName) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product name cannot be empty")
	}
	if quantity < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Initial quantity cannot be negative")
	}

	sku := &SKUStock{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		ProductName:       strings.TrimSpace(productName),
		Size:              strings.TrimSpace(size),
		Colour:            strings.TrimSpace(colour),
		AvailableQuantity: quantity,
	}
	return sku, nil
}

// CanFulfil reports whether qty units are currently available
func (s *SKUStock) CanFulfil(qty int64) bool {
	return qty > 0 && s.AvailableQuantity >= qty
}

// Restock adds units to the in-memory counter and records a StockRestocked event.
// Persistence must apply the same delta with an atomic increment.
func (s *SKUStock) Restock(qty int64, reason string) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Restock quantity must be positive")
	}
	s.AvailableQuantity += qty
	s.IncrementVersion()
	s.Touch(time.Now())
	s.Raise(NewStockRestockedEvent(s, qty, reason))
	return nil
}

// Facet returns the size/colour label used in error messages and listings
func (s *SKUStock) Facet() string {
	parts := make([]string, 0, 2)
	if s.Size != "" {
		parts = append(parts, s.Size)
	}
	if s.Colour != "" {
		parts = append(parts, s.Colour)
	}
	return strings.Join(parts, "/")
}
