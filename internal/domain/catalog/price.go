package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// SKUPrice is the unit price of a SKU in one currency. Each currency is
// priced independently rather than converted.
type SKUPrice struct {
	SKUID     uuid.UUID
	Currency  valueobject.Currency
	UnitPrice decimal.Decimal
}

// NewSKUPrice validates and creates a price entry
func NewSKUPrice(skuID uuid.UUID, currency string, unitPrice decimal.Decimal) (SKUPrice, error) {
	c, err := valueobject.ParseCurrency(currency)
	if err != nil {
		return SKUPrice{}, shared.NewDomainError("INVALID_INPUT", err.Error())
	}
	if unitPrice.IsNegative() {
		return SKUPrice{}, shared.NewDomainError("INVALID_INPUT", "Unit price cannot be negative")
	}
	return SKUPrice{SKUID: skuID, Currency: c, UnitPrice: unitPrice}, nil
}

// UnitMoney returns the price as Money
func (p SKUPrice) UnitMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(p.UnitPrice, p.Currency)
	return m
}

// PriceRepository is the read side of the product/SKU lookup plus price upserts for staff
type PriceRepository interface {
	// FindUnitPrices returns unit prices keyed by SKU id. SKUs without a price
	// in the currency are absent from the map.
	FindUnitPrices(ctx context.Context, skuIDs []uuid.UUID, currency valueobject.Currency) (map[uuid.UUID]decimal.Decimal, error)

	// FindBySKU returns every currency price of a SKU
	FindBySKU(ctx context.Context, skuID uuid.UUID) ([]SKUPrice, error)

	// Upsert inserts or replaces prices
	Upsert(ctx context.Context, prices []SKUPrice) error
}
