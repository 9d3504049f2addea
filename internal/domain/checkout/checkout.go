package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// Checkout is the priced snapshot behind one payment reference. The order
// created on confirmation copies its amount and currency from here.
type Checkout struct {
	shared.BaseEntity
	Reference string
	SessionID uuid.UUID
	Currency  valueobject.Currency
	Country   string
	Subtotal  decimal.Decimal
	Shipping  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
	Status    ReservationStatus
	ExpiresAt time.Time
}

// NewCheckout records a quote under reference
func NewCheckout(reference string, sessionID uuid.UUID, quote *pricing.Quote, expiresAt time.Time) *Checkout {
	return &Checkout{
		BaseEntity: shared.NewBaseEntity(),
		Reference:  reference,
		SessionID:  sessionID,
		Currency:   quote.Currency,
		Country:    quote.Country,
		Subtotal:   quote.Subtotal.Amount(),
		Shipping:   quote.Shipping.Amount(),
		Tax:        quote.Tax.Amount(),
		Total:      quote.Total.Amount(),
		Status:     ReservationPending,
		ExpiresAt:  expiresAt,
	}
}

// TotalMoney returns the total as Money
func (c *Checkout) TotalMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(c.Total, c.Currency)
	return m
}
