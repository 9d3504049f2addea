package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// AggregateTypeOrder is the aggregate type for order events
const AggregateTypeOrder = "Order"

// Order is the immutable payment record created when a reservation batch is
// confirmed. There is at most one order per payment reference.
type Order struct {
	shared.BaseAggregateRoot
	Reference         string
	SessionID         uuid.UUID
	Amount            decimal.Decimal
	Currency          valueobject.Currency
	ProviderEventID   string
	ProviderPaymentID string
	ProviderAmount    decimal.Decimal
	ProviderCurrency  string
	ConfirmedAt       time.Time
	Lines             []OrderLine
}

// OrderLine is one SKU and quantity of an order. It references the order by id.
type OrderLine struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	SKUID     uuid.UUID
	Quantity  int64
	UnitPrice decimal.Decimal
}

// PaymentDetails carries what the provider reported for the payment
type PaymentDetails struct {
	EventID   string
	PaymentID string
	Amount    decimal.Decimal
	Currency  string
}

// NewOrderFromBatch builds the order for a confirmed batch. Lines are taken
// from the reservations; amount and currency come from the checkout snapshot.
func NewOrderFromBatch(co *Checkout, batch ReservationBatch, payment PaymentDetails, now time.Time) (*Order, error) {
	if len(batch) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Cannot create an order without reservations")
	}
	if co.Reference != batch.Reference() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Checkout and reservations reference differ")
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Reference:         co.Reference,
		SessionID:         co.SessionID,
		Amount:            co.Total,
		Currency:          co.Currency,
		ProviderEventID:   payment.EventID,
		ProviderPaymentID: payment.PaymentID,
		ProviderAmount:    payment.Amount,
		ProviderCurrency:  payment.Currency,
		ConfirmedAt:       now,
		Lines:             make([]OrderLine, 0, len(batch)),
	}
	for i := range batch {
		order.Lines = append(order.Lines, OrderLine{
			ID:        uuid.New(),
			OrderID:   order.ID,
			SKUID:     batch[i].SKUID,
			Quantity:  batch[i].Quantity,
			UnitPrice: batch[i].UnitPrice,
		})
	}
	order.Raise(NewOrderConfirmedEvent(order))
	return order, nil
}

// AmountMismatch reports whether the provider charged something other than
// the checkout total. Providers that report no amount never mismatch.
func (o *Order) AmountMismatch() bool {
	if o.ProviderAmount.IsZero() && o.ProviderCurrency == "" {
		return false
	}
	if o.ProviderCurrency != "" && o.ProviderCurrency != string(o.Currency) {
		return true
	}
	return !o.ProviderAmount.Equal(o.Amount)
}

// TotalQuantity sums line quantities
func (o *Order) TotalQuantity() int64 {
	var n int64
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}
