package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// Aggregate type for reservation batch events
const AggregateTypeReservationBatch = "ReservationBatch"

// Event type constants
const (
	EventTypeOrderConfirmed       = "OrderConfirmed"
	EventTypeReservationsReleased = "ReservationsReleased"
	EventTypeRefundRequired       = "RefundRequired"
)

// OrderConfirmedEvent is raised when a paid batch becomes an order
type OrderConfirmedEvent struct {
	shared.BaseDomainEvent
	OrderID   uuid.UUID       `json:"order_id"`
	Reference string          `json:"reference"`
	SessionID uuid.UUID       `json:"session_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	LineCount int             `json:"line_count"`
}

// NewOrderConfirmedEvent creates a new OrderConfirmedEvent
func NewOrderConfirmedEvent(o *Order) *OrderConfirmedEvent {
	return &OrderConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderConfirmed, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		Reference:       o.Reference,
		SessionID:       o.SessionID,
		Amount:          o.Amount,
		Currency:        string(o.Currency),
		LineCount:       len(o.Lines),
	}
}

// ReservationsReleasedEvent is raised when held stock goes back to the ledger
type ReservationsReleasedEvent struct {
	shared.BaseDomainEvent
	Reference string        `json:"reference"`
	Reason    ReleaseReason `json:"reason"`
	Count     int           `json:"count"`
	Quantity  int64         `json:"quantity"`
}

// NewReservationsReleasedEvent creates a new ReservationsReleasedEvent
func NewReservationsReleasedEvent(reference string, sessionID uuid.UUID, reason ReleaseReason, released ReservationBatch) *ReservationsReleasedEvent {
	var qty int64
	for i := range released {
		qty += released[i].Quantity
	}
	return &ReservationsReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationsReleased, AggregateTypeReservationBatch, sessionID),
		Reference:       reference,
		Reason:          reason,
		Count:           len(released),
		Quantity:        qty,
	}
}

// RefundRequiredEvent is raised when a payment succeeded for a reference whose
// stock is no longer held. Refunding is handled outside this service.
type RefundRequiredEvent struct {
	shared.BaseDomainEvent
	Reference       string `json:"reference"`
	ProviderEventID string `json:"provider_event_id"`
	PaymentID       string `json:"payment_id,omitempty"`
	Amount          string `json:"amount,omitempty"`
	Currency        string `json:"currency,omitempty"`
	Reason          string `json:"reason"`
}

// NewRefundRequiredEvent creates a new RefundRequiredEvent
func NewRefundRequiredEvent(reference string, sessionID uuid.UUID, payment PaymentDetails, reason string) *RefundRequiredEvent {
	amount := ""
	if !payment.Amount.IsZero() {
		amount = payment.Amount.String()
	}
	return &RefundRequiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRefundRequired, AggregateTypeReservationBatch, sessionID),
		Reference:       reference,
		ProviderEventID: payment.EventID,
		PaymentID:       payment.PaymentID,
		Amount:          amount,
		Currency:        payment.Currency,
		Reason:          reason,
	}
}
