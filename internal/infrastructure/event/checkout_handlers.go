package event

import (
	"context"
	"fmt"

	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// CheckoutEventHandler logs committed checkout events and feeds the release
// and refund counters
type CheckoutEventHandler struct {
	logger  *zap.Logger
	metrics *telemetry.CheckoutMetrics
}

// NewCheckoutEventHandler creates a new CheckoutEventHandler. metrics may be nil.
func NewCheckoutEventHandler(logger *zap.Logger, metrics *telemetry.CheckoutMetrics) *CheckoutEventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutEventHandler{logger: logger, metrics: metrics}
}

// EventTypes returns the event types this handler is interested in
func (h *CheckoutEventHandler) EventTypes() []string {
	return []string{
		checkout.EventTypeOrderConfirmed,
		checkout.EventTypeReservationsReleased,
		checkout.EventTypeRefundRequired,
		inventory.EventTypeStockRestocked,
	}
}

// Handle logs one event
func (h *CheckoutEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *checkout.OrderConfirmedEvent:
		h.logger.Info("Order confirmed",
			zap.String("event_id", e.EventID().String()),
			zap.String("order_id", e.OrderID.String()),
			zap.String("reference", e.Reference),
			zap.String("amount", e.Amount.StringFixed(2)),
			zap.String("currency", e.Currency),
			zap.Int("lines", e.LineCount))

	case *checkout.ReservationsReleasedEvent:
		h.metrics.RecordReservationsReleased(ctx, string(e.Reason), e.Quantity)
		h.logger.Info("Reservations released",
			zap.String("event_id", e.EventID().String()),
			zap.String("reference", e.Reference),
			zap.String("reason", string(e.Reason)),
			zap.Int("reservations", e.Count),
			zap.Int64("units", e.Quantity))

	case *checkout.RefundRequiredEvent:
		h.metrics.RecordRefundRequired(ctx, e.Currency)
		// Refunds are issued outside this service.
		h.logger.Error("Refund required for payment without held stock",
			zap.String("event_id", e.EventID().String()),
			zap.String("reference", e.Reference),
			zap.String("provider_event_id", e.ProviderEventID),
			zap.String("payment_id", e.PaymentID),
			zap.String("amount", e.Amount),
			zap.String("currency", e.Currency),
			zap.String("reason", e.Reason))

	case *inventory.StockRestockedEvent:
		h.logger.Info("SKU restocked",
			zap.String("event_id", e.EventID().String()),
			zap.String("sku_id", e.SKUID.String()),
			zap.String("sku_code", e.SKUCode),
			zap.Int64("quantity", e.Quantity),
			zap.String("reason", e.Reason))

	default:
		return fmt.Errorf("unexpected event %T (%s)", event, event.EventType())
	}
	return nil
}

var _ shared.EventHandler = (*CheckoutEventHandler)(nil)
