package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Outcome labels for checkout_reservations_total
const (
	OutcomeReserved          = "reserved"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeEmptyCart         = "empty_cart"
	OutcomeRejected          = "rejected"
	OutcomeError             = "error"
)

// Reason labels for webhook_rejections_total
const (
	RejectionInvalidSignature = "invalid_signature"
	RejectionMalformed        = "malformed"
)

// Checkout metric attribute keys
var (
	AttrOutcome   = attribute.Key("outcome")
	AttrEventKind = attribute.Key("kind")
	AttrReason    = attribute.Key("reason")
	AttrCurrency  = attribute.Key("currency")
)

// CheckoutMetrics records checkout, webhook and sweep activity.
// Every Record method is safe to call on a nil receiver, so services run
// without metrics when none are configured.
type CheckoutMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	reservationsTotal    *Counter
	webhookEventsTotal   *Counter
	webhookRejections    *Counter
	reservationsExpired  *Counter
	ordersConfirmedTotal *Counter
	orderAmountTotal     *Counter
	releasedTotal        *Counter
	refundsRequired      *Counter
	sweepDuration        *Histogram

	pendingUnits  *Gauge
	lowStockCount *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	stockProvider StockMetricsProvider
}

// StockMetricsProvider supplies stock figures for periodic gauge collection
type StockMetricsProvider interface {
	// PendingUnits returns the units held by PENDING reservations
	PendingUnits(ctx context.Context) (int64, error)

	// LowStockCount returns the number of SKUs with at most threshold units available
	LowStockCount(ctx context.Context, threshold int64) (int64, error)
}

// CheckoutMetricsConfig holds configuration for checkout metrics
type CheckoutMetricsConfig struct {
	Meter             metric.Meter
	Logger            *zap.Logger
	StockProvider     StockMetricsProvider
	LowStockThreshold int64
}

// NewCheckoutMetrics creates the checkout instruments on meter
func NewCheckoutMetrics(cfg CheckoutMetricsConfig) (*CheckoutMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cm := &CheckoutMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		stockProvider: cfg.StockProvider,
	}

	var err error
	cm.reservationsTotal, err = NewCounter(cfg.Meter,
		"checkout_reservations_total",
		"Total number of price-and-reserve attempts by outcome",
		"{attempts}",
	)
	if err != nil {
		return nil, err
	}

	cm.webhookEventsTotal, err = NewCounter(cfg.Meter,
		"webhook_events_total",
		"Total number of verified payment webhook events by kind and outcome",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	cm.webhookRejections, err = NewCounter(cfg.Meter,
		"webhook_rejections_total",
		"Total number of payment webhooks rejected before processing",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	cm.reservationsExpired, err = NewCounter(cfg.Meter,
		"reservations_expired_total",
		"Total number of reservations released by the expiry sweep",
		"{reservations}",
	)
	if err != nil {
		return nil, err
	}

	cm.ordersConfirmedTotal, err = NewCounter(cfg.Meter,
		"orders_confirmed_total",
		"Total number of orders created from confirmed payments",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	cm.orderAmountTotal, err = NewCounter(cfg.Meter,
		"order_amount_minor_total",
		"Total confirmed order amount in minor currency units",
		"{minor_units}",
	)
	if err != nil {
		return nil, err
	}

	cm.releasedTotal, err = NewCounter(cfg.Meter,
		"reservations_released_total",
		"Total number of reserved units returned to stock by release reason",
		"{units}",
	)
	if err != nil {
		return nil, err
	}

	cm.refundsRequired, err = NewCounter(cfg.Meter,
		"refunds_required_total",
		"Total number of successful payments whose stock was no longer held",
		"{payments}",
	)
	if err != nil {
		return nil, err
	}

	cm.sweepDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "sweep_duration_seconds",
		Description: "Duration of one reservation expiry sweep",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	cm.pendingUnits, err = NewGauge(cfg.Meter,
		"stock_pending_units",
		"Units currently held by PENDING reservations",
		"{units}",
	)
	if err != nil {
		return nil, err
	}

	cm.lowStockCount, err = NewGauge(cfg.Meter,
		"stock_low_sku_count",
		"Number of SKUs at or below the low stock threshold",
		"{skus}",
	)
	if err != nil {
		return nil, err
	}

	return cm, nil
}

// RecordReservation counts one price-and-reserve attempt
func (cm *CheckoutMetrics) RecordReservation(ctx context.Context, outcome string) {
	if cm == nil {
		return
	}
	cm.reservationsTotal.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordWebhookEvent counts one verified webhook event
func (cm *CheckoutMetrics) RecordWebhookEvent(ctx context.Context, kind, outcome string) {
	if cm == nil {
		return
	}
	cm.webhookEventsTotal.Inc(ctx, AttrEventKind.String(kind), AttrOutcome.String(outcome))
}

// RecordWebhookRejection counts a webhook refused before processing
func (cm *CheckoutMetrics) RecordWebhookRejection(ctx context.Context, reason string) {
	if cm == nil {
		return
	}
	cm.webhookRejections.Inc(ctx, AttrReason.String(reason))
}

// RecordReservationsExpired counts reservations released by the sweep
func (cm *CheckoutMetrics) RecordReservationsExpired(ctx context.Context, n int) {
	if cm == nil || n <= 0 {
		return
	}
	cm.reservationsExpired.Add(ctx, int64(n))
}

// RecordOrderConfirmed counts an order and its amount in minor units
func (cm *CheckoutMetrics) RecordOrderConfirmed(ctx context.Context, currency string, amountMinor int64) {
	if cm == nil {
		return
	}
	cm.ordersConfirmedTotal.Inc(ctx, AttrCurrency.String(currency))
	cm.orderAmountTotal.Add(ctx, amountMinor, AttrCurrency.String(currency))
}

// RecordReservationsReleased counts units returned to stock for reason
func (cm *CheckoutMetrics) RecordReservationsReleased(ctx context.Context, reason string, units int64) {
	if cm == nil || units <= 0 {
		return
	}
	cm.releasedTotal.Add(ctx, units, AttrReason.String(reason))
}

// RecordRefundRequired counts a payment that needs refunding
func (cm *CheckoutMetrics) RecordRefundRequired(ctx context.Context, currency string) {
	if cm == nil {
		return
	}
	cm.refundsRequired.Inc(ctx, AttrCurrency.String(currency))
}

// RecordSweep records the duration of one expiry sweep
func (cm *CheckoutMetrics) RecordSweep(ctx context.Context, d time.Duration) {
	if cm == nil {
		return
	}
	cm.sweepDuration.RecordDuration(ctx, d)
}

// StartPeriodicCollection starts collecting the stock gauges every interval
// (default 1 minute). It returns immediately; use Stop to end collection.
func (cm *CheckoutMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration, lowStockThreshold int64) {
	if cm == nil {
		return
	}
	cm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}
		go cm.runPeriodicCollection(ctx, interval, lowStockThreshold)
	})
}

func (cm *CheckoutMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration, threshold int64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cm.collectStockMetrics(ctx, threshold)

	for {
		select {
		case <-cm.stopChan:
			cm.logger.Info("Stopping periodic stock metrics collection")
			return
		case <-ctx.Done():
			cm.logger.Info("Context cancelled, stopping periodic stock metrics collection")
			return
		case <-ticker.C:
			cm.collectStockMetrics(ctx, threshold)
		}
	}
}

func (cm *CheckoutMetrics) collectStockMetrics(ctx context.Context, threshold int64) {
	if cm.stockProvider == nil {
		cm.logger.Debug("No stock provider configured, skipping stock metrics collection")
		return
	}

	if pending, err := cm.stockProvider.PendingUnits(ctx); err != nil {
		cm.logger.Warn("Failed to get pending units", zap.Error(err))
	} else {
		cm.pendingUnits.Record(ctx, pending)
	}

	if low, err := cm.stockProvider.LowStockCount(ctx, threshold); err != nil {
		cm.logger.Warn("Failed to get low stock count", zap.Error(err))
	} else {
		cm.lowStockCount.Record(ctx, low)
	}
}

// Stop stops the periodic collection
func (cm *CheckoutMetrics) Stop() {
	if cm == nil {
		return
	}
	cm.stopOnce.Do(func() {
		close(cm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewCheckoutMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
