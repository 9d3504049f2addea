package checkout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultReservationTTL is how long stock stays held while the shopper pays
const DefaultReservationTTL = 15 * time.Minute

// ReservationService prices a session's cart and holds its stock under one
// payment reference.
type ReservationService struct {
	scope      TransactionScope
	calculator *pricing.Calculator
	ttl        time.Duration
	publisher  shared.EventPublisher
	metrics    *telemetry.CheckoutMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// ReservationServiceConfig contains configuration for ReservationService
type ReservationServiceConfig struct {
	Scope          TransactionScope
	Calculator     *pricing.Calculator
	ReservationTTL time.Duration
	Publisher      shared.EventPublisher
	Metrics        *telemetry.CheckoutMetrics
	Logger         *zap.Logger
	Clock          func() time.Time
}

// NewReservationService creates a new ReservationService
func NewReservationService(cfg ReservationServiceConfig) *ReservationService {
	ttl := cfg.ReservationTTL
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ReservationService{
		scope:      cfg.Scope,
		calculator: cfg.Calculator,
		ttl:        ttl,
		publisher:  cfg.Publisher,
		metrics:    cfg.Metrics,
		logger:     logger,
		now:        clock,
	}
}

// PriceAndReserve prices every cart item of the session for delivery to
// country in currency and reserves the stock, all or nothing.
//
// Earlier PENDING holds of the same session are released first, inside the
// same transaction. Items are reserved in ascending SKU id order. Any failure
// rolls back every decrement made by the call.
func (s *ReservationService) PriceAndReserve(ctx context.Context, sessionID uuid.UUID, country, currency string) (*CheckoutResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "price_and_reserve",
		telemetry.SpanSessionID.String(sessionID.String()),
		telemetry.SpanCurrency.String(currency),
		telemetry.SpanCountry.String(country),
	)
	defer span.End()

	cur, err := s.calculator.ResolveCurrency(currency)
	if err != nil {
		s.metrics.RecordReservation(ctx, telemetry.OutcomeRejected)
		return nil, err
	}
	dest, err := s.calculator.ResolveCountry(country)
	if err != nil {
		s.metrics.RecordReservation(ctx, telemetry.OutcomeRejected)
		return nil, err
	}

	now := s.now().UTC()
	var (
		result     *CheckoutResponse
		superseded checkout.ReservationBatch
		unitCount  int64
	)

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		session, err := repos.SessionRepo().FindByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := session.EnsureActive(now); err != nil {
			return err
		}

		items, err := repos.CartRepo().FindBySession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if len(items) == 0 {
			return shared.ErrEmptyCart
		}
		sortCartBySKU(items)

		previous, err := repos.ReservationRepo().FindPendingBySession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("load previous holds: %w", err)
		}
		superseded, err = ReleasePending(ctx, repos, previous, checkout.ReleaseSuperseded, now)
		if err != nil {
			return err
		}

		lines, err := s.priceLines(ctx, repos, items, cur)
		if err != nil {
			return err
		}
		quote, err := s.calculator.Quote(lines, dest, cur)
		if err != nil {
			return err
		}

		reference := checkout.NewPaymentReference()
		expiresAt := now.Add(s.ttl)
		batch := make(checkout.ReservationBatch, 0, len(lines))
		for _, line := range lines {
			if err := repos.Ledger().Reserve(ctx, line.SKUID, line.Quantity); err != nil {
				return err
			}
			r, err := checkout.NewReservation(reference, sessionID, line.SKUID, line.Quantity, line.UnitPrice, expiresAt)
			if err != nil {
				return err
			}
			batch = append(batch, *r)
			unitCount += line.Quantity
		}

		if err := repos.ReservationRepo().CreateBatch(ctx, batch); err != nil {
			return err
		}
		co := checkout.NewCheckout(reference, sessionID, quote, expiresAt)
		if err := repos.CheckoutRepo().Create(ctx, co); err != nil {
			return err
		}

		result = toCheckoutResponse(co, quote)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordReservation(ctx, reservationOutcome(err))
		if errors.Is(err, shared.ErrInsufficientStock) || errors.Is(err, shared.ErrEmptyCart) {
			s.logger.Info("Checkout rejected",
				zap.String("session_id", sessionID.String()),
				zap.String("reason", err.Error()))
		}
		return nil, err
	}

	s.metrics.RecordReservation(ctx, telemetry.OutcomeReserved)
	if len(superseded) > 0 {
		s.publish(ctx, checkout.NewReservationsReleasedEvent(superseded.Reference(), sessionID, checkout.ReleaseSuperseded, superseded))
	}

	s.logger.Info("Stock reserved for checkout",
		zap.String("session_id", sessionID.String()),
		zap.String("reference", result.Reference),
		zap.String("currency", result.Currency),
		zap.String("total", result.Total.StringFixed(2)),
		zap.Int64("units", unitCount),
		zap.Int("superseded", len(superseded)),
	)
	return result, nil
}

// priceLines joins cart items with their SKU and unit price in currency
func (s *ReservationService) priceLines(ctx context.Context, repos TransactionalRepositories, items []checkout.CartItem, currency valueobject.Currency) ([]pricing.Line, error) {
	ids := make([]uuid.UUID, len(items))
	for i := range items {
		ids[i] = items[i].SKUID
	}

	skus, err := repos.SKURepo().FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load SKUs: %w", err)
	}
	byID := make(map[uuid.UUID]*inventory.SKUStock, len(skus))
	for i := range skus {
		byID[skus[i].ID] = &skus[i]
	}

	prices, err := repos.PriceRepo().FindUnitPrices(ctx, ids, currency)
	if err != nil {
		return nil, err
	}

	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		sku, ok := byID[item.SKUID]
		if !ok {
			return nil, inventory.NewSKUNotFoundError(item.SKUID)
		}
		price, ok := prices[item.SKUID]
		if !ok {
			return nil, shared.NewDomainErrorf(shared.ErrPriceUnavailable.Code,
				"SKU %s has no price in %s", sku.Code, currency)
		}
		lines = append(lines, pricing.Line{
			SKUID:     item.SKUID,
			SKUCode:   sku.Code,
			Quantity:  item.Quantity,
			UnitPrice: price,
		})
	}
	return lines, nil
}

func (s *ReservationService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish checkout events", zap.Error(err))
	}
}

func reservationOutcome(err error) string {
	switch {
	case errors.Is(err, shared.ErrInsufficientStock):
		return telemetry.OutcomeInsufficientStock
	case errors.Is(err, shared.ErrEmptyCart):
		return telemetry.OutcomeEmptyCart
	case errors.Is(err, shared.ErrSessionExpired),
		errors.Is(err, shared.ErrNotFound),
		errors.Is(err, shared.ErrPriceUnavailable),
		errors.Is(err, shared.ErrUnsupportedCountry),
		errors.Is(err, shared.ErrUnsupportedCurrency):
		return telemetry.OutcomeRejected
	default:
		return telemetry.OutcomeError
	}
}

func sortCartBySKU(items []checkout.CartItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return bytes.Compare(items[i].SKUID[:], items[j].SKUID[:]) < 0
	})
}
