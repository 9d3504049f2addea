// Package payment turns verified payment provider notifications into order
// confirmations or stock releases.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	appcheckout "github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Webhook outcomes reported back to the provider
const (
	OutcomeConfirmed        = "confirmed"
	OutcomeReleased         = "released"
	OutcomeDuplicate        = "duplicate"
	OutcomeIgnored          = "ignored"
	OutcomeUnknownReference = "unknown_reference"
	OutcomeExpired          = "expired"
)

// errAlreadyConfirmed aborts a confirmation that lost the race to another
// delivery of the same payment
var errAlreadyConfirmed = errors.New("order already exists for reference")

// PayloadArchive stores raw webhook bodies for audit
type PayloadArchive interface {
	Store(ctx context.Context, key string, body []byte) error
}

// WebhookResult describes how a webhook was handled
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Reference string `json:"reference,omitempty"`
	Outcome   string `json:"outcome"`
	OrderID   string `json:"order_id,omitempty"`
}

// WebhookService handles payment provider webhooks
type WebhookService struct {
	verifier       payment.Verifier
	scope          appcheckout.TransactionScope
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	publisher      shared.EventPublisher
	archive        PayloadArchive
	metrics        *telemetry.CheckoutMetrics
	logger         *zap.Logger
	now            func() time.Time
}

// WebhookServiceConfig contains configuration for WebhookService
type WebhookServiceConfig struct {
	Verifier       payment.Verifier
	Scope          appcheckout.TransactionScope
	Idempotency    shared.IdempotencyStore
	IdempotencyTTL time.Duration
	Publisher      shared.EventPublisher
	Archive        PayloadArchive
	Metrics        *telemetry.CheckoutMetrics
	Logger         *zap.Logger
	Clock          func() time.Time
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	s := &WebhookService{
		verifier:       cfg.Verifier,
		scope:          cfg.Scope,
		idempotency:    cfg.Idempotency,
		idempotencyTTL: cfg.IdempotencyTTL,
		publisher:      cfg.Publisher,
		archive:        cfg.Archive,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
		now:            cfg.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.idempotencyTTL <= 0 {
		s.idempotencyTTL = shared.DefaultIdempotencyConfig().TTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// SignatureHeader names the HTTP header the verifier reads
func (s *WebhookService) SignatureHeader() string {
	return s.verifier.SignatureHeader()
}

// HandleWebhook authenticates rawBody against signatureHeader and applies
// the event. Nothing is read or written before the signature is verified.
//
// A success event confirms the whole reservation batch of its reference and
// creates the order, or fails with ErrReservationExpired when any hold was
// released or has lapsed. A failure or cancellation releases the batch.
// Replays of an already applied event are no-ops.
func (s *WebhookService) HandleWebhook(ctx context.Context, rawBody []byte, signatureHeader string) (*WebhookResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "handle_webhook",
		telemetry.SpanPaymentGateway.String(s.verifier.Provider()),
		attribute.Int("payload_bytes", len(rawBody)),
	)
	defer span.End()

	event, err := s.verifier.Verify(ctx, rawBody, signatureHeader)
	if err != nil {
		reason := telemetry.RejectionMalformed
		if errors.Is(err, shared.ErrInvalidSignature) {
			reason = telemetry.RejectionInvalidSignature
		}
		telemetry.RecordError(span, err)
		s.metrics.RecordWebhookRejection(ctx, reason)
		s.store(ctx, rejectedKey(s.now()), rawBody)
		return nil, err
	}

	span.SetAttributes(
		telemetry.SpanEventID.String(event.ID),
		telemetry.SpanEventType.String(event.Type),
		telemetry.SpanReference.String(event.Reference),
	)
	s.store(ctx, verifiedKey(s.now(), event.ID), rawBody)

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: event.Type,
		Reference: event.Reference,
	}

	if s.alreadyProcessed(ctx, event.ID) {
		result.Outcome = OutcomeDuplicate
		s.finish(ctx, event, result)
		return result, nil
	}

	labels := telemetry.OperationLabels(telemetry.OperationHandleWebhook, map[string]string{
		telemetry.ProfilingLabelEventKind: string(event.Kind),
	})
	telemetry.WithProfilingLabels(ctx, labels, func(ctx context.Context) {
		switch event.Kind {
		case payment.EventKindSucceeded:
			err = s.confirm(ctx, event, result)
		case payment.EventKindFailed:
			err = s.release(ctx, event, checkout.ReleasePaymentFailed, result)
		case payment.EventKindCancelled:
			err = s.release(ctx, event, checkout.ReleasePaymentCancelled, result)
		default:
			result.Outcome = OutcomeIgnored
		}
	})

	if err != nil && !errors.Is(err, shared.ErrReservationExpired) {
		telemetry.RecordError(span, err)
		s.metrics.RecordWebhookEvent(ctx, string(event.Kind), telemetry.OutcomeError)
		logger.For(ctx, s.logger).Error("Failed to process payment webhook",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type),
			zap.String("reference", event.Reference),
			zap.Error(err))
		return result, err
	}

	s.markProcessed(ctx, event.ID)
	s.finish(ctx, event, result)
	return result, err
}

// confirm moves every reservation of the reference to CONFIRMED and creates
// the order in one transaction.
func (s *WebhookService) confirm(ctx context.Context, event *payment.WebhookEvent, result *WebhookResult) error {
	now := s.now().UTC()
	details := checkout.PaymentDetails{
		EventID:   event.ID,
		PaymentID: event.PaymentID,
		Amount:    event.Amount,
		Currency:  event.Currency,
	}

	var (
		order     *checkout.Order
		sessionID uuid.UUID
	)
	err := s.scope.Execute(ctx, func(repos appcheckout.TransactionalRepositories) error {
		batch, err := repos.ReservationRepo().FindByReference(ctx, event.Reference)
		if err != nil {
			return fmt.Errorf("load reservations: %w", err)
		}
		if len(batch) == 0 {
			result.Outcome = OutcomeUnknownReference
			return nil
		}
		sessionID = batch.SessionID()
		if batch.AllIn(checkout.ReservationConfirmed) {
			result.Outcome = OutcomeDuplicate
			return nil
		}
		if err := batch.CheckConfirmable(now); err != nil {
			return err
		}

		pending := batch.Pending()
		moved, err := repos.ReservationRepo().ConfirmPendingByReference(ctx, event.Reference, now)
		if err != nil {
			return err
		}
		if moved != int64(len(pending)) {
			// Under READ COMMITTED a concurrent delivery of the same payment can
			// confirm the rows between our read and our update.
			current, err := repos.ReservationRepo().FindByReference(ctx, event.Reference)
			if err != nil {
				return fmt.Errorf("reload reservations: %w", err)
			}
			if current.AllIn(checkout.ReservationConfirmed) {
				return errAlreadyConfirmed
			}
			return shared.NewDomainErrorf(shared.ErrReservationExpired.Code,
				"Reservations for reference %s changed before confirmation", event.Reference)
		}

		co, err := repos.CheckoutRepo().FindByReference(ctx, event.Reference)
		if err != nil {
			return err
		}
		for i := range batch {
			if batch[i].IsPending() {
				if err := batch[i].Confirm(now); err != nil {
					return err
				}
			}
		}
		order, err = checkout.NewOrderFromBatch(co, batch, details, now)
		if err != nil {
			return err
		}
		if err := repos.OrderRepo().Create(ctx, order); err != nil {
			if errors.Is(err, shared.ErrAlreadyExists) {
				return errAlreadyConfirmed
			}
			return err
		}
		if err := repos.CheckoutRepo().UpdateStatus(ctx, event.Reference, checkout.ReservationConfirmed, now); err != nil {
			return err
		}
		if err := repos.CartRepo().ClearSession(ctx, sessionID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		result.Outcome = OutcomeConfirmed
		return nil
	})

	switch {
	case errors.Is(err, errAlreadyConfirmed):
		result.Outcome = OutcomeDuplicate
		return nil
	case errors.Is(err, shared.ErrReservationExpired):
		result.Outcome = OutcomeExpired
		logger.For(ctx, s.logger).Warn("Payment succeeded for a reference whose stock is no longer held",
			zap.String("event_id", event.ID),
			zap.String("reference", event.Reference),
			zap.String("payment_id", event.PaymentID),
			zap.Error(err))
		s.publish(ctx, checkout.NewRefundRequiredEvent(event.Reference, sessionID, details, err.Error()))
		return err
	case err != nil:
		return err
	}

	if order == nil {
		return nil
	}
	result.OrderID = order.ID.String()
	if order.AmountMismatch() {
		s.logger.Warn("Provider amount differs from checkout total",
			zap.String("reference", order.Reference),
			zap.String("expected", order.Amount.String()+" "+order.Currency.String()),
			zap.String("reported", order.ProviderAmount.String()+" "+order.ProviderCurrency))
	}
	if m, err := valueobject.NewMoney(order.Amount, order.Currency); err == nil {
		s.metrics.RecordOrderConfirmed(ctx, order.Currency.String(), m.Minor())
	}
	s.publish(ctx, order.Events()...)
	order.ClearEvents()

	logger.For(ctx, s.logger).Info("Order confirmed",
		zap.String("order_id", order.ID.String()),
		zap.String("reference", order.Reference),
		zap.String("amount", order.Amount.String()),
		zap.String("currency", order.Currency.String()),
		zap.Int("lines", len(order.Lines)))
	return nil
}

// release returns the stock of every PENDING reservation of the reference
func (s *WebhookService) release(ctx context.Context, event *payment.WebhookEvent, reason checkout.ReleaseReason, result *WebhookResult) error {
	now := s.now().UTC()
	var (
		released  checkout.ReservationBatch
		sessionID uuid.UUID
	)
	err := s.scope.Execute(ctx, func(repos appcheckout.TransactionalRepositories) error {
		batch, err := repos.ReservationRepo().FindByReference(ctx, event.Reference)
		if err != nil {
			return fmt.Errorf("load reservations: %w", err)
		}
		if len(batch) == 0 {
			result.Outcome = OutcomeUnknownReference
			return nil
		}
		sessionID = batch.SessionID()
		if batch.AllIn(checkout.ReservationConfirmed) {
			result.Outcome = OutcomeIgnored
			s.logger.Warn("Payment failure reported for a confirmed reference",
				zap.String("event_id", event.ID),
				zap.String("reference", event.Reference))
			return nil
		}
		released, err = appcheckout.ReleasePending(ctx, repos, batch, reason, now)
		if err != nil {
			return err
		}
		if len(released) == 0 {
			result.Outcome = OutcomeDuplicate
			return nil
		}
		result.Outcome = OutcomeReleased
		return nil
	})
	if err != nil {
		return err
	}

	if len(released) > 0 {
		s.publish(ctx, checkout.NewReservationsReleasedEvent(event.Reference, sessionID, reason, released))
		s.logger.Info("Reservations released after payment did not complete",
			zap.String("reference", event.Reference),
			zap.String("reason", string(reason)),
			zap.Int("count", len(released)))
	}
	return nil
}

func (s *WebhookService) alreadyProcessed(ctx context.Context, eventID string) bool {
	if s.idempotency == nil {
		return false
	}
	seen, err := s.idempotency.IsProcessed(ctx, eventID)
	if err != nil {
		s.logger.Warn("Idempotency lookup failed, falling back to status checks",
			zap.String("event_id", eventID),
			zap.Error(err))
		return false
	}
	return seen
}

func (s *WebhookService) markProcessed(ctx context.Context, eventID string) {
	if s.idempotency == nil {
		return
	}
	if _, err := s.idempotency.MarkProcessed(ctx, eventID, s.idempotencyTTL); err != nil {
		s.logger.Warn("Failed to record processed webhook event",
			zap.String("event_id", eventID),
			zap.Error(err))
	}
}

func (s *WebhookService) finish(ctx context.Context, event *payment.WebhookEvent, result *WebhookResult) {
	s.metrics.RecordWebhookEvent(ctx, string(event.Kind), result.Outcome)
	level := zap.InfoLevel
	if result.Outcome == OutcomeDuplicate || result.Outcome == OutcomeIgnored {
		level = zap.DebugLevel
	}
	s.logger.Log(level, "Payment webhook handled",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("reference", event.Reference),
		zap.String("outcome", result.Outcome))
}

func (s *WebhookService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish payment events", zap.Error(err))
	}
}

func (s *WebhookService) store(ctx context.Context, key string, body []byte) {
	if s.archive == nil {
		return
	}
	if err := s.archive.Store(ctx, key, body); err != nil {
		s.logger.Warn("Failed to archive webhook payload",
			zap.String("key", key),
			zap.Error(err))
	}
}

func verifiedKey(at time.Time, eventID string) string {
	return fmt.Sprintf("webhooks/%s/%s.json", at.UTC().Format("2006/01/02"), safeKeyPart(eventID))
}

func rejectedKey(at time.Time) string {
	return fmt.Sprintf("rejected/%s/%s.json", at.UTC().Format("2006/01/02"), uuid.NewString())
}

func safeKeyPart(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
