package checkout

import (
	"context"
	"time"

	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ExpirationService releases lapsed reservations and removes abandoned
// sessions. It is run by a single periodic worker.
type ExpirationService struct {
	scope            TransactionScope
	reservationRepo  checkout.ReservationRepository
	sessionRepo      checkout.SessionRepository
	publisher        shared.EventPublisher
	metrics          *telemetry.CheckoutMetrics
	logger           *zap.Logger
	batchSize        int
	sessionBatchSize int
	sessionGrace     time.Duration
	now              func() time.Time
}

// ExpirationServiceConfig contains configuration for ExpirationService
type ExpirationServiceConfig struct {
	Scope           TransactionScope
	ReservationRepo checkout.ReservationRepository
	SessionRepo     checkout.SessionRepository
	Publisher       shared.EventPublisher
	Metrics         *telemetry.CheckoutMetrics
	Logger          *zap.Logger
	// BatchSize caps the reservations handled per sweep
	BatchSize int
	// SessionBatchSize caps the sessions deleted per sweep
	SessionBatchSize int
	// SessionGrace is how long past expiry a session is kept before deletion
	SessionGrace time.Duration
	Clock        func() time.Time
}

// NewExpirationService creates a new ExpirationService
func NewExpirationService(cfg ExpirationServiceConfig) *ExpirationService {
	s := &ExpirationService{
		scope:            cfg.Scope,
		reservationRepo:  cfg.ReservationRepo,
		sessionRepo:      cfg.SessionRepo,
		publisher:        cfg.Publisher,
		metrics:          cfg.Metrics,
		logger:           cfg.Logger,
		batchSize:        cfg.BatchSize,
		sessionBatchSize: cfg.SessionBatchSize,
		sessionGrace:     cfg.SessionGrace,
		now:              cfg.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.batchSize <= 0 {
		s.batchSize = 500
	}
	if s.sessionBatchSize <= 0 {
		s.sessionBatchSize = 500
	}
	if s.sessionGrace <= 0 {
		s.sessionGrace = DefaultSessionTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// SweepStats contains statistics about one sweep
type SweepStats struct {
	TotalExpired    int           `json:"total_expired"`
	Released        int           `json:"released"`
	Skipped         int           `json:"skipped"`
	FailedBatches   int           `json:"failed_batches"`
	SessionsDeleted int64         `json:"sessions_deleted"`
	ProcessedAt     time.Time     `json:"processed_at"`
	Duration        time.Duration `json:"duration"`
}

// Sweep releases expired reservations, then deletes abandoned sessions
func (s *ExpirationService) Sweep(ctx context.Context) (*SweepStats, error) {
	start := time.Now()
	stats, err := s.ReleaseExpired(ctx)
	if err != nil {
		return nil, err
	}

	deleted, err := s.DeleteExpiredSessions(ctx)
	if err != nil {
		s.logger.Error("Failed to delete expired sessions", zap.Error(err))
	}
	stats.SessionsDeleted = deleted
	stats.Duration = time.Since(start)
	s.metrics.RecordSweep(ctx, stats.Duration)
	return stats, nil
}

// ReleaseExpired finds PENDING reservations past expiry and releases them,
// one transaction per payment reference. A reservation confirmed by a
// webhook between the lookup and the release keeps its status; the status
// guard in the release statement decides the winner.
func (s *ExpirationService) ReleaseExpired(ctx context.Context) (*SweepStats, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "release_expired")
	defer span.End()

	now := s.now().UTC()
	stats := &SweepStats{ProcessedAt: now}

	expired, err := s.reservationRepo.FindExpiredPending(ctx, now, s.batchSize)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("Failed to find expired reservations", zap.Error(err))
		return nil, err
	}
	stats.TotalExpired = len(expired)
	if stats.TotalExpired == 0 {
		s.logger.Debug("No expired reservations found")
		return stats, nil
	}

	for _, group := range groupByReference(expired) {
		var released checkout.ReservationBatch
		err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			released, err = ReleasePending(ctx, repos, group, checkout.ReleaseExpired, now)
			return err
		})
		if err != nil {
			stats.FailedBatches++
			s.logger.Error("Failed to release expired reservations",
				zap.String("reference", group.Reference()),
				zap.Error(err))
			continue
		}

		stats.Released += len(released)
		stats.Skipped += len(group) - len(released)
		if len(released) == 0 {
			continue
		}
		s.metrics.RecordReservationsExpired(ctx, len(released))
		s.publish(ctx, checkout.NewReservationsReleasedEvent(group.Reference(), group.SessionID(), checkout.ReleaseExpired, released))
	}

	span.SetAttributes(
		attribute.Int("expired", stats.TotalExpired),
		attribute.Int("released", stats.Released),
		attribute.Int("failed_batches", stats.FailedBatches),
	)
	s.logger.Info("Completed expired reservation release",
		zap.Int("total", stats.TotalExpired),
		zap.Int("released", stats.Released),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed_batches", stats.FailedBatches),
	)
	return stats, nil
}

// DeleteExpiredSessions removes sessions that lapsed more than the grace
// period ago and hold no PENDING reservation
func (s *ExpirationService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.sessionGrace)
	deleted, err := s.sessionRepo.DeleteExpired(ctx, cutoff, s.sessionBatchSize)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("Deleted expired shopping sessions", zap.Int64("count", deleted))
	}
	return deleted, nil
}

func (s *ExpirationService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish ReservationsReleased event", zap.Error(err))
	}
}

// groupByReference splits reservations into per-reference batches, keeping
// the order in which references first appear
func groupByReference(reservations checkout.ReservationBatch) []checkout.ReservationBatch {
	index := make(map[string]int)
	var groups []checkout.ReservationBatch
	for _, r := range reservations {
		i, ok := index[r.Reference]
		if !ok {
			i = len(groups)
			index[r.Reference] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], r)
	}
	return groups
}
