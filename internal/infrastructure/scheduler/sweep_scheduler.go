// Package scheduler runs periodic background jobs.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	appcheckout "github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrInvalidConfig is returned for a non-positive sweep interval
var ErrInvalidConfig = errors.New("invalid scheduler configuration")

// Sweeper releases expired reservations and removes abandoned sessions
type Sweeper interface {
	Sweep(ctx context.Context) (*appcheckout.SweepStats, error)
}

// SweepSchedulerConfig holds configuration for the expiry sweep
type SweepSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// Interval between the end of one sweep and the start of the next
	Interval time.Duration

	// Timeout bounds a single sweep
	Timeout time.Duration

	// RunOnStart sweeps once immediately instead of waiting one interval
	RunOnStart bool
}

// DefaultSweepSchedulerConfig returns default configuration
func DefaultSweepSchedulerConfig() SweepSchedulerConfig {
	return SweepSchedulerConfig{
		Enabled:    true,
		Interval:   time.Minute,
		Timeout:    30 * time.Second,
		RunOnStart: true,
	}
}

// SweepScheduler runs the expiry sweep on a fixed interval. Only one sweep
// runs at a time; a sweep that overruns delays the next one.
type SweepScheduler struct {
	sweeper Sweeper
	config  SweepSchedulerConfig
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	runs     atomic.Int64
	failures atomic.Int64
}

// NewSweepScheduler creates a new SweepScheduler
func NewSweepScheduler(sweeper Sweeper, config SweepSchedulerConfig, logger *zap.Logger) (*SweepScheduler, error) {
	if config.Enabled && config.Interval <= 0 {
		return nil, ErrInvalidConfig
	}
	if config.Timeout <= 0 {
		config.Timeout = config.Interval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepScheduler{
		sweeper: sweeper,
		config:  config,
		logger:  logger,
	}, nil
}

// Start starts the sweep loop
func (s *SweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Reservation expiry sweep is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Reservation expiry sweep started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("timeout", s.config.Timeout))
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep to finish
func (s *SweepScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Reservation expiry sweep stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Reservation expiry sweep stop timed out")
		return ctx.Err()
	}
}

// Runs returns the number of completed sweeps, successful or not
func (s *SweepScheduler) Runs() int64 { return s.runs.Load() }

// Failures returns the number of sweeps that returned an error
func (s *SweepScheduler) Failures() int64 { return s.failures.Load() }

// RunOnce performs one sweep synchronously
func (s *SweepScheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	labels := telemetry.OperationLabels(telemetry.OperationExpirySweep, nil)
	telemetry.WithProfilingLabels(ctx, labels, func(ctx context.Context) {
		stats, err := s.sweeper.Sweep(ctx)
		s.runs.Add(1)
		if err != nil {
			s.failures.Add(1)
			s.logger.Error("Reservation expiry sweep failed", zap.Error(err))
			return
		}
		if stats.Released > 0 || stats.SessionsDeleted > 0 || stats.FailedBatches > 0 {
			s.logger.Info("Reservation expiry sweep completed",
				zap.Int("released", stats.Released),
				zap.Int("failed_batches", stats.FailedBatches),
				zap.Int64("sessions_deleted", stats.SessionsDeleted),
				zap.Duration("duration", stats.Duration))
		}
	})
}

func (s *SweepScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.RunOnce(ctx)
	}

	timer := time.NewTimer(s.config.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Reservation expiry sweep loop stopping")
			return
		case <-timer.C:
			s.RunOnce(ctx)
			timer.Reset(s.config.Interval)
		}
	}
}
