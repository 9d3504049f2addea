package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	appcheckout "github.com/storefront/backend/internal/application/checkout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSweeper struct {
	calls atomic.Int64
	err   error
	block chan struct{}
}

func (f *fakeSweeper) Sweep(ctx context.Context) (*appcheckout.SweepStats, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &appcheckout.SweepStats{Released: 1}, nil
}

func TestNewSweepScheduler_RejectsZeroInterval(t *testing.T) {
	_, err := NewSweepScheduler(&fakeSweeper{}, SweepSchedulerConfig{Enabled: true}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSweepScheduler_RunsPeriodically(t *testing.T) {
	sweeper := &fakeSweeper{}
	s, err := NewSweepScheduler(sweeper, SweepSchedulerConfig{
		Enabled:    true,
		Interval:   10 * time.Millisecond,
		RunOnStart: true,
	}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")

	assert.Eventually(t, func() bool { return s.Runs() >= 3 }, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	after := sweeper.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, sweeper.calls.Load(), "no sweeps after stop")
}

func TestSweepScheduler_Disabled(t *testing.T) {
	sweeper := &fakeSweeper{}
	s, err := NewSweepScheduler(sweeper, SweepSchedulerConfig{Enabled: false}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	assert.Zero(t, sweeper.calls.Load())
}

func TestSweepScheduler_RunOnceCountsFailures(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("database unavailable")}
	s, err := NewSweepScheduler(sweeper, DefaultSweepSchedulerConfig(), nil)
	require.NoError(t, err)

	s.RunOnce(context.Background())
	s.RunOnce(context.Background())

	assert.Equal(t, int64(2), s.Runs())
	assert.Equal(t, int64(2), s.Failures())
}

func TestSweepScheduler_TimeoutBoundsSweep(t *testing.T) {
	sweeper := &fakeSweeper{block: make(chan struct{})}
	s, err := NewSweepScheduler(sweeper, SweepSchedulerConfig{
		Enabled:  true,
		Interval: time.Hour,
		Timeout:  20 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	start := time.Now()
	s.RunOnce(context.Background())
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int64(1), s.Failures())
}
