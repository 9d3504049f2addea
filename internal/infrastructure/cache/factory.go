package cache

import (
	"context"
	"fmt"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore returns a Redis store when Redis is enabled and
// reachable. When Redis is disabled it returns an in-memory store. When Redis
// is enabled but unreachable it falls back to memory only if allowFallback is
// set, since a per-process store lets a replayed webhook reach a second
// instance.
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, allowFallback bool, logger *zap.Logger) (shared.IdempotencyStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Info("Redis disabled, using in-memory webhook idempotency store")
		return NewInMemoryIdempotencyStore(0), nil
	}

	client, err := NewRedisClient(ctx, cfg)
	if err == nil {
		logger.Info("Using Redis webhook idempotency store", zap.String("addr", cfg.Addr()))
		return NewRedisIdempotencyStore(client, ""), nil
	}
	if !allowFallback {
		return nil, fmt.Errorf("redis required for webhook idempotency: %w", err)
	}

	logger.Warn("Redis unavailable, falling back to in-memory webhook idempotency store",
		zap.String("addr", cfg.Addr()),
		zap.Error(err))
	return NewInMemoryIdempotencyStore(0), nil
}
