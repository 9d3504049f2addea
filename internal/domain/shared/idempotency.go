package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which externally delivered messages (provider
// webhook event ids) were already processed.
type IdempotencyStore interface {
	// MarkProcessed records the id. It returns true if the id was newly
	// recorded and false if it had already been recorded.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether the id has been recorded and not yet expired.
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close releases resources held by the store
	Close() error
}

// IdempotencyConfig configures how long processed ids are remembered
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig covers the retry window of common payment providers
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     72 * time.Hour,
		Enabled: true,
	}
}
