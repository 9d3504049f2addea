package cache

import (
	"context"
	"sync"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
)

// InMemoryIdempotencyStore keeps processed event ids in a map. State is per
// process, so it only suits single-instance deployments and tests.
type InMemoryIdempotencyStore struct {
	mu        sync.Mutex
	expiresAt map[string]time.Time
	now       func() time.Time

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates a store that purges expired ids every
// cleanupInterval (one minute when zero)
func NewInMemoryIdempotencyStore(cleanupInterval time.Duration) *InMemoryIdempotencyStore {
	return newInMemoryIdempotencyStore(cleanupInterval, time.Now)
}

func newInMemoryIdempotencyStore(cleanupInterval time.Duration, now func() time.Time) *InMemoryIdempotencyStore {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	s := &InMemoryIdempotencyStore{
		expiresAt: make(map[string]time.Time),
		now:       now,
		stop:      make(chan struct{}),
	}
	s.wg.Add(1)
	go s.cleanupLoop(cleanupInterval)
	return s
}

// MarkProcessed records eventID until ttl elapses
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.expiresAt[eventID]; ok && now.Before(exp) {
		return false, nil
	}
	s.expiresAt[eventID] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether eventID is recorded and unexpired
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.expiresAt[eventID]
	return ok && s.now().Before(exp), nil
}

// Len returns the number of ids held, expired or not
func (s *InMemoryIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expiresAt)
}

// Close stops the cleanup goroutine
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.purgeExpired()
		}
	}
}

func (s *InMemoryIdempotencyStore) purgeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.expiresAt {
		if !now.Before(exp) {
			delete(s.expiresAt, id)
		}
	}
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
