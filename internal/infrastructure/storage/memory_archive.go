package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryPayloadArchive keeps payloads in process. It backs the server when
// the S3 archive is disabled and doubles as a test fake.
type MemoryPayloadArchive struct {
	mu      sync.RWMutex
	objects map[string][]byte
	limit   int
}

// NewMemoryPayloadArchive creates an archive holding at most limit objects.
// Zero means unbounded. Once full, new keys are dropped.
func NewMemoryPayloadArchive(limit int) *MemoryPayloadArchive {
	return &MemoryPayloadArchive{
		objects: make(map[string][]byte),
		limit:   limit,
	}
}

// Store copies body under key
func (a *MemoryPayloadArchive) Store(_ context.Context, key string, body []byte) error {
	if key == "" {
		return errors.New("archive key is required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.objects[key]; !exists && a.limit > 0 && len(a.objects) >= a.limit {
		return nil
	}
	a.objects[key] = append([]byte(nil), body...)
	return nil
}

// Get returns the payload stored under key
func (a *MemoryPayloadArchive) Get(key string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	body, ok := a.objects[key]
	return body, ok
}

// Keys lists stored keys in lexical order
func (a *MemoryPayloadArchive) Keys() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, 0, len(a.objects))
	for k := range a.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
