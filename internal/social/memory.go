package social

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-memory Cache for tests and single-process runs.
type MemoryCache struct {
	mu       sync.RWMutex
	entries  map[string]memoryEntry
	staleTTL time.Duration
	hardTTL  time.Duration
	now      func() time.Time
}

type memoryEntry struct {
	score     float64
	fetchedAt time.Time
}

// NewMemoryCache creates a MemoryCache. Entries older than staleTTL are served
// with the stale flag set; entries older than hardTTL are treated as absent.
func NewMemoryCache(staleTTL, hardTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		entries:  make(map[string]memoryEntry),
		staleTTL: staleTTL,
		hardTTL:  hardTTL,
		now:      time.Now,
	}
}

// Compile-time interface check.
var _ Cache = (*MemoryCache)(nil)

func (c *MemoryCache) Get(_ context.Context, mint string) (float64, bool, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[mint]
	if !ok {
		return 0, false, false, nil
	}

	age := c.now().Sub(e.fetchedAt)
	if age > c.hardTTL {
		return 0, false, false, nil
	}
	return e.score, age > c.staleTTL, true, nil
}

func (c *MemoryCache) Put(_ context.Context, mint string, score float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[mint] = memoryEntry{score: score, fetchedAt: c.now()}
	return nil
}
