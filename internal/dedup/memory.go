package dedup

import (
	"context"
	"sync"
	"time"
)

// sweepThreshold bounds map growth between expiry sweeps.
const sweepThreshold = 4096

// MemoryDeduper is an in-process Deduper for tests and single-node runs.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryDeduper creates a MemoryDeduper with the given window.
func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Compile-time interface check.
var _ Deduper = (*MemoryDeduper)(nil)

func (d *MemoryDeduper) Seen(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if expires, ok := d.seen[id]; ok && now.Before(expires) {
		return true, nil
	}
	d.seen[id] = now.Add(d.ttl)

	// Opportunistic sweep keeps the map from growing unbounded.
	if len(d.seen) >= sweepThreshold {
		for k, expires := range d.seen {
			if now.After(expires) {
				delete(d.seen, k)
			}
		}
	}
	return false, nil
}
