// Package dedup suppresses re-processing of recently seen stream events
// before they reach the dispatch queue.
package dedup

import "context"

// Deduper records ids atomically with a TTL. Seen returns true when the id
// was already recorded inside the window, false when this call recorded it.
type Deduper interface {
	Seen(ctx context.Context, id string) (bool, error)
}
