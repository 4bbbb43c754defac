// Package social reads the social-velocity score cache maintained by the
// external refresher. The pipeline only ever reads; the refresher owns the
// write cadence. Put exists for the refresher process and for tests.
package social

import "context"

// Cache is the social score lookup contract. Get returns the cached score for
// a mint; stale reports that the entry outlived its freshness window but is
// still served, ok reports whether any entry exists at all. A miss is not an
// error: scoring treats an absent social score as neutral.
type Cache interface {
	Get(ctx context.Context, mint string) (score float64, stale bool, ok bool, err error)
	Put(ctx context.Context, mint string, score float64) error
}
