package dedup

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisDeduper dedupes across processes with an atomic SETNX + TTL per id.
type RedisDeduper struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisDeduper creates a RedisDeduper. prefix defaults to
// "tokenwatch:seen:".
func NewRedisDeduper(rdb *goredis.Client, prefix string, ttl time.Duration) *RedisDeduper {
	if prefix == "" {
		prefix = "tokenwatch:seen:"
	}
	return &RedisDeduper{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Compile-time interface check.
var _ Deduper = (*RedisDeduper)(nil)

func (d *RedisDeduper) Seen(ctx context.Context, id string) (bool, error) {
	key := d.prefix + id

	set, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx %s: %w", id, err)
	}
	// set=true means this call claimed the key, so the id was not seen.
	return !set, nil
}
