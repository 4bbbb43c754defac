package social

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisCache reads scores the refresher writes as plain floats under
// "<prefix><mint>". Freshness is derived from the key's remaining TTL: the
// refresher writes with hardTTL, so an entry's age is hardTTL minus what is
// left on the clock.
type RedisCache struct {
	rdb      *goredis.Client
	prefix   string
	staleTTL time.Duration
	hardTTL  time.Duration
}

// NewRedisCache creates a RedisCache. prefix defaults to "nova:social:".
func NewRedisCache(rdb *goredis.Client, prefix string, staleTTL, hardTTL time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "nova:social:"
	}
	return &RedisCache{rdb: rdb, prefix: prefix, staleTTL: staleTTL, hardTTL: hardTTL}
}

// Compile-time interface check.
var _ Cache = (*RedisCache)(nil)

func (c *RedisCache) Get(ctx context.Context, mint string) (float64, bool, bool, error) {
	key := c.prefix + mint

	pipe := c.rdb.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, false, false, nil
		}
		return 0, false, false, fmt.Errorf("social cache get %s: %w", mint, err)
	}

	score, err := strconv.ParseFloat(getCmd.Val(), 64)
	if err != nil {
		return 0, false, false, fmt.Errorf("social cache parse %s: %w", mint, err)
	}

	stale := false
	if remaining := ttlCmd.Val(); remaining > 0 && c.hardTTL > 0 {
		age := c.hardTTL - remaining
		stale = age > c.staleTTL
	}
	return score, stale, true, nil
}

func (c *RedisCache) Put(ctx context.Context, mint string, score float64) error {
	key := c.prefix + mint
	if err := c.rdb.Set(ctx, key, strconv.FormatFloat(score, 'f', -1, 64), c.hardTTL).Err(); err != nil {
		return fmt.Errorf("social cache put %s: %w", mint, err)
	}
	return nil
}
