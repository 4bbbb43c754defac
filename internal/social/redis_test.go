package social

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return mr, client
}

func TestRedisCacheGetMiss(t *testing.T) {
	_, client := setupTestRedis(t)
	c := NewRedisCache(client, "", 15*time.Minute, time.Hour)

	_, stale, ok, err := c.Get(context.Background(), "UnknownMint")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, stale)
}

func TestRedisCachePutGet(t *testing.T) {
	_, client := setupTestRedis(t)
	c := NewRedisCache(client, "", 15*time.Minute, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "MintA", 72.5))

	score, stale, ok, err := c.Get(ctx, "MintA")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, stale)
	assert.InDelta(t, 72.5, score, 0.0001)
}

func TestRedisCacheRefresherKeyFormat(t *testing.T) {
	// The external refresher writes bare floats under nova:social:<mint>.
	mr, client := setupTestRedis(t)
	c := NewRedisCache(client, "", 15*time.Minute, time.Hour)

	require.NoError(t, mr.Set("nova:social:MintB", "88"))
	mr.SetTTL("nova:social:MintB", time.Hour)

	score, stale, ok, err := c.Get(context.Background(), "MintB")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, stale)
	assert.InDelta(t, 88, score, 0.0001)
}

func TestRedisCacheStaleness(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := NewRedisCache(client, "", 15*time.Minute, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "MintA", 50))

	// Age the entry past the freshness window but not past expiry.
	mr.FastForward(30 * time.Minute)

	score, stale, ok, err := c.Get(ctx, "MintA")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, stale)
	assert.InDelta(t, 50, score, 0.0001)

	// Past the hard TTL the key is gone entirely.
	mr.FastForward(time.Hour)

	_, _, ok, err = c.Get(ctx, "MintA")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheMalformedValue(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := NewRedisCache(client, "", 15*time.Minute, time.Hour)

	require.NoError(t, mr.Set("nova:social:BadMint", "not-a-number"))

	_, _, _, err := c.Get(context.Background(), "BadMint")
	assert.Error(t, err)
}

func TestRedisCacheCustomPrefix(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := NewRedisCache(client, "alt:social:", 15*time.Minute, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "MintA", 42))
	assert.True(t, mr.Exists("alt:social:MintA"))

	score, _, ok, err := c.Get(ctx, "MintA")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 42, score, 0.0001)
}
