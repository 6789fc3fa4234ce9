package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/flexprice/plansync/internal/config"
	"github.com/flexprice/plansync/internal/logger"
	redisClient "github.com/flexprice/plansync/internal/redis"
	"github.com/flexprice/plansync/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Titles map[string]string `json:"titles"`
}

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis, *redisClient.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := config.GetDefaultConfig()
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = port

	client, err := redisClient.NewClient(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, logger.NewNopLogger()), mr, client
}

func TestCaches(t *testing.T) {
	redisCache, _, _ := newRedisCache(t)
	caches := map[string]Cache{
		"inmemory": NewInMemoryCache(),
		"redis":    redisCache,
	}

	for name, c := range caches {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			value := &payload{Titles: map[string]string{"pl_1": "Gold"}}

			c.Set(ctx, "plans:index", value, time.Minute)
			got, ok := Lookup[payload](ctx, c, "plans:index")
			require.True(t, ok)
			assert.Equal(t, "Gold", got.Titles["pl_1"])

			c.Set(ctx, "plans:other", "x", time.Minute)
			c.Set(ctx, "keep", "y", time.Minute)
			c.DeleteByPrefix(ctx, "plans:")
			_, ok = c.Get(ctx, "plans:index")
			assert.False(t, ok)
			_, ok = c.Get(ctx, "keep")
			assert.True(t, ok)

			c.Delete(ctx, "keep")
			_, ok = c.Get(ctx, "keep")
			assert.False(t, ok)

			c.Set(ctx, "a", "1", 0)
			c.Flush(ctx)
			_, ok = c.Get(ctx, "a")
			assert.False(t, ok)
		})
	}
}

func TestRedisCacheFlushLeavesOtherKeys(t *testing.T) {
	c, mr, _ := newRedisCache(t)
	require.NoError(t, mr.Set("plansync:history:1", "[]"))

	c.Set(context.Background(), "a", "1", time.Minute)
	c.Flush(context.Background())

	assert.True(t, mr.Exists("plansync:history:1"))
	assert.False(t, mr.Exists("plansync:cache:a"))
}

func TestInitialize(t *testing.T) {
	_, _, client := newRedisCache(t)
	cfg := config.GetDefaultConfig()

	assert.IsType(t, &InMemoryCache{}, Initialize(cfg, nil, logger.NewNopLogger()))

	cfg.Store.Type = types.StoreTypeRedis
	assert.IsType(t, &RedisCache{}, Initialize(cfg, client, logger.NewNopLogger()))
}

func TestLookupMisses(t *testing.T) {
	ctx := context.Background()
	_, ok := Lookup[payload](ctx, nil, "plans:index")
	assert.False(t, ok)

	c := NewInMemoryCache()
	_, ok = Lookup[payload](ctx, c, "plans:index")
	assert.False(t, ok)

	c.Set(ctx, "broken", "{broken", time.Minute)
	_, ok = Lookup[payload](ctx, c, "broken")
	assert.False(t, ok)

	c.Set(ctx, "number", 42, time.Minute)
	_, ok = Lookup[payload](ctx, c, "number")
	assert.False(t, ok)
}

func TestDecodeBytes(t *testing.T) {
	got, ok := decode[payload]([]byte(`{"titles":{"pl_2":"Silver"}}`))
	require.True(t, ok)
	assert.Equal(t, "Silver", got.Titles["pl_2"])
}
