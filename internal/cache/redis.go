package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/flexprice/plansync/internal/logger"
	redisClient "github.com/flexprice/plansync/internal/redis"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

const (
	cacheKeySpace   = "cache"
	scanCount       = 100
	deleteBatchSize = 500
)

// RedisCache implements Cache on Redis, namespaced under <prefix>:cache:
type RedisCache struct {
	client *redisClient.Client
	log    *logger.Logger
}

func NewRedisCache(client *redisClient.Client, log *logger.Logger) *RedisCache {
	return &RedisCache{client: client, log: log}
}

func (c *RedisCache) key(key string) string {
	return c.client.Key(cacheKeySpace, key)
}

// Get returns the stored JSON text; Lookup decodes it
func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	value, err := c.client.GetClient().Get(ctx, c.key(key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false
	case err != nil:
		c.log.Errorw("redis cache get failed", "key", key, "error", err)
		return nil, false
	}
	return value, true
}

// Set stores value as JSON text. Strings are stored as given.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	if expiration == 0 {
		expiration = ExpiryDefaultRedis
	}

	encoded, err := encode(value)
	if err != nil {
		c.log.Errorw("failed to encode cache value", "key", key, "error", err)
		return
	}
	if err := c.client.GetClient().Set(ctx, c.key(key), encoded, expiration).Err(); err != nil {
		c.log.Errorw("redis cache set failed", "key", key, "error", err)
	}
}

func encode(value interface{}) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.GetClient().Unlink(ctx, c.key(key)).Err(); err != nil {
		c.log.Errorw("redis cache delete failed", "key", key, "error", err)
	}
}

// DeleteByPrefix unlinks every cache key starting with prefix. Keys are
// collected with SCAN first and removed in pipelined batches.
func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) {
	rdb := c.client.GetClient()

	var keys []string
	iter := rdb.Scan(ctx, 0, c.key(prefix)+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.Errorw("redis cache scan failed", "prefix", prefix, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}

	_, err := rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, batch := range lo.Chunk(keys, deleteBatchSize) {
			pipe.Unlink(ctx, batch...)
		}
		return nil
	})
	if err != nil {
		c.log.Errorw("redis cache unlink failed", "prefix", prefix, "keys", len(keys), "error", err)
	}
}

// Flush removes every cache entry, leaving plan data untouched
func (c *RedisCache) Flush(ctx context.Context) {
	c.DeleteByPrefix(ctx, "")
}
