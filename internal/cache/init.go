package cache

import (
	"github.com/flexprice/plansync/internal/config"
	"github.com/flexprice/plansync/internal/logger"
	redisClient "github.com/flexprice/plansync/internal/redis"
	"github.com/flexprice/plansync/internal/types"
)

// Initialize picks the cache that matches the plan history store: Redis when
// the store is Redis, so every process sees the same entries, else in-memory
func Initialize(cfg *config.Configuration, client *redisClient.Client, log *logger.Logger) Cache {
	if cfg.Store.Type == types.StoreTypeRedis && client != nil {
		log.Infow("cache initialized", "type", "redis")
		return NewRedisCache(client, log)
	}
	log.Infow("cache initialized", "type", "inmemory")
	return NewInMemoryCache()
}
