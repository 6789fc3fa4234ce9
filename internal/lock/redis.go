package lock

import (
	"context"
	"sync"
	"time"

	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/flexprice/plansync/internal/logger"
	redisClient "github.com/flexprice/plansync/internal/redis"
	"github.com/flexprice/plansync/internal/types"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds our token
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard serializes runs across processes sharing one Redis. The lock
// expires after ttl so a crashed holder cannot block runs forever.
type RedisGuard struct {
	client *redisClient.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisGuard(client *redisClient.Client, ttl time.Duration, log *logger.Logger) *RedisGuard {
	if ttl <= 0 {
		ttl = types.DefaultLockTTL
	}
	return &RedisGuard{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func (g *RedisGuard) TryAcquire(ctx context.Context, key string) (ReleaseFunc, error) {
	redisKey := g.client.Key("lock", key)
	token := uuid.NewString()

	ok, err := g.client.GetClient().SetNX(ctx, redisKey, token, g.ttl).Result()
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to acquire run lock").
			WithReportableDetails(map[string]interface{}{
				"key": key,
			}).
			Mark(ierr.ErrDatabase)
	}
	if !ok {
		return nil, alreadyRunning(key)
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, g.client.GetClient(), []string{redisKey}, token).Err(); err != nil {
				g.log.Errorw("failed to release run lock", "key", key, "error", err)
			}
		})
	}
	return release, nil
}
