package cache

import (
	"context"
	"time"
)

const (
	ExpiryDefaultInMemory = 30 * time.Minute
	ExpiryDefaultRedis    = 5 * time.Minute

	// ExpiryPlanIndex bounds how stale the plan id to item lookup may get
	ExpiryPlanIndex = time.Minute
)

// Cache is a key/value cache with per-entry expiry
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)
	Delete(ctx context.Context, key string)
	DeleteByPrefix(ctx context.Context, prefix string)
	Flush(ctx context.Context)
}
