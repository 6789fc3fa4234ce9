package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/flexprice/plansync/internal/config"
	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/flexprice/plansync/internal/logger"
	"github.com/redis/go-redis/v9"
)

// Client wraps Redis client functionality
type Client struct {
	rdb       *redis.Client
	log       *logger.Logger
	keyPrefix string
}

// NewClient creates a new Redis client and verifies the connection
func NewClient(cfg *config.Configuration, log *logger.Logger) (*Client, error) {
	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.Timeout,
		ReadTimeout:  cfg.Redis.Timeout,
		WriteTimeout: cfg.Redis.Timeout,
		PoolSize:     cfg.Redis.PoolSize,
	}

	if cfg.Redis.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, ierr.WithError(err).
			WithHint("Failed to connect to Redis").
			WithReportableDetails(map[string]interface{}{
				"addr": opts.Addr,
			}).
			Mark(ierr.ErrDatabase)
	}

	log.Infow("connected to Redis", "addr", opts.Addr, "db", cfg.Redis.DB)

	return &Client{
		rdb:       rdb,
		log:       log,
		keyPrefix: strings.TrimSuffix(cfg.Redis.KeyPrefix, ":"),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Key joins parts under the configured key prefix, e.g. plansync:history:42
func (c *Client) Key(parts ...string) string {
	if c.keyPrefix == "" {
		return strings.Join(parts, ":")
	}
	return c.keyPrefix + ":" + strings.Join(parts, ":")
}

// Close closes the Redis client connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the Redis connection
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.rdb.Ping(ctx).Result()
	return err
}
