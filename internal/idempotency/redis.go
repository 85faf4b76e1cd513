package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"harvest-wallet-backend/internal/logger"
)

const (
	defaultPrefix = "harvest-wallet:idem:"
	defaultTTL    = 24 * time.Hour
)

// RedisCache remembers applied idempotency keys so replays can skip the
// ledger transaction. Entries expire after ttl; the ledger's own record of
// the key never does.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration, prefix string) *RedisCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisCache{client: client, ttl: ttl, prefix: prefix}
}

// NewRedisClient connects to addr and pings it.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	logger.Info("Redis connection established", "address", addr)
	return client, nil
}

func (c *RedisCache) Seen(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	return n > 0, nil
}

func (c *RedisCache) Remember(ctx context.Context, key string) error {
	if err := c.client.Set(ctx, c.prefix+key, "1", c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}
