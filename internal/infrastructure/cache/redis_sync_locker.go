package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	ordersync "github.com/channelpilot/backend/internal/application/sync"
)

// RedisSyncLocker implements ordersync.AccountLocker on Redis SETNX.
// The TTL bounds how long a crashed holder can block the next run.
type RedisSyncLocker struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisSyncLocker creates a locker on an existing Redis client
func NewRedisSyncLocker(client *redis.Client, keyPrefix string) *RedisSyncLocker {
	if keyPrefix == "" {
		keyPrefix = "lock:"
	}
	return &RedisSyncLocker{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Acquire takes the lock for ttl. Returns false when already held.
func (l *RedisSyncLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	return ok, nil
}

// Release frees the lock early
func (l *RedisSyncLocker) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release sync lock: %w", err)
	}
	return nil
}

// Ensure RedisSyncLocker implements ordersync.AccountLocker
var _ ordersync.AccountLocker = (*RedisSyncLocker)(nil)
