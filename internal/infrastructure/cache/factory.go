package cache

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	ordersync "github.com/channelpilot/backend/internal/application/sync"
	"github.com/channelpilot/backend/internal/application/webhook"
	"github.com/channelpilot/backend/internal/infrastructure/config"
)

// Factory creates the Redis-backed stores, falling back to in-memory
// implementations when Redis is unavailable. A single client is dialed
// lazily and shared across everything the factory creates.
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	client                *redis.Client
	dialErr               error
	dialed                bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when
// Redis is unavailable. Default is true (allow fallback).
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// redisClient dials Redis on first use and caches the result
func (f *Factory) redisClient() (*redis.Client, error) {
	if !f.dialed {
		f.dialed = true
		f.client, f.dialErr = NewRedisClient(RedisConfig{
			Host:     f.redisConfig.Host,
			Port:     f.redisConfig.Port,
			Password: f.redisConfig.Password,
			DB:       f.redisConfig.DB,
		})
	}
	return f.client, f.dialErr
}

// DedupStore creates the webhook dedup store.
// WARNING: the in-memory fallback does not share state across process
// instances; the durable digest column still catches cross-instance
// duplicates, at the cost of a DB round trip per delivery.
func (f *Factory) DedupStore() (webhook.DedupStore, error) {
	client, err := f.redisClient()
	if err == nil {
		f.logger.Info("using Redis webhook dedup store")
		return NewRedisDedupStore(client, ""), nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for webhook dedup but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory webhook dedup store",
		zap.Error(err),
	)
	return NewInMemoryDedupStore(), nil
}

// SyncLocker creates the per-account sync locker.
// WARNING: the in-memory fallback cannot serialize sync runs across process
// instances, which can lead to concurrent imports for the same account.
func (f *Factory) SyncLocker() (ordersync.AccountLocker, error) {
	client, err := f.redisClient()
	if err == nil {
		f.logger.Info("using Redis sync locker")
		return NewRedisSyncLocker(client, ""), nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for sync locking but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory sync locker",
		zap.Error(err),
	)
	return NewInMemorySyncLocker(), nil
}

// Close closes the shared Redis client if one was dialed
func (f *Factory) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
