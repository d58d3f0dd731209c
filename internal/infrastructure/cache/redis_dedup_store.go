package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/channelpilot/backend/internal/application/webhook"
)

// RedisDedupStore implements webhook.DedupStore using Redis.
// This is suitable for distributed deployments where multiple instances
// receive deliveries for the same shop.
type RedisDedupStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisDedupStore creates a dedup store on an existing Redis client
func NewRedisDedupStore(client *redis.Client, keyPrefix string) *RedisDedupStore {
	if keyPrefix == "" {
		keyPrefix = "webhook:dedup:"
	}
	return &RedisDedupStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// IsSeen reports whether the digest is inside its TTL window
func (s *RedisDedupStore) IsSeen(ctx context.Context, digest string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+digest).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check webhook digest: %w", err)
	}
	return n > 0, nil
}

// MarkSeen opens the TTL window for a digest. Called only after the event
// has been processed; a pending retry must stay unmarked.
func (s *RedisDedupStore) MarkSeen(ctx context.Context, digest string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.keyPrefix+digest, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark webhook digest: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client
func (s *RedisDedupStore) Close() error {
	return s.client.Close()
}

// Ensure RedisDedupStore implements webhook.DedupStore
var _ webhook.DedupStore = (*RedisDedupStore)(nil)
