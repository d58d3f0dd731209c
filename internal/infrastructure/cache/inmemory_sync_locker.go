package cache

import (
	"context"
	"sync"
	"time"

	ordersync "github.com/channelpilot/backend/internal/application/sync"
)

// InMemorySyncLocker implements ordersync.AccountLocker with a local map.
// Suitable for single-instance deployments and testing. Expired holds are
// reclaimed lazily on the next Acquire.
type InMemorySyncLocker struct {
	mu    sync.Mutex
	holds map[string]time.Time
}

// NewInMemorySyncLocker creates a new in-memory locker
func NewInMemorySyncLocker() *InMemorySyncLocker {
	return &InMemorySyncLocker{
		holds: make(map[string]time.Time),
	}
}

// Acquire takes the lock for ttl. Returns false when already held.
func (l *InMemorySyncLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiresAt, held := l.holds[key]; held && time.Now().Before(expiresAt) {
		return false, nil
	}

	l.holds[key] = time.Now().Add(ttl)
	return true, nil
}

// Release frees the lock early
func (l *InMemorySyncLocker) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.holds, key)
	return nil
}

// Ensure InMemorySyncLocker implements ordersync.AccountLocker
var _ ordersync.AccountLocker = (*InMemorySyncLocker)(nil)
