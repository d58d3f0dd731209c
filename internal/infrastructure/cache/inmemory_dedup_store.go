package cache

import (
	"context"
	"sync"
	"time"

	"github.com/channelpilot/backend/internal/application/webhook"
)

// entry represents a stored digest with expiration
type entry struct {
	expiresAt time.Time
}

// InMemoryDedupStore implements webhook.DedupStore using an in-memory map.
// This is suitable for single-instance deployments and testing. The durable
// digest column on webhook_events still catches duplicates across restarts.
type InMemoryDedupStore struct {
	mu        sync.Mutex
	entries   map[string]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryDedupStore creates a new in-memory dedup store.
// It starts a background goroutine to clean up expired entries.
func NewInMemoryDedupStore() *InMemoryDedupStore {
	store := &InMemoryDedupStore{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// IsSeen reports whether the digest is inside its TTL window
func (s *InMemoryDedupStore) IsSeen(ctx context.Context, digest string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[digest]; exists && time.Now().Before(e.expiresAt) {
		return true, nil
	}
	return false, nil
}

// MarkSeen opens the TTL window for a digest. Called only after the event
// has been processed; a pending retry must stay unmarked.
func (s *InMemoryDedupStore) MarkSeen(ctx context.Context, digest string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[digest] = entry{
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Close stops the cleanup goroutine and releases resources.
// Safe to call multiple times.
func (s *InMemoryDedupStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryDedupStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired entries from the store
func (s *InMemoryDedupStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for digest, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, digest)
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryDedupStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Ensure InMemoryDedupStore implements webhook.DedupStore
var _ webhook.DedupStore = (*InMemoryDedupStore)(nil)
