package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AccountLocker serializes sync runs per channel account. Acquire is
// first-writer-wins; a held lock means another run is in flight and the
// caller fails fast instead of queueing.
type AccountLocker interface {
	// Acquire takes the lock for ttl. Returns false when already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release frees the lock early. Expiry covers crashed holders.
	Release(ctx context.Context, key string) error
}

// lockKey builds the per-account lock key
func lockKey(userID, accountID uuid.UUID) string {
	return fmt.Sprintf("sync:%s:%s", userID, accountID)
}
