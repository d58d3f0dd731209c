package channel

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/channelpilot/backend/internal/domain/shared"
)

var (
	ErrWebhookEventNotFound = errors.New("channel: webhook event not found")
	ErrDuplicateWebhook     = errors.New("channel: webhook already processed")
)

// WebhookEvent is the durable audit record of one received webhook. Digest is
// unique across events; it is the durable half of the dedup check, backing up
// the cache-side TTL window across restarts.
type WebhookEvent struct {
	shared.BaseEntity
	UserID      uuid.UUID
	Source      string
	Topic       string
	ShopRef     string
	Digest      string
	Payload     string
	ReceivedAt  time.Time
	ProcessedAt *time.Time
	Error       string
}

// NewWebhookEvent records a verified webhook before dispatch
func NewWebhookEvent(userID uuid.UUID, source, topic, shopRef, digest, payload string) *WebhookEvent {
	return &WebhookEvent{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		Source:     source,
		Topic:      topic,
		ShopRef:    shopRef,
		Digest:     digest,
		Payload:    payload,
		ReceivedAt: time.Now(),
	}
}

// MarkProcessed stamps successful handling
func (e *WebhookEvent) MarkProcessed(at time.Time) {
	e.ProcessedAt = &at
	e.Error = ""
	e.Touch()
}

// MarkFailed records a handler failure. The event stays unprocessed so the
// row is visible to operators; the sender still gets a 2xx.
func (e *WebhookEvent) MarkFailed(msg string) {
	e.Error = msg
	e.Touch()
}

// WebhookEventRepository is the persistence boundary for webhook events
type WebhookEventRepository interface {
	// Save inserts the event; a digest collision returns
	// ErrDuplicateWebhook
	Save(ctx context.Context, event *WebhookEvent) error

	// Update persists processed/error mutations
	Update(ctx context.Context, event *WebhookEvent) error

	// ExistsProcessed reports whether a processed event carries the digest.
	// Unprocessed rows do not count; they are pending retries.
	ExistsProcessed(ctx context.Context, digest string) (bool, error)

	// FindByDigest loads the event carrying the digest
	FindByDigest(ctx context.Context, digest string) (*WebhookEvent, error)

	// FindByUser lists a user's events newest first
	FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*WebhookEvent, error)
}
