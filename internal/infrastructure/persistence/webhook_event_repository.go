package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/channelpilot/backend/internal/domain/channel"
	"github.com/channelpilot/backend/internal/infrastructure/persistence/models"
)

// GormWebhookEventRepository implements channel.WebhookEventRepository using GORM
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewGormWebhookEventRepository creates a new GormWebhookEventRepository
func NewGormWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// Save inserts the event. A digest collision means the webhook was already
// recorded, possibly by another instance, and maps to ErrDuplicateWebhook.
func (r *GormWebhookEventRepository) Save(ctx context.Context, event *channel.WebhookEvent) error {
	m := &models.WebhookEventModel{}
	m.FromDomain(event)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return channel.ErrDuplicateWebhook
		}
		return err
	}
	return nil
}

// Update persists processed/error mutations
func (r *GormWebhookEventRepository) Update(ctx context.Context, event *channel.WebhookEvent) error {
	m := &models.WebhookEventModel{}
	m.FromDomain(event)
	return r.db.WithContext(ctx).Save(m).Error
}

// ExistsProcessed reports whether a processed event carries the digest.
// Unprocessed rows are pending retries and do not count as duplicates.
func (r *GormWebhookEventRepository) ExistsProcessed(ctx context.Context, digest string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.WebhookEventModel{}).
		Where("digest = ? AND processed_at IS NOT NULL", digest).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByDigest loads the event carrying the digest
func (r *GormWebhookEventRepository) FindByDigest(ctx context.Context, digest string) (*channel.WebhookEvent, error) {
	var m models.WebhookEventModel
	if err := r.db.WithContext(ctx).
		Where("digest = ?", digest).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, channel.ErrWebhookEventNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByUser lists a user's events newest first
func (r *GormWebhookEventRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*channel.WebhookEvent, error) {
	var rows []models.WebhookEventModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("received_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*channel.WebhookEvent, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// Ensure GormWebhookEventRepository implements channel.WebhookEventRepository
var _ channel.WebhookEventRepository = (*GormWebhookEventRepository)(nil)
