package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/channelpilot/backend/internal/domain/order"
	"github.com/channelpilot/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by internal ID, scoped to a user
func (r *GormOrderRepository) FindByID(ctx context.Context, userID, id uuid.UUID) (*order.Order, error) {
	var m models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ? AND id = ?", userID, id).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByNaturalKey finds an order by (externalOrderID, channelAccountID)
func (r *GormOrderRepository) FindByNaturalKey(ctx context.Context, channelAccountID uuid.UUID, externalOrderID string) (*order.Order, error) {
	var m models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("channel_account_id = ? AND external_order_id = ?", channelAccountID, externalOrderID).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// Save inserts or updates the order and wholesale-replaces its items in one
// transaction. Replacing rather than diffing keeps re-imports idempotent.
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	m := models.OrderModelFromDomain(o)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := m.Items
		m.Items = nil

		if err := tx.Save(m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return order.ErrDuplicateNaturalKey
			}
			return err
		}

		if err := tx.Where("order_id = ?", m.ID).
			Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = m.ID
			if err := tx.Create(&items[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// FindAll lists orders for a user matching the filter
func (r *GormOrderRepository) FindAll(ctx context.Context, userID uuid.UUID, filter order.Filter) ([]order.Order, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("user_id = ?", userID)

	if filter.ChannelAccountID != nil {
		query = query.Where("channel_account_id = ?", *filter.ChannelAccountID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at_source >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at_source < ?", *filter.CreatedBefore)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	sortField := ValidateSortField(filter.SortBy, OrderSortFields, "created_at_source")
	sortDir := ValidateSortOrder(filter.SortDir)

	var rows []models.OrderModel
	if err := query.
		Preload("Items").
		Order(sortField + " " + sortDir).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]order.Order, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, total, nil
}

// ListIDsForUser returns all order IDs belonging to a user
func (r *GormOrderRepository) ListIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("user_id = ?", userID).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CountCreatedOn counts orders whose source creation time falls on the given
// calendar day (UTC)
func (r *GormOrderRepository) CountCreatedOn(ctx context.Context, day time.Time) (int64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("created_at_source >= ? AND created_at_source < ?", start, end).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormOrderRepository implements order.Repository
var _ order.Repository = (*GormOrderRepository)(nil)
