package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/channelpilot/backend/internal/domain/inventory"
	"github.com/channelpilot/backend/internal/infrastructure/persistence/models"
)

// GormInventoryRepository implements inventory.Repository using GORM
type GormInventoryRepository struct {
	db *gorm.DB
}

// NewGormInventoryRepository creates a new GormInventoryRepository
func NewGormInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

// FindVariantsBySKUs returns the variants a user has for the given SKUs,
// keyed by SKU. Missing SKUs are simply absent from the map.
func (r *GormInventoryRepository) FindVariantsBySKUs(ctx context.Context, userID uuid.UUID, skus []string) (map[string]*inventory.Variant, error) {
	out := make(map[string]*inventory.Variant, len(skus))
	if len(skus) == 0 {
		return out, nil
	}

	var rows []models.VariantModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND sku IN ?", userID, skus).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	for i := range rows {
		out[rows[i].SKU] = rows[i].ToDomain()
	}
	return out, nil
}

// FindStock returns the stock row for a variant, or ErrStockNotFound. The
// variant join scopes the lookup to the owning user.
func (r *GormInventoryRepository) FindStock(ctx context.Context, userID, variantID uuid.UUID) (*inventory.Stock, error) {
	var m models.StockModel
	if err := r.db.WithContext(ctx).
		Joins("JOIN variants ON variants.id = stocks.variant_id").
		Where("variants.user_id = ? AND stocks.variant_id = ?", userID, variantID).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrStockNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// SaveStock persists the stock row and appends the movement audit row in the
// same transaction, so a counted change can never lose its trail.
func (r *GormInventoryRepository) SaveStock(ctx context.Context, stock *inventory.Stock, movement inventory.Movement) error {
	sm := &models.StockModel{}
	sm.FromDomain(stock)

	mm := &models.InventoryMovementModel{}
	mm.FromDomain(movement)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(sm).Error; err != nil {
			return err
		}
		return tx.Create(mm).Error
	})
}

// Ensure GormInventoryRepository implements inventory.Repository
var _ inventory.Repository = (*GormInventoryRepository)(nil)
