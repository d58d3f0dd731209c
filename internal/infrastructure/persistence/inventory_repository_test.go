package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/channelpilot/backend/internal/domain/inventory"
	"github.com/channelpilot/backend/internal/domain/shared"
	"github.com/channelpilot/backend/internal/infrastructure/persistence/models"
)

func seedVariant(t *testing.T, db *gorm.DB, userID uuid.UUID, sku string) *inventory.Variant {
	t.Helper()
	v := &inventory.Variant{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		SKU:        sku,
		Title:      "Variant " + sku,
	}
	m := &models.VariantModel{}
	m.FromDomain(v)
	require.NoError(t, db.Create(m).Error)
	return v
}

func TestGormInventoryRepository_FindVariantsBySKUs(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormInventoryRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	otherUser := uuid.New()
	seedVariant(t, db, userID, "SKU-A")
	seedVariant(t, db, userID, "SKU-B")
	seedVariant(t, db, otherUser, "SKU-C")

	t.Run("returns the user's variants keyed by sku", func(t *testing.T) {
		got, err := repo.FindVariantsBySKUs(ctx, userID, []string{"SKU-A", "SKU-B", "SKU-C", "SKU-X"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "SKU-A", got["SKU-A"].SKU)
		assert.NotContains(t, got, "SKU-C")
		assert.NotContains(t, got, "SKU-X")
	})

	t.Run("empty sku list short-circuits", func(t *testing.T) {
		got, err := repo.FindVariantsBySKUs(ctx, userID, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestGormInventoryRepository_Stock(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormInventoryRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	variant := seedVariant(t, db, userID, "SKU-A")
	warehouseID := uuid.New()

	stock := &inventory.Stock{
		BaseEntity:  shared.NewBaseEntity(),
		WarehouseID: warehouseID,
		VariantID:   variant.ID,
		OnHand:      10,
	}
	require.NoError(t, repo.SaveStock(ctx, stock, inventory.NewMovement(stock.ID, inventory.MovementAdjust, 10, "adjustment", "seed")))

	t.Run("find stock scoped to owning user", func(t *testing.T) {
		got, err := repo.FindStock(ctx, userID, variant.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, got.OnHand)

		_, err = repo.FindStock(ctx, uuid.New(), variant.ID)
		assert.ErrorIs(t, err, inventory.ErrStockNotFound)
	})

	t.Run("save stock appends the movement row", func(t *testing.T) {
		require.NoError(t, stock.Reserve(3))
		require.NoError(t, repo.SaveStock(ctx, stock, inventory.NewMovement(stock.ID, inventory.MovementReserve, 3, "order", "ORD-1")))

		got, err := repo.FindStock(ctx, userID, variant.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Reserved)
		assert.Equal(t, 7, got.Available())

		var moves []models.InventoryMovementModel
		require.NoError(t, db.Where("stock_id = ?", stock.ID).Order("occurred_at ASC").Find(&moves).Error)
		require.Len(t, moves, 2)
		assert.Equal(t, inventory.MovementReserve, moves[1].Type)
		assert.Equal(t, 3, moves[1].Qty)
		assert.Equal(t, "ORD-1", moves[1].SourceID)
	})
}
