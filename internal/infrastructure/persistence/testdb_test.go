package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/channelpilot/backend/internal/infrastructure/persistence/models"
)

// newTestDB creates an in-memory SQLite database with the full schema.
// TranslateError matches the production connection so unique violations
// surface as gorm.ErrDuplicatedKey in tests too.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.ChannelAccountModel{},
		&models.ProviderCredentialModel{},
		&models.OrderModel{},
		&models.OrderItemModel{},
		&models.ShipmentModel{},
		&models.SyncJobModel{},
		&models.SyncLogModel{},
		&models.WebhookEventModel{},
		&models.OrderProfitModel{},
		&models.SkuCostModel{},
		&models.AdSpendDailyModel{},
		&models.VariantModel{},
		&models.StockModel{},
		&models.InventoryMovementModel{},
	)
	require.NoError(t, err)

	return db
}
