package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/channelpilot/backend/internal/domain/channel"
	"github.com/channelpilot/backend/internal/domain/integration"
	"github.com/channelpilot/backend/internal/infrastructure/persistence/models"
)

// GormChannelAccountRepository implements channel.AccountRepository using GORM
type GormChannelAccountRepository struct {
	db *gorm.DB
}

// NewGormChannelAccountRepository creates a new GormChannelAccountRepository
func NewGormChannelAccountRepository(db *gorm.DB) *GormChannelAccountRepository {
	return &GormChannelAccountRepository{db: db}
}

// FindByID finds an account by id scoped to a user
func (r *GormChannelAccountRepository) FindByID(ctx context.Context, userID, id uuid.UUID) (*channel.Account, error) {
	var m models.ChannelAccountModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, channel.ErrAccountNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByUserAndChannel lists a user's accounts on one channel
func (r *GormChannelAccountRepository) FindByUserAndChannel(ctx context.Context, userID uuid.UUID, ch integration.ChannelType) ([]channel.Account, error) {
	var rows []models.ChannelAccountModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND channel = ?", userID, ch).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainAccounts(rows), nil
}

// FindByExternalRef finds any account bound to an external reference, across
// users. Webhook receivers only know the provider-side reference.
func (r *GormChannelAccountRepository) FindByExternalRef(ctx context.Context, ch integration.ChannelType, externalRef string) ([]channel.Account, error) {
	var rows []models.ChannelAccountModel
	if err := r.db.WithContext(ctx).
		Where("channel = ? AND external_account_ref = ?", ch, externalRef).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainAccounts(rows), nil
}

// FindAllConnected lists every connected account, for scheduled syncs
func (r *GormChannelAccountRepository) FindAllConnected(ctx context.Context) ([]channel.Account, error) {
	var rows []models.ChannelAccountModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", channel.AccountConnected).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainAccounts(rows), nil
}

// Save inserts or updates an account
func (r *GormChannelAccountRepository) Save(ctx context.Context, a *channel.Account) error {
	m := &models.ChannelAccountModel{}
	m.FromDomain(a)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return channel.ErrDuplicateAccount
		}
		return err
	}
	return nil
}

func toDomainAccounts(rows []models.ChannelAccountModel) []channel.Account {
	out := make([]channel.Account, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out
}

// Ensure GormChannelAccountRepository implements channel.AccountRepository
var _ channel.AccountRepository = (*GormChannelAccountRepository)(nil)
