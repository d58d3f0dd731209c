package channel

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/channelpilot/backend/internal/domain/integration"
	"github.com/channelpilot/backend/internal/domain/shared"
)

var (
	ErrAccountNotFound   = errors.New("channel: account not found")
	ErrAccountDisabled   = errors.New("channel: account is disconnected")
	ErrDuplicateAccount  = errors.New("channel: account already connected")
	ErrMissingUserID     = errors.New("channel: user id is required")
	ErrMissingAccountRef = errors.New("channel: external account reference is required")
)

// AccountStatus represents the connection state of a channel account.
// Accounts are never hard-deleted; disconnect flips the status.
type AccountStatus string

const (
	AccountConnected    AccountStatus = "CONNECTED"
	AccountDisconnected AccountStatus = "DISCONNECTED"
)

// Account is one connected store or marketplace seller account. It is unique
// per (UserID, Channel, ExternalAccountRef) and is created on the first
// successful credential save or OAuth callback.
type Account struct {
	shared.BaseEntity
	UserID  uuid.UUID
	Channel integration.ChannelType
	// ExternalAccountRef identifies the account on the provider side:
	// a Shopify shop domain, an Amazon seller id, a Flipkart seller id.
	ExternalAccountRef string
	SellerName         string
	Status             AccountStatus
	// LastSyncCursor is the upper bound of the last fully committed import
	// batch. It only advances after a whole batch persists, so a crash
	// mid-batch re-imports the batch and the idempotent upsert absorbs it.
	LastSyncCursor *time.Time
}

// NewAccount creates a connected account for a user and channel
func NewAccount(userID uuid.UUID, ch integration.ChannelType, externalRef, sellerName string) (*Account, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUserID
	}
	if !ch.IsValid() {
		return nil, integration.ErrInvalidChannelType
	}
	if externalRef == "" {
		return nil, ErrMissingAccountRef
	}
	return &Account{
		BaseEntity:         shared.NewBaseEntity(),
		UserID:             userID,
		Channel:            ch,
		ExternalAccountRef: externalRef,
		SellerName:         sellerName,
		Status:             AccountConnected,
	}, nil
}

// IsConnected reports whether the account can be synced
func (a *Account) IsConnected() bool {
	return a.Status == AccountConnected
}

// Disconnect soft-disables the account
func (a *Account) Disconnect() {
	a.Status = AccountDisconnected
	a.Touch()
}

// Reconnect re-enables the account after a fresh credential save
func (a *Account) Reconnect() {
	a.Status = AccountConnected
	a.Touch()
}

// AdvanceCursor moves the sync cursor forward. Moving it backwards is
// ignored so overlapping batches cannot lose ground.
func (a *Account) AdvanceCursor(to time.Time) {
	if a.LastSyncCursor != nil && !to.After(*a.LastSyncCursor) {
		return
	}
	a.LastSyncCursor = &to
	a.Touch()
}

// AccountRepository persists channel accounts
type AccountRepository interface {
	// FindByID finds an account by id scoped to a user
	FindByID(ctx context.Context, userID, id uuid.UUID) (*Account, error)

	// FindByUserAndChannel lists a user's accounts on one channel
	FindByUserAndChannel(ctx context.Context, userID uuid.UUID, ch integration.ChannelType) ([]Account, error)

	// FindByExternalRef finds any account bound to an external reference
	// (e.g. a shop domain), across users. Used by webhook receivers where
	// only the provider-side reference is known.
	FindByExternalRef(ctx context.Context, ch integration.ChannelType, externalRef string) ([]Account, error)

	// FindAllConnected lists every connected account, for scheduled syncs
	FindAllConnected(ctx context.Context) ([]Account, error)

	// Save inserts or updates an account
	Save(ctx context.Context, a *Account) error
}
