package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter defines listing criteria for orders
type Filter struct {
	ChannelAccountID *uuid.UUID
	Status           *Status
	CreatedAfter     *time.Time
	CreatedBefore    *time.Time
	// SortBy is a column name checked against a whitelist by the
	// repository; unknown values fall back to the source timestamp
	SortBy   string
	SortDir  string
	Page     int
	PageSize int
}

// Repository persists orders and their items. FindByNaturalKey and Save
// together give the idempotent upsert the import paths rely on; SaveWithItems
// must replace the item set atomically with the order row.
type Repository interface {
	// FindByID finds an order by internal ID, scoped to a user
	FindByID(ctx context.Context, userID, id uuid.UUID) (*Order, error)

	// FindByNaturalKey finds an order by (externalOrderID, channelAccountID)
	FindByNaturalKey(ctx context.Context, channelAccountID uuid.UUID, externalOrderID string) (*Order, error)

	// Save inserts or updates the order and wholesale-replaces its items
	Save(ctx context.Context, o *Order) error

	// FindAll lists orders for a user matching the filter
	FindAll(ctx context.Context, userID uuid.UUID, filter Filter) ([]Order, int64, error)

	// ListIDsForUser returns all order IDs belonging to a user
	ListIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	// CountCreatedOn counts orders created on the given calendar day,
	// used for blended CAC allocation
	CountCreatedOn(ctx context.Context, day time.Time) (int64, error)
}
