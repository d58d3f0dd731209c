package shipment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PollCandidate pairs a shipment with the account whose credential will be
// used to query its courier.
type PollCandidate struct {
	Shipment Shipment
	UserID   uuid.UUID
}

// Repository persists shipments
type Repository interface {
	// FindByID finds a shipment by internal ID
	FindByID(ctx context.Context, id uuid.UUID) (*Shipment, error)

	// FindByOrderID returns all shipments of an order
	FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]Shipment, error)

	// FindByTrackingRef finds a shipment by courier tracking reference
	FindByTrackingRef(ctx context.Context, trackingRef string) (*Shipment, error)

	// Save inserts or updates a shipment
	Save(ctx context.Context, s *Shipment) error

	// FindStale returns shipments of the given courier that are not in a
	// terminal status and were last synced before the cutoff, joined with
	// the owning user. Limit caps the batch a worker tick picks up.
	FindStale(ctx context.Context, courierName string, cutoff time.Time, limit int) ([]PollCandidate, error)
}
