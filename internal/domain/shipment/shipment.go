package shipment

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/channelpilot/backend/internal/domain/shared"
)

var (
	ErrShipmentNotFound   = errors.New("shipment: shipment not found")
	ErrMissingOrderID     = errors.New("shipment: order id is required")
	ErrMissingTrackingRef = errors.New("shipment: tracking reference is required")
	ErrInvalidStatus      = errors.New("shipment: invalid status")
)

// Status is the closed set of internal courier statuses. Raw provider strings
// are mapped into this set at the adapter boundary and never persisted.
type Status string

const (
	StatusNew          Status = "NEW"
	StatusConfirmed    Status = "CONFIRMED"
	StatusPacked       Status = "PACKED"
	StatusShipped      Status = "SHIPPED"
	StatusDelivered    Status = "DELIVERED"
	StatusCancelled    Status = "CANCELLED"
	StatusRTOInitiated Status = "RTO_INITIATED"
	StatusRTODone      Status = "RTO_DONE"
	StatusLost         Status = "LOST"
	// StatusUnknown is the sentinel for provider statuses missing from the
	// mapping tables. Unknown statuses are logged for catalog extension,
	// never treated as an error.
	StatusUnknown Status = "UNKNOWN"
)

// IsValid returns true if the status belongs to the closed internal set
func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusConfirmed, StatusPacked, StatusShipped, StatusDelivered,
		StatusCancelled, StatusRTOInitiated, StatusRTODone, StatusLost, StatusUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true for statuses after which courier polling stops
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDelivered, StatusRTODone, StatusLost, StatusCancelled:
		return true
	default:
		return false
	}
}

// TerminalStatuses returns the set of terminal statuses, used when selecting
// shipments that still need polling
func TerminalStatuses() []Status {
	return []Status{StatusDelivered, StatusRTODone, StatusLost, StatusCancelled}
}

// Shipment is one physical consignment of an order. Split shipments make the
// relation one-to-many; most orders carry exactly one.
type Shipment struct {
	shared.BaseEntity
	OrderID      uuid.UUID
	CourierName  string
	TrackingRef  string
	TrackingURL  string
	Status       Status
	ForwardCost  decimal.Decimal
	ReverseCost  decimal.Decimal
	ShippedAt    *time.Time
	LastSyncedAt *time.Time
}

// Validate checks shipment invariants before persistence
func (s *Shipment) Validate() error {
	if s.OrderID == uuid.Nil {
		return ErrMissingOrderID
	}
	if s.TrackingRef == "" {
		return ErrMissingTrackingRef
	}
	if !s.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// Transition applies a newly observed status and stamps the sync time.
// It reports whether the shipment moved into a terminal state with this
// update, which is the trigger for profit recomputation.
func (s *Shipment) Transition(next Status, at time.Time) (enteredTerminal bool) {
	wasTerminal := s.Status.IsTerminal()
	if next.IsValid() && next != StatusUnknown {
		s.Status = next
	}
	s.LastSyncedAt = &at
	s.Touch()
	return !wasTerminal && s.Status.IsTerminal()
}
