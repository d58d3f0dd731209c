package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/channelpilot/backend/internal/domain/shipment"
	"github.com/channelpilot/backend/internal/infrastructure/persistence/models"
)

// GormShipmentRepository implements shipment.Repository using GORM
type GormShipmentRepository struct {
	db *gorm.DB
}

// NewGormShipmentRepository creates a new GormShipmentRepository
func NewGormShipmentRepository(db *gorm.DB) *GormShipmentRepository {
	return &GormShipmentRepository{db: db}
}

// FindByID finds a shipment by internal ID
func (r *GormShipmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*shipment.Shipment, error) {
	var m models.ShipmentModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shipment.ErrShipmentNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByOrderID returns all shipments of an order
func (r *GormShipmentRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]shipment.Shipment, error) {
	var rows []models.ShipmentModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]shipment.Shipment, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// FindByTrackingRef finds a shipment by courier tracking reference
func (r *GormShipmentRepository) FindByTrackingRef(ctx context.Context, trackingRef string) (*shipment.Shipment, error) {
	var m models.ShipmentModel
	if err := r.db.WithContext(ctx).
		First(&m, "tracking_ref = ?", trackingRef).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shipment.ErrShipmentNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// Save inserts or updates a shipment
func (r *GormShipmentRepository) Save(ctx context.Context, s *shipment.Shipment) error {
	m := models.ShipmentModelFromDomain(s)
	return r.db.WithContext(ctx).Save(m).Error
}

// FindStale returns shipments of a courier that are not terminal and were
// last synced before the cutoff, joined with the owning user. Never-synced
// shipments qualify immediately.
func (r *GormShipmentRepository) FindStale(ctx context.Context, courierName string, cutoff time.Time, limit int) ([]shipment.PollCandidate, error) {
	type staleRow struct {
		models.ShipmentModel
		UserID uuid.UUID
	}

	terminal := shipment.TerminalStatuses()
	statuses := make([]string, 0, len(terminal))
	for _, s := range terminal {
		statuses = append(statuses, s.String())
	}

	var rows []staleRow
	if err := r.db.WithContext(ctx).
		Table("shipments").
		Select("shipments.*, orders.user_id AS user_id").
		Joins("JOIN orders ON orders.id = shipments.order_id").
		Where("shipments.courier_name = ?", courierName).
		Where("shipments.status NOT IN ?", statuses).
		Where("shipments.last_synced_at IS NULL OR shipments.last_synced_at < ?", cutoff).
		Order("shipments.last_synced_at ASC NULLS FIRST").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]shipment.PollCandidate, 0, len(rows))
	for i := range rows {
		out = append(out, shipment.PollCandidate{
			Shipment: *rows[i].ShipmentModel.ToDomain(),
			UserID:   rows[i].UserID,
		})
	}
	return out, nil
}

// Ensure GormShipmentRepository implements shipment.Repository
var _ shipment.Repository = (*GormShipmentRepository)(nil)
