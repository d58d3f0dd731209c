package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/channelpilot/backend/internal/domain/channel"
	"github.com/channelpilot/backend/internal/domain/integration"
	"github.com/channelpilot/backend/internal/domain/profit"
	"github.com/channelpilot/backend/internal/domain/shared"
	"github.com/channelpilot/backend/internal/domain/shipment"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type memShipments struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]*shipment.Shipment
	owner map[uuid.UUID]uuid.UUID // shipmentID -> userID
}

func newMemShipments() *memShipments {
	return &memShipments{
		rows:  make(map[uuid.UUID]*shipment.Shipment),
		owner: make(map[uuid.UUID]uuid.UUID),
	}
}

func (r *memShipments) add(userID uuid.UUID, courier, ref string, status shipment.Status) *shipment.Shipment {
	sh := &shipment.Shipment{
		BaseEntity:  shared.NewBaseEntity(),
		OrderID:     uuid.New(),
		CourierName: courier,
		TrackingRef: ref,
		Status:      status,
	}
	r.rows[sh.ID] = sh
	r.owner[sh.ID] = userID
	return sh
}

func (r *memShipments) FindByID(_ context.Context, id uuid.UUID) (*shipment.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sh, ok := r.rows[id]
	if !ok {
		return nil, shipment.ErrShipmentNotFound
	}
	return sh, nil
}

func (r *memShipments) FindByOrderID(_ context.Context, orderID uuid.UUID) ([]shipment.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []shipment.Shipment
	for _, sh := range r.rows {
		if sh.OrderID == orderID {
			out = append(out, *sh)
		}
	}
	return out, nil
}

func (r *memShipments) FindByTrackingRef(_ context.Context, ref string) (*shipment.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sh := range r.rows {
		if sh.TrackingRef == ref {
			return sh, nil
		}
	}
	return nil, shipment.ErrShipmentNotFound
}

func (r *memShipments) Save(_ context.Context, sh *shipment.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sh
	r.rows[sh.ID] = &cp
	return nil
}

func (r *memShipments) FindStale(_ context.Context, courierName string, cutoff time.Time, limit int) ([]shipment.PollCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []shipment.PollCandidate
	for id, sh := range r.rows {
		if sh.CourierName != courierName || sh.Status.IsTerminal() {
			continue
		}
		if sh.LastSyncedAt != nil && !sh.LastSyncedAt.Before(cutoff) {
			continue
		}
		out = append(out, shipment.PollCandidate{Shipment: *sh, UserID: r.owner[id]})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type stubTracker struct {
	mu      sync.Mutex
	family  integration.CourierFamily
	updates map[string]integration.TrackingUpdate
	err     error
	calls   [][]string
}

func (s *stubTracker) CourierFamily() integration.CourierFamily { return s.family }

func (s *stubTracker) FetchShipmentStatus(_ context.Context, _ integration.Credential, refs []string) ([]integration.TrackingUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, refs)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]integration.TrackingUpdate, 0, len(refs))
	for _, ref := range refs {
		if u, ok := s.updates[ref]; ok {
			out = append(out, u)
		} else {
			out = append(out, integration.TrackingUpdate{TrackingRef: ref, Status: shipment.StatusShipped})
		}
	}
	return out, nil
}

type recordingRecomputer struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (r *recordingRecomputer) Recompute(_ context.Context, _, orderID uuid.UUID) (*profit.OrderProfit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, orderID)
	return &profit.OrderProfit{OrderID: orderID}, nil
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	service   *Service
	shipments *memShipments
	tracker   *stubTracker
	profits   *recordingRecomputer
	userID    uuid.UUID
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	tracker := &stubTracker{
		family:  integration.CourierSelloship,
		updates: make(map[string]integration.TrackingUpdate),
	}
	registry := integration.NewRegistry()
	registry.RegisterTrackingSource(tracker)

	userID := uuid.New()
	resolver := channel.NewResolver(channel.NewStaticSource("app_default", map[string]map[string]string{
		integration.CourierSelloship.ProviderID(): {"apiKey": "key"},
	}))

	shipments := newMemShipments()
	profits := &recordingRecomputer{}
	svc := NewService(registry, resolver, shipments, profits, cfg, zap.NewNop())

	return &fixture{service: svc, shipments: shipments, tracker: tracker, profits: profits, userID: userID}
}

func courierName() string { return integration.CourierSelloship.ProviderID() }

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRefreshCourier_UpdatesStatusesAndTimestamps(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	sh := f.shipments.add(f.userID, courierName(), "SLP1", shipment.StatusShipped)
	f.tracker.updates["SLP1"] = integration.TrackingUpdate{TrackingRef: "SLP1", Status: shipment.StatusShipped, RawStatus: "In Transit"}

	stats, err := f.service.RefreshCourier(context.Background(), f.tracker)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Selected)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 0, stats.Terminal)

	got, err := f.shipments.FindByID(context.Background(), sh.ID)
	require.NoError(t, err)
	assert.Equal(t, shipment.StatusShipped, got.Status)
	require.NotNil(t, got.LastSyncedAt)
}

func TestRefreshCourier_TerminalTransitionRecomputesProfit(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	sh := f.shipments.add(f.userID, courierName(), "SLP1", shipment.StatusShipped)
	f.tracker.updates["SLP1"] = integration.TrackingUpdate{TrackingRef: "SLP1", Status: shipment.StatusDelivered, RawStatus: "Delivered"}

	stats, err := f.service.RefreshCourier(context.Background(), f.tracker)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Terminal)
	require.Len(t, f.profits.calls, 1)
	assert.Equal(t, sh.OrderID, f.profits.calls[0])

	// terminal shipments leave the polling set
	stats, err = f.service.RefreshCourier(context.Background(), f.tracker)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Selected)
}

func TestRefreshCourier_BatchesByProviderLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BatchSize = 2
	f := newFixture(t, cfg)
	for _, ref := range []string{"A", "B", "C", "D", "E"} {
		f.shipments.add(f.userID, courierName(), ref, shipment.StatusShipped)
	}

	_, err := f.service.RefreshCourier(context.Background(), f.tracker)
	require.NoError(t, err)

	require.Len(t, f.tracker.calls, 3)
	for i, call := range f.tracker.calls {
		assert.LessOrEqual(t, len(call), 2, "call %d exceeds the batch cap", i)
	}
}

func TestRefreshCourier_FailedCallLeavesShipmentsStale(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	sh := f.shipments.add(f.userID, courierName(), "SLP1", shipment.StatusShipped)
	f.tracker.err = errors.New("courier 503")

	stats, err := f.service.RefreshCourier(context.Background(), f.tracker)
	require.NoError(t, err, "a failing courier call is not fatal to the pass")
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Updated)

	got, err := f.shipments.FindByID(context.Background(), sh.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastSyncedAt, "untouched shipment stays stale for the next tick")
}

func TestRefreshCourier_PerWaybillErrorIsIsolated(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.shipments.add(f.userID, courierName(), "OK1", shipment.StatusShipped)
	f.shipments.add(f.userID, courierName(), "BAD", shipment.StatusShipped)
	f.tracker.updates["OK1"] = integration.TrackingUpdate{TrackingRef: "OK1", Status: shipment.StatusDelivered}
	f.tracker.updates["BAD"] = integration.TrackingUpdate{TrackingRef: "BAD", Err: errors.New("waybill not found")}

	stats, err := f.service.RefreshCourier(context.Background(), f.tracker)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Failed)

	bad, err := f.shipments.FindByTrackingRef(context.Background(), "BAD")
	require.NoError(t, err)
	assert.Nil(t, bad.LastSyncedAt)
}

func TestRefreshCourier_UnknownStatusKeepsLastKnown(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	sh := f.shipments.add(f.userID, courierName(), "SLP1", shipment.StatusShipped)
	f.tracker.updates["SLP1"] = integration.TrackingUpdate{TrackingRef: "SLP1", Status: shipment.StatusUnknown, RawStatus: "HUB_SCAN_42"}

	stats, err := f.service.RefreshCourier(context.Background(), f.tracker)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)
	assert.Empty(t, f.profits.calls)

	got, err := f.shipments.FindByID(context.Background(), sh.ID)
	require.NoError(t, err)
	assert.Equal(t, shipment.StatusShipped, got.Status, "sentinel never overwrites a known status")
	assert.NotNil(t, got.LastSyncedAt, "timestamp still advances so the tick does not hot-loop")
}

func TestRefreshCourier_MissingCredentialSkipsUser(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.service.resolver = channel.NewResolver() // no sources, nothing resolves
	f.shipments.add(f.userID, courierName(), "SLP1", shipment.StatusShipped)

	stats, err := f.service.RefreshCourier(context.Background(), f.tracker)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Empty(t, f.tracker.calls, "no courier call without a credential")
}
