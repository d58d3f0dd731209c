package sync

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/channelpilot/backend/internal/domain/channel"
	"github.com/channelpilot/backend/internal/domain/integration"
	"github.com/channelpilot/backend/internal/domain/inventory"
	"github.com/channelpilot/backend/internal/domain/order"
)

func testAccount(t *testing.T) *channel.Account {
	t.Helper()
	a, err := channel.NewAccount(uuid.New(), integration.ChannelShopify, "acme.myshopify.com", "Acme")
	require.NoError(t, err)
	return a
}

func normalized(externalID string) integration.NormalizedOrder {
	return integration.NormalizedOrder{
		ExternalOrderID: externalID,
		Channel:         integration.ChannelShopify,
		Status:          order.StatusNew,
		CustomerName:    "Asha",
		PaymentMode:     order.PaymentModePrepaid,
		OrderTotal:      decimal.NewFromInt(1000),
		CreatedAtSource: time.Now(),
		PayloadDigest:   integration.Digest("shopify", externalID),
		Items: []integration.NormalizedItem{
			{SKU: "SKU-A", Title: "Widget", Quantity: 2, Price: decimal.NewFromInt(500)},
		},
	}
}

func newTestPersister() (*OrderPersister, *memOrderRepo, *memInventoryRepo, *recordingRecomputer) {
	orders := newMemOrderRepo()
	inv := newMemInventoryRepo()
	profits := &recordingRecomputer{}
	p := NewOrderPersister(orders, inv, profits, zap.NewNop())
	return p, orders, inv, profits
}

func TestPersist_ReimportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p, orders, inv, profits := newTestPersister()
	inv.addVariant("SKU-A", 10)
	account := testAccount(t)

	first, err := p.Persist(ctx, account, normalized("#1001"))
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := p.Persist(ctx, account, normalized("#1001"))
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Order.ID, second.Order.ID, "replay must hit the same row")

	assert.Len(t, orders.orders, 1)
	require.Len(t, second.Order.Items, 1, "items replaced, never appended")
	assert.Len(t, profits.calls, 2, "every persist recomputes profit")

	// reservation happens on insert only; the replay must not double it
	stock, err := inv.FindStock(ctx, account.UserID, *second.Order.Items[0].VariantID)
	require.NoError(t, err)
	assert.Equal(t, 2, stock.Reserved)
}

func TestPersist_UpdateReplacesMutableFields(t *testing.T) {
	ctx := context.Background()
	p, _, inv, _ := newTestPersister()
	inv.addVariant("SKU-A", 10)
	account := testAccount(t)

	_, err := p.Persist(ctx, account, normalized("#1001"))
	require.NoError(t, err)

	updated := normalized("#1001")
	updated.Status = order.StatusConfirmed
	updated.OrderTotal = decimal.NewFromInt(900)

	res, err := p.Persist(ctx, account, updated)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, order.StatusConfirmed, res.Order.Status)
	assert.True(t, res.Order.OrderTotal.Equal(decimal.NewFromInt(900)))
}

func TestPersist_UnmappedSKUHoldsOrder(t *testing.T) {
	ctx := context.Background()
	p, _, _, _ := newTestPersister()
	account := testAccount(t)

	res, err := p.Persist(ctx, account, normalized("#1002"))
	require.NoError(t, err, "unknown SKU must not reject the order")
	assert.Equal(t, order.StatusHold, res.Order.Status)
	require.Len(t, res.Order.Items, 1)
	assert.Equal(t, order.FulfillmentUnmappedSKU, res.Order.Items[0].FulfillmentStatus)
	assert.Nil(t, res.Order.Items[0].VariantID)
}

func TestPersist_InsufficientStockHoldsOrder(t *testing.T) {
	ctx := context.Background()
	p, _, inv, _ := newTestPersister()
	inv.addVariant("SKU-A", 1) // order wants 2
	account := testAccount(t)

	res, err := p.Persist(ctx, account, normalized("#1003"))
	require.NoError(t, err)
	assert.Equal(t, order.StatusHold, res.Order.Status)
	assert.Equal(t, order.FulfillmentPending, res.Order.Items[0].FulfillmentStatus)
	assert.Empty(t, inv.movements, "no movement when the reservation failed")
}

func TestPersist_ReservationWritesMovement(t *testing.T) {
	ctx := context.Background()
	p, _, inv, _ := newTestPersister()
	inv.addVariant("SKU-A", 10)
	account := testAccount(t)

	_, err := p.Persist(ctx, account, normalized("#1004"))
	require.NoError(t, err)

	require.Len(t, inv.movements, 1)
	m := inv.movements[0]
	assert.Equal(t, inventory.MovementReserve, m.Type)
	assert.Equal(t, 2, m.Qty)
	assert.Equal(t, "order", m.SourceType)
	assert.Equal(t, "#1004", m.SourceID)
}

func TestPersist_RejectsInvalidProjection(t *testing.T) {
	ctx := context.Background()
	p, orders, _, _ := newTestPersister()
	account := testAccount(t)

	bad := normalized("#1005")
	bad.ExternalOrderID = ""
	_, err := p.Persist(ctx, account, bad)
	assert.Error(t, err)
	assert.Empty(t, orders.orders)
}

func TestCancel_ReleasesStockAndToleratesReplay(t *testing.T) {
	ctx := context.Background()
	p, _, inv, profits := newTestPersister()
	v := inv.addVariant("SKU-A", 10)
	account := testAccount(t)

	_, err := p.Persist(ctx, account, normalized("#1006"))
	require.NoError(t, err)

	o, err := p.Cancel(ctx, account, "#1006")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, o.Status)

	stock, err := inv.FindStock(ctx, account.UserID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stock.Reserved)

	before := len(profits.calls)
	before2 := len(inv.movements)
	o2, err := p.Cancel(ctx, account, "#1006")
	require.NoError(t, err, "replayed cancellation is a no-op")
	assert.Equal(t, order.StatusCancelled, o2.Status)
	assert.Len(t, profits.calls, before, "no recompute on replay")
	assert.Len(t, inv.movements, before2, "no second release on replay")
}
