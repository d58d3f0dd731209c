package sync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/channelpilot/backend/internal/domain/channel"
	"github.com/channelpilot/backend/internal/domain/integration"
	"github.com/channelpilot/backend/internal/domain/inventory"
	"github.com/channelpilot/backend/internal/domain/order"
	"github.com/channelpilot/backend/internal/domain/profit"
)

// ---------------------------------------------------------------------------
// In-memory fakes shared by the persister and engine tests
// ---------------------------------------------------------------------------

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*order.Order // naturalKey(accountID, externalID)
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]*order.Order)}
}

func naturalKey(accountID uuid.UUID, externalID string) string {
	return accountID.String() + "|" + externalID
}

func (r *memOrderRepo) FindByID(_ context.Context, userID, id uuid.UUID) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ID == id && o.UserID == userID {
			return o, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (r *memOrderRepo) FindByNaturalKey(_ context.Context, accountID uuid.UUID, externalID string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[naturalKey(accountID, externalID)]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

func (r *memOrderRepo) Save(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[naturalKey(o.ChannelAccountID, o.ExternalOrderID)] = o
	return nil
}

func (r *memOrderRepo) FindAll(_ context.Context, userID uuid.UUID, _ order.Filter) ([]order.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []order.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memOrderRepo) ListIDsForUser(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uuid.UUID
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o.ID)
		}
	}
	return out, nil
}

func (r *memOrderRepo) CountCreatedOn(_ context.Context, day time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.orders {
		if o.CreatedAtSource.Truncate(24 * time.Hour).Equal(day.Truncate(24 * time.Hour)) {
			n++
		}
	}
	return n, nil
}

type memInventoryRepo struct {
	mu        sync.Mutex
	variants  map[string]*inventory.Variant // sku
	stocks    map[uuid.UUID]*inventory.Stock // variantID
	movements []inventory.Movement
}

func newMemInventoryRepo() *memInventoryRepo {
	return &memInventoryRepo{
		variants: make(map[string]*inventory.Variant),
		stocks:   make(map[uuid.UUID]*inventory.Stock),
	}
}

func (r *memInventoryRepo) addVariant(sku string, onHand int) *inventory.Variant {
	v := &inventory.Variant{SKU: sku}
	v.ID = uuid.New()
	r.variants[sku] = v
	s := &inventory.Stock{VariantID: v.ID, OnHand: onHand}
	s.ID = uuid.New()
	r.stocks[v.ID] = s
	return v
}

func (r *memInventoryRepo) FindVariantsBySKUs(_ context.Context, _ uuid.UUID, skus []string) (map[string]*inventory.Variant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*inventory.Variant)
	for _, sku := range skus {
		if v, ok := r.variants[sku]; ok {
			out[sku] = v
		}
	}
	return out, nil
}

func (r *memInventoryRepo) FindStock(_ context.Context, _ uuid.UUID, variantID uuid.UUID) (*inventory.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stocks[variantID]
	if !ok {
		return nil, inventory.ErrStockNotFound
	}
	return s, nil
}

func (r *memInventoryRepo) SaveStock(_ context.Context, stock *inventory.Stock, movement inventory.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stocks[stock.VariantID] = stock
	r.movements = append(r.movements, movement)
	return nil
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

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]bool)}
}

func (l *memLocker) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *memLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*channel.SyncJob
	logs []channel.SyncLog
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[uuid.UUID]*channel.SyncJob)}
}

func (r *memJobRepo) Save(_ context.Context, job *channel.SyncJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *memJobRepo) AppendLog(_ context.Context, log *channel.SyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *log)
	return nil
}

func (r *memJobRepo) FindByAccount(_ context.Context, accountID uuid.UUID, _ int) ([]channel.SyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []channel.SyncJob
	for _, j := range r.jobs {
		if j.ChannelAccountID == accountID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (r *memJobRepo) FindLogs(_ context.Context, jobID uuid.UUID) ([]channel.SyncLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []channel.SyncLog
	for _, l := range r.logs {
		if l.SyncJobID == jobID {
			out = append(out, l)
		}
	}
	return out, nil
}

type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*channel.Account
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[uuid.UUID]*channel.Account)}
}

func (r *memAccountRepo) FindByID(_ context.Context, userID, id uuid.UUID) (*channel.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || a.UserID != userID {
		return nil, channel.ErrAccountNotFound
	}
	return a, nil
}

func (r *memAccountRepo) FindByUserAndChannel(_ context.Context, userID uuid.UUID, ch integration.ChannelType) ([]channel.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []channel.Account
	for _, a := range r.accounts {
		if a.UserID == userID && a.Channel == ch {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memAccountRepo) FindByExternalRef(_ context.Context, ch integration.ChannelType, ref string) ([]channel.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []channel.Account
	for _, a := range r.accounts {
		if a.Channel == ch && a.ExternalAccountRef == ref {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memAccountRepo) FindAllConnected(_ context.Context) ([]channel.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []channel.Account
	for _, a := range r.accounts {
		if a.IsConnected() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memAccountRepo) Save(_ context.Context, a *channel.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.ID] = a
	return nil
}

// stubOrderSource serves canned batches and records the cursor it was called with
type stubOrderSource struct {
	mu     sync.Mutex
	orders []integration.NormalizedOrder
	err    error
	since  []time.Time
}

func (s *stubOrderSource) ChannelType() integration.ChannelType { return integration.ChannelShopify }

func (s *stubOrderSource) FetchOrders(_ context.Context, _ integration.Credential, since time.Time) ([]integration.NormalizedOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.since = append(s.since, since)
	if s.err != nil {
		return nil, s.err
	}
	return s.orders, nil
}
