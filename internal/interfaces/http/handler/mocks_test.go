package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	profitapp "github.com/channelpilot/backend/internal/application/profit"
	appsync "github.com/channelpilot/backend/internal/application/sync"
	"github.com/channelpilot/backend/internal/application/webhook"
	"github.com/channelpilot/backend/internal/domain/channel"
	"github.com/channelpilot/backend/internal/domain/integration"
	"github.com/channelpilot/backend/internal/domain/order"
	"github.com/channelpilot/backend/internal/domain/profit"
	"github.com/channelpilot/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubAuth injects a fixed user identity the way the JWT middleware would
func stubAuth(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.JWTUserIDKey, userID.String())
		c.Next()
	}
}

func serve(registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}, req *http.Request) *httptest.ResponseRecorder {
	engine := gin.New()
	registrar.RegisterRoutes(engine.Group("/api/v1"))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// MockWebhookReceiver is a mock implementation of WebhookReceiver
type MockWebhookReceiver struct {
	mock.Mock
}

func (m *MockWebhookReceiver) Receive(ctx context.Context, req webhook.ReceiveRequest) (webhook.Outcome, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(webhook.Outcome), args.Error(1)
}

// MockOrderSyncer is a mock implementation of OrderSyncer
type MockOrderSyncer struct {
	mock.Mock
}

func (m *MockOrderSyncer) SyncOrders(ctx context.Context, account *channel.Account) (appsync.Result, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(appsync.Result), args.Error(1)
}

// MockAccountRepository is a mock implementation of channel.AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindByID(ctx context.Context, userID, id uuid.UUID) (*channel.Account, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*channel.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByUserAndChannel(ctx context.Context, userID uuid.UUID, ch integration.ChannelType) ([]channel.Account, error) {
	args := m.Called(ctx, userID, ch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]channel.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByExternalRef(ctx context.Context, ch integration.ChannelType, externalRef string) ([]channel.Account, error) {
	args := m.Called(ctx, ch, externalRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]channel.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAllConnected(ctx context.Context) ([]channel.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]channel.Account), args.Error(1)
}

func (m *MockAccountRepository) Save(ctx context.Context, a *channel.Account) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

// MockSyncJobRepository is a mock implementation of channel.SyncJobRepository
type MockSyncJobRepository struct {
	mock.Mock
}

func (m *MockSyncJobRepository) Save(ctx context.Context, job *channel.SyncJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockSyncJobRepository) AppendLog(ctx context.Context, log *channel.SyncLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockSyncJobRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]channel.SyncJob, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]channel.SyncJob), args.Error(1)
}

func (m *MockSyncJobRepository) FindLogs(ctx context.Context, jobID uuid.UUID) ([]channel.SyncLog, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]channel.SyncLog), args.Error(1)
}

// MockOrderRepository is a mock implementation of order.Repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, userID, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByNaturalKey(ctx context.Context, channelAccountID uuid.UUID, externalOrderID string) (*order.Order, error) {
	args := m.Called(ctx, channelAccountID, externalOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) Save(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, userID uuid.UUID, filter order.Filter) ([]order.Order, int64, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]order.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) ListIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockOrderRepository) CountCreatedOn(ctx context.Context, day time.Time) (int64, error) {
	args := m.Called(ctx, day)
	return args.Get(0).(int64), args.Error(1)
}

// MockProfitRecomputer is a mock implementation of ProfitRecomputer
type MockProfitRecomputer struct {
	mock.Mock
}

func (m *MockProfitRecomputer) Recompute(ctx context.Context, userID, orderID uuid.UUID) (*profit.OrderProfit, error) {
	args := m.Called(ctx, userID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profit.OrderProfit), args.Error(1)
}

func (m *MockProfitRecomputer) RecomputeAll(ctx context.Context, userID uuid.UUID) (int, int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Int(1), args.Error(2)
}

// MockSkuCostImporter is a mock implementation of SkuCostImporter
type MockSkuCostImporter struct {
	mock.Mock
}

func (m *MockSkuCostImporter) Import(ctx context.Context, r io.Reader) (*profitapp.ImportReport, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profitapp.ImportReport), args.Error(1)
}

// MockProfitRepository is a mock implementation of profit.Repository
type MockProfitRepository struct {
	mock.Mock
}

func (m *MockProfitRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*profit.OrderProfit, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profit.OrderProfit), args.Error(1)
}

func (m *MockProfitRepository) Replace(ctx context.Context, p *profit.OrderProfit) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// MockSkuCostRepository is a mock implementation of profit.SkuCostRepository
type MockSkuCostRepository struct {
	mock.Mock
}

func (m *MockSkuCostRepository) FindBySKU(ctx context.Context, sku string) (*profit.SkuCost, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profit.SkuCost), args.Error(1)
}

func (m *MockSkuCostRepository) FindBySKUs(ctx context.Context, skus []string) (map[string]profit.SkuCost, error) {
	args := m.Called(ctx, skus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]profit.SkuCost), args.Error(1)
}

func (m *MockSkuCostRepository) Save(ctx context.Context, cost *profit.SkuCost) error {
	args := m.Called(ctx, cost)
	return args.Error(0)
}

// MockWebhookEventRepository is a mock implementation of channel.WebhookEventRepository
type MockWebhookEventRepository struct {
	mock.Mock
}

func (m *MockWebhookEventRepository) Save(ctx context.Context, event *channel.WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockWebhookEventRepository) Update(ctx context.Context, event *channel.WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockWebhookEventRepository) ExistsProcessed(ctx context.Context, digest string) (bool, error) {
	args := m.Called(ctx, digest)
	return args.Bool(0), args.Error(1)
}

func (m *MockWebhookEventRepository) FindByDigest(ctx context.Context, digest string) (*channel.WebhookEvent, error) {
	args := m.Called(ctx, digest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*channel.WebhookEvent), args.Error(1)
}

func (m *MockWebhookEventRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*channel.WebhookEvent, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*channel.WebhookEvent), args.Error(1)
}
