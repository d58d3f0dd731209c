package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/channelpilot/backend/internal/domain/order"
	"github.com/channelpilot/backend/internal/domain/shared"
	"github.com/channelpilot/backend/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testOrder(userID, accountID uuid.UUID) order.Order {
	return order.Order{
		BaseEntity:       shared.NewBaseEntity(),
		UserID:           userID,
		ChannelAccountID: accountID,
		ExternalOrderID:  "1001",
		CustomerName:     "Bob Norman",
		PaymentMode:      order.PaymentModePrepaid,
		OrderTotal:       decimal.RequireFromString("499.00"),
		Status:           order.StatusNew,
		Items: []order.Item{
			{ID: uuid.New(), SKU: "SKU-1", Title: "Widget", Qty: 2, Price: decimal.RequireFromString("249.50")},
		},
		CreatedAtSource: time.Now().Add(-time.Hour),
	}
}

func TestOrderHandler_List(t *testing.T) {
	userID := uuid.New()
	accountID := uuid.New()

	t.Run("passes the filter through and pages the result", func(t *testing.T) {
		orders := new(MockOrderRepository)
		o := testOrder(userID, accountID)

		orders.On("FindAll", mock.Anything, userID, mock.MatchedBy(func(f order.Filter) bool {
			return f.Page == 2 && f.PageSize == 10 &&
				f.Status != nil && *f.Status == order.StatusNew &&
				f.ChannelAccountID != nil && *f.ChannelAccountID == accountID
		})).Return([]order.Order{o}, int64(11), nil)

		h := NewOrderHandler(orders, stubAuth(userID))
		req := httptest.NewRequest(http.MethodGet,
			"/api/v1/orders?page=2&page_size=10&status=NEW&channel_account_id="+accountID.String(), nil)
		w := serve(h, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(11), resp.Meta.Total)
		assert.Equal(t, 2, resp.Meta.Page)
		assert.Equal(t, 2, resp.Meta.TotalPages)

		list := resp.Data.([]any)
		require.Len(t, list, 1)
		first := list[0].(map[string]any)
		assert.Equal(t, "1001", first["external_order_id"])
		assert.Equal(t, "Bob Norman", first["customer_name"])
		items := first["items"].([]any)
		require.Len(t, items, 1)
		assert.Equal(t, "SKU-1", items[0].(map[string]any)["sku"])
	})

	t.Run("unknown status returns 400", func(t *testing.T) {
		h := NewOrderHandler(new(MockOrderRepository), stubAuth(userID))
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=BOGUS", nil)
		w := serve(h, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad time filter returns 400", func(t *testing.T) {
		h := NewOrderHandler(new(MockOrderRepository), stubAuth(userID))
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?created_after=yesterday", nil)
		w := serve(h, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("defaults pagination", func(t *testing.T) {
		orders := new(MockOrderRepository)
		orders.On("FindAll", mock.Anything, userID, mock.MatchedBy(func(f order.Filter) bool {
			return f.Page == 1 && f.PageSize == 20
		})).Return([]order.Order{}, int64(0), nil)

		h := NewOrderHandler(orders, stubAuth(userID))
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
		w := serve(h, req)

		assert.Equal(t, http.StatusOK, w.Code)
		orders.AssertExpectations(t)
	})

	t.Run("passes sort parameters through", func(t *testing.T) {
		orders := new(MockOrderRepository)
		orders.On("FindAll", mock.Anything, userID, mock.MatchedBy(func(f order.Filter) bool {
			return f.SortBy == "order_total" && f.SortDir == "asc"
		})).Return([]order.Order{}, int64(0), nil)

		h := NewOrderHandler(orders, stubAuth(userID))
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?sort_by=order_total&sort_dir=asc", nil)
		w := serve(h, req)

		assert.Equal(t, http.StatusOK, w.Code)
		orders.AssertExpectations(t)
	})

	t.Run("rejects unknown sort direction", func(t *testing.T) {
		h := NewOrderHandler(new(MockOrderRepository), stubAuth(userID))
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?sort_dir=random", nil)
		w := serve(h, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOrderHandler_Get(t *testing.T) {
	userID := uuid.New()

	t.Run("returns the order", func(t *testing.T) {
		orders := new(MockOrderRepository)
		o := testOrder(userID, uuid.New())
		orders.On("FindByID", mock.Anything, userID, o.ID).Return(&o, nil)

		h := NewOrderHandler(orders, stubAuth(userID))
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+o.ID.String(), nil)
		w := serve(h, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]any)
		assert.Equal(t, o.ID.String(), data["id"])
		assert.Equal(t, "PREPAID", data["payment_mode"])
	})

	t.Run("missing order returns 404", func(t *testing.T) {
		orders := new(MockOrderRepository)
		orderID := uuid.New()
		orders.On("FindByID", mock.Anything, userID, orderID).Return(nil, order.ErrOrderNotFound)

		h := NewOrderHandler(orders, stubAuth(userID))
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil)
		w := serve(h, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
