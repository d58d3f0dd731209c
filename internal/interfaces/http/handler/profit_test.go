package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	profitapp "github.com/channelpilot/backend/internal/application/profit"
	"github.com/channelpilot/backend/internal/domain/order"
	"github.com/channelpilot/backend/internal/domain/profit"
	"github.com/channelpilot/backend/internal/domain/shared"
	csvimport "github.com/channelpilot/backend/internal/infrastructure/import"
	"github.com/channelpilot/backend/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testProfit(orderID uuid.UUID) *profit.OrderProfit {
	return &profit.OrderProfit{
		BaseEntity:  shared.NewBaseEntity(),
		OrderID:     orderID,
		Revenue:     decimal.RequireFromString("499.00"),
		ProductCost: decimal.RequireFromString("200.00"),
		NetProfit:   decimal.RequireFromString("299.00"),
		FinalStatus: "DELIVERED",
		Status:      profit.CostComplete,
		ComputedAt:  time.Now(),
	}
}

func newProfitHandler(recomputer *MockProfitRecomputer, profits *MockProfitRepository, skuCosts *MockSkuCostRepository, orders *MockOrderRepository, userID uuid.UUID) *ProfitHandler {
	return NewProfitHandler(recomputer, new(MockSkuCostImporter), profits, skuCosts, orders, stubAuth(userID))
}

func TestProfitHandler_GetOrderProfit(t *testing.T) {
	userID := uuid.New()

	t.Run("returns the profit row", func(t *testing.T) {
		orders := new(MockOrderRepository)
		profits := new(MockProfitRepository)
		o := testOrder(userID, uuid.New())
		p := testProfit(o.ID)

		orders.On("FindByID", mock.Anything, userID, o.ID).Return(&o, nil)
		profits.On("FindByOrderID", mock.Anything, o.ID).Return(p, nil)

		h := newProfitHandler(new(MockProfitRecomputer), profits, new(MockSkuCostRepository), orders, userID)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+o.ID.String()+"/profit", nil)
		w := serve(h, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]any)
		assert.Equal(t, o.ID.String(), data["order_id"])
		assert.Equal(t, "299", data["net_profit"])
		assert.Equal(t, "computed", data["status"])
	})

	t.Run("foreign order returns 404 before touching the ledger", func(t *testing.T) {
		orders := new(MockOrderRepository)
		profits := new(MockProfitRepository)
		orderID := uuid.New()
		orders.On("FindByID", mock.Anything, userID, orderID).Return(nil, order.ErrOrderNotFound)

		h := newProfitHandler(new(MockProfitRecomputer), profits, new(MockSkuCostRepository), orders, userID)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String()+"/profit", nil)
		w := serve(h, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		profits.AssertNotCalled(t, "FindByOrderID")
	})

	t.Run("uncomputed order returns 404", func(t *testing.T) {
		orders := new(MockOrderRepository)
		profits := new(MockProfitRepository)
		o := testOrder(userID, uuid.New())

		orders.On("FindByID", mock.Anything, userID, o.ID).Return(&o, nil)
		profits.On("FindByOrderID", mock.Anything, o.ID).Return(nil, profit.ErrProfitNotFound)

		h := newProfitHandler(new(MockProfitRecomputer), profits, new(MockSkuCostRepository), orders, userID)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+o.ID.String()+"/profit", nil)
		w := serve(h, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestProfitHandler_RecomputeOrder(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()

	recomputer := new(MockProfitRecomputer)
	recomputer.On("Recompute", mock.Anything, userID, orderID).Return(testProfit(orderID), nil)

	h := newProfitHandler(recomputer, new(MockProfitRepository), new(MockSkuCostRepository), new(MockOrderRepository), userID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/profit/recompute", nil)
	w := serve(h, req)

	require.Equal(t, http.StatusOK, w.Code)
	recomputer.AssertExpectations(t)
}

func TestProfitHandler_RecomputeAll(t *testing.T) {
	userID := uuid.New()

	recomputer := new(MockProfitRecomputer)
	recomputer.On("RecomputeAll", mock.Anything, userID).Return(42, 3, nil)

	h := newProfitHandler(recomputer, new(MockProfitRepository), new(MockSkuCostRepository), new(MockOrderRepository), userID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/profit/recompute", nil)
	w := serve(h, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(42), data["recomputed"])
	assert.Equal(t, float64(3), data["failed"])
}

func TestProfitHandler_UpsertSkuCost(t *testing.T) {
	userID := uuid.New()

	t.Run("creates a missing cost row", func(t *testing.T) {
		skuCosts := new(MockSkuCostRepository)
		skuCosts.On("FindBySKU", mock.Anything, "SKU-NEW").Return(nil, profit.ErrSkuCostNotFound)
		skuCosts.On("Save", mock.Anything, mock.MatchedBy(func(c *profit.SkuCost) bool {
			return c.SKU == "SKU-NEW" && c.ProductCost.Equal(decimal.RequireFromString("120.50"))
		})).Return(nil)

		h := newProfitHandler(new(MockProfitRecomputer), new(MockProfitRepository), skuCosts, new(MockOrderRepository), userID)
		body := []byte(`{"sku":"SKU-NEW","product_cost":"120.50","packaging_cost":"10"}`)
		req := httptest.NewRequest(http.MethodPut, "/api/v1/sku-costs", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := serve(h, req)

		require.Equal(t, http.StatusOK, w.Code)
		skuCosts.AssertExpectations(t)
	})

	t.Run("overwrites an existing cost row", func(t *testing.T) {
		skuCosts := new(MockSkuCostRepository)
		existing := &profit.SkuCost{
			BaseEntity:    shared.NewBaseEntity(),
			SKU:           "SKU-1",
			ProductCost:   decimal.RequireFromString("90"),
			PackagingCost: decimal.RequireFromString("5"),
		}
		skuCosts.On("FindBySKU", mock.Anything, "SKU-1").Return(existing, nil)
		skuCosts.On("Save", mock.Anything, mock.MatchedBy(func(c *profit.SkuCost) bool {
			return c.ID == existing.ID && c.ProductCost.Equal(decimal.RequireFromString("95"))
		})).Return(nil)

		h := newProfitHandler(new(MockProfitRecomputer), new(MockProfitRepository), skuCosts, new(MockOrderRepository), userID)
		body := []byte(`{"sku":"SKU-1","product_cost":"95","packaging_cost":"5"}`)
		req := httptest.NewRequest(http.MethodPut, "/api/v1/sku-costs", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := serve(h, req)

		require.Equal(t, http.StatusOK, w.Code)
		skuCosts.AssertExpectations(t)
	})

	t.Run("negative cost returns 400", func(t *testing.T) {
		h := newProfitHandler(new(MockProfitRecomputer), new(MockProfitRepository), new(MockSkuCostRepository), new(MockOrderRepository), userID)
		body := []byte(`{"sku":"SKU-1","product_cost":"-1","packaging_cost":"0"}`)
		req := httptest.NewRequest(http.MethodPut, "/api/v1/sku-costs", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := serve(h, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing sku returns 400", func(t *testing.T) {
		h := newProfitHandler(new(MockProfitRecomputer), new(MockProfitRepository), new(MockSkuCostRepository), new(MockOrderRepository), userID)
		body := []byte(`{"product_cost":"10"}`)
		req := httptest.NewRequest(http.MethodPut, "/api/v1/sku-costs", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := serve(h, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProfitHandler_GetSkuCost(t *testing.T) {
	userID := uuid.New()

	skuCosts := new(MockSkuCostRepository)
	skuCosts.On("FindBySKU", mock.Anything, "SKU-1").Return(&profit.SkuCost{
		BaseEntity:    shared.NewBaseEntity(),
		SKU:           "SKU-1",
		ProductCost:   decimal.RequireFromString("90"),
		PackagingCost: decimal.RequireFromString("5"),
	}, nil)

	h := newProfitHandler(new(MockProfitRecomputer), new(MockProfitRepository), skuCosts, new(MockOrderRepository), userID)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sku-costs/SKU-1", nil)
	w := serve(h, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, "SKU-1", data["sku"])
	assert.Equal(t, "90", data["product_cost"])
}

func TestProfitHandler_ImportSkuCosts(t *testing.T) {
	userID := uuid.New()

	newHandler := func(importer *MockSkuCostImporter) *ProfitHandler {
		return NewProfitHandler(new(MockProfitRecomputer), importer, new(MockProfitRepository),
			new(MockSkuCostRepository), new(MockOrderRepository), stubAuth(userID))
	}

	t.Run("returns the import report", func(t *testing.T) {
		importer := new(MockSkuCostImporter)
		importer.On("Import", mock.Anything, mock.Anything).Return(&profitapp.ImportReport{
			TotalRows: 3,
			Created:   2,
			Updated:   1,
		}, nil)

		body := "sku,product_cost\nA,1\nB,2\nC,3\n"
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sku-costs/import", strings.NewReader(body))
		req.Header.Set("Content-Type", "text/csv")
		w := serve(newHandler(importer), req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]any)
		assert.Equal(t, float64(3), data["total_rows"])
		assert.Equal(t, float64(2), data["created"])
		assert.Equal(t, float64(1), data["updated"])
	})

	t.Run("bad csv returns 400", func(t *testing.T) {
		importer := new(MockSkuCostImporter)
		importer.On("Import", mock.Anything, mock.Anything).Return(nil, csvimport.ErrMissingColumns)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sku-costs/import", strings.NewReader("sku,qty\nA,1\n"))
		w := serve(newHandler(importer), req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("importer failure returns 500", func(t *testing.T) {
		importer := new(MockSkuCostImporter)
		importer.On("Import", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sku-costs/import", strings.NewReader("sku,product_cost\nA,1\n"))
		w := serve(newHandler(importer), req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
