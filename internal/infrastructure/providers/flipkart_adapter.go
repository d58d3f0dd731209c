package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/channelpilot/backend/internal/application/webhook"
	"github.com/channelpilot/backend/internal/domain/integration"
	"github.com/channelpilot/backend/internal/domain/order"
)

// Flipkart webhook event types, dispatched alongside the Shopify-style topics
const (
	FlipkartTopicOrderCreated    = "ORDER_CREATED"
	FlipkartTopicOrderUpdated    = "ORDER_UPDATED"
	FlipkartTopicShipmentCreated = "SHIPMENT_CREATED"
)

// flipkartPageSize is the documented maximum page size of orders/search
const flipkartPageSize = 20

// flipkartDateFormat is the seller API timestamp layout (no zone, IST)
const flipkartDateFormat = "2006-01-02T15:04:05"

// FlipkartAdapter pulls orders from the Flipkart Seller API. The feed is
// item-level; rows sharing an orderId are grouped into one order before
// normalization.
type FlipkartAdapter struct {
	config     *FlipkartConfig
	httpClient *http.Client
}

// NewFlipkartAdapter creates a Flipkart adapter with the given configuration
func NewFlipkartAdapter(config *FlipkartConfig) (*FlipkartAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &FlipkartAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// ChannelType returns the channel this adapter handles
func (a *FlipkartAdapter) ChannelType() integration.ChannelType {
	return integration.ChannelFlipkart
}

// ---------------------------------------------------------------------------
// Order import
// ---------------------------------------------------------------------------

// FetchOrders pulls order items since the cursor and groups them per order.
// The first page is a filtered POST; subsequent pages follow nextPageUrl.
func (a *FlipkartAdapter) FetchOrders(ctx context.Context, cred integration.Credential, since time.Time) ([]integration.NormalizedOrder, error) {
	token := cred.Get("accessToken")
	if token == "" {
		return nil, fmt.Errorf("%w: flipkart needs accessToken", integration.ErrCredentialInvalid)
	}

	var items []flipkartOrderItem
	nextPageURL := ""
	for page := 0; page < a.config.MaxPages; page++ {
		resp, err := a.fetchPage(ctx, token, since, nextPageURL)
		if err != nil {
			return nil, err
		}
		items = append(items, resp.OrderItems...)
		if resp.NextPageURL == "" || len(resp.OrderItems) == 0 {
			break
		}
		nextPageURL = resp.NextPageURL
	}

	return a.groupItems(items)
}

// fetchPage fetches the filtered first page or a nextPageUrl continuation
func (a *FlipkartAdapter) fetchPage(ctx context.Context, token string, since time.Time, nextPageURL string) (*flipkartSearchResponse, error) {
	body, _, err := doWithRetry(ctx, a.httpClient, a.config.MaxRetries, func() (*http.Request, error) {
		var req *http.Request
		var err error
		if nextPageURL != "" {
			req, err = http.NewRequest(http.MethodGet, a.config.resolvePageURL(nextPageURL), nil)
		} else {
			search := flipkartSearchRequest{
				Filter: flipkartSearchFilter{
					OrderDate: flipkartDateRange{
						FromDate: since.Format(flipkartDateFormat),
						ToDate:   time.Now().Format(flipkartDateFormat),
					},
				},
				Pagination: flipkartSearchPagination{PageSize: flipkartPageSize},
				Sort:       flipkartSearchSort{Field: "orderDate", Order: "desc"},
			}
			payload, merr := json.Marshal(search)
			if merr != nil {
				return nil, merr
			}
			req, err = http.NewRequest(http.MethodPost, a.config.BaseURL+"/orders/search", bytes.NewReader(payload))
		}
		if err != nil {
			return nil, fmt.Errorf("flipkart: failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var resp flipkartSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse orders page: %v", integration.ErrProviderInvalidResponse, err)
	}
	return &resp, nil
}

// groupItems folds item-level rows into one NormalizedOrder per orderId.
// Output order is deterministic for stable sync logs.
func (a *FlipkartAdapter) groupItems(items []flipkartOrderItem) ([]integration.NormalizedOrder, error) {
	grouped := make(map[string][]flipkartOrderItem)
	for _, item := range items {
		orderID := item.OrderID
		if orderID == "" {
			orderID = item.OrderItemID
		}
		if orderID == "" {
			continue
		}
		grouped[orderID] = append(grouped[orderID], item)
	}

	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]integration.NormalizedOrder, 0, len(ids))
	for _, id := range ids {
		out = append(out, a.normalizeGroup(id, grouped[id]))
	}
	return out, nil
}

// normalizeGroup maps one order's item rows to the canonical shape
func (a *FlipkartAdapter) normalizeGroup(orderID string, rows []flipkartOrderItem) integration.NormalizedOrder {
	first := rows[0]
	n := integration.NormalizedOrder{
		ExternalOrderID: orderID,
		Channel:         integration.ChannelFlipkart,
		Status:          order.StatusNew,
		CustomerName:    "Flipkart Customer",
		PaymentMode:     mapFlipkartPaymentMode(first.PaymentType),
		CreatedAtSource: parseFlipkartTime(first.OrderDate),
	}

	rawParts := make([]string, 0, len(rows))
	for _, row := range rows {
		sku := strings.TrimSpace(row.SellerSKUID)
		if sku == "" {
			sku = "FK-" + row.OrderItemID
		}
		qty := row.Quantity
		if qty <= 0 {
			qty = 1
		}
		price := parseDecimal(row.SellingPrice)
		n.Items = append(n.Items, integration.NormalizedItem{
			SKU:      sku,
			Title:    row.ProductTitle,
			Quantity: qty,
			Price:    price,
		})

		itemValue := parseDecimal(row.OrderItemValue)
		if itemValue.IsZero() {
			itemValue = price.Mul(decimal.NewFromInt(int64(qty)))
		}
		n.OrderTotal = n.OrderTotal.Add(itemValue)

		if raw, err := json.Marshal(row); err == nil {
			rawParts = append(rawParts, string(raw))
		} else {
			rawParts = append(rawParts, row.OrderItemID)
		}
	}
	n.PayloadDigest = integration.Digest(rawParts...)
	return n
}

// ---------------------------------------------------------------------------
// Webhook payload parsing
// ---------------------------------------------------------------------------

// ParseOrder maps an ORDER_CREATED / ORDER_UPDATED body
func (a *FlipkartAdapter) ParseOrder(body []byte) (integration.NormalizedOrder, error) {
	var p flipkartWebhookOrder
	if err := json.Unmarshal(body, &p); err != nil {
		return integration.NormalizedOrder{}, fmt.Errorf("%w: failed to parse payload: %v", integration.ErrProviderInvalidResponse, err)
	}
	if p.Order.OrderID == "" {
		return integration.NormalizedOrder{}, fmt.Errorf("%w: payload without orderId", integration.ErrProviderInvalidResponse)
	}

	name := strings.TrimSpace(p.Order.Customer.Name)
	if name == "" {
		name = "Flipkart Customer"
	}
	n := integration.NormalizedOrder{
		ExternalOrderID: p.Order.OrderID,
		Channel:         integration.ChannelFlipkart,
		Status:          order.StatusNew,
		CustomerName:    name,
		CustomerEmail:   strings.TrimSpace(p.Order.Customer.Email),
		PaymentMode:     mapFlipkartPaymentMode(p.Order.PaymentMode),
		OrderTotal:      parseDecimal(p.Order.TotalAmount),
		CreatedAtSource: parseFlipkartTime(p.Order.OrderDate),
		PayloadDigest:   integration.Digest(string(body)),
	}
	for i, item := range p.Order.OrderItems {
		sku := strings.TrimSpace(item.SKU)
		if sku == "" {
			sku = fmt.Sprintf("LINE-%d", i)
		}
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		n.Items = append(n.Items, integration.NormalizedItem{
			SKU:      sku,
			Title:    item.Title,
			Quantity: qty,
			Price:    parseDecimal(item.Price),
		})
	}
	return n, nil
}

// ParseOrderRef extracts the orderId from any order-bearing payload
func (a *FlipkartAdapter) ParseOrderRef(body []byte) (string, error) {
	var p flipkartWebhookOrder
	if err := json.Unmarshal(body, &p); err != nil {
		return "", fmt.Errorf("%w: failed to parse payload: %v", integration.ErrProviderInvalidResponse, err)
	}
	if p.Order.OrderID == "" {
		return "", fmt.Errorf("%w: payload without orderId", integration.ErrProviderInvalidResponse)
	}
	return p.Order.OrderID, nil
}

// ParseFulfillment maps a SHIPMENT_CREATED body
func (a *FlipkartAdapter) ParseFulfillment(body []byte) (webhook.Fulfillment, error) {
	var p flipkartWebhookShipment
	if err := json.Unmarshal(body, &p); err != nil {
		return webhook.Fulfillment{}, fmt.Errorf("%w: failed to parse payload: %v", integration.ErrProviderInvalidResponse, err)
	}
	s := p.Shipment
	if s.OrderID == "" || s.TrackingID == "" {
		return webhook.Fulfillment{}, fmt.Errorf("%w: shipment without orderId or trackingId", integration.ErrProviderInvalidResponse)
	}
	return webhook.Fulfillment{
		ExternalOrderID: s.OrderID,
		CourierName:     strings.ToLower(strings.TrimSpace(s.Courier)),
		TrackingRef:     s.TrackingID,
		TrackingURL:     s.TrackingURL,
		ShippedAt:       parseFlipkartTime(s.DispatchedDate),
	}, nil
}

// ---------------------------------------------------------------------------
// Mapping
// ---------------------------------------------------------------------------

// mapFlipkartPaymentMode maps the seller API payment type. Flipkart remits
// marketplace payments regardless of buyer method, so unknown values default
// to prepaid rather than COD.
func mapFlipkartPaymentMode(paymentType string) order.PaymentMode {
	if strings.EqualFold(paymentType, "COD") {
		return order.PaymentModeCOD
	}
	return order.PaymentModePrepaid
}

func parseFlipkartTime(s string) time.Time {
	for _, layout := range []string{flipkartDateFormat, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Ensure FlipkartAdapter implements its ports
var (
	_ integration.OrderSource = (*FlipkartAdapter)(nil)
	_ webhook.PayloadParser   = (*FlipkartAdapter)(nil)
)
