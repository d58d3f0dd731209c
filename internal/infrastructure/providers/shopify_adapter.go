package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/channelpilot/backend/internal/application/webhook"
	"github.com/channelpilot/backend/internal/domain/integration"
	"github.com/channelpilot/backend/internal/domain/order"
)

// shopifyAPIVersion pins the Admin API version. Newer versions have caused
// inventory regressions before; bump deliberately.
const shopifyAPIVersion = "2024-01"

// shopifyPageLimit is the Admin API maximum page size
const shopifyPageLimit = 250

// ShopifyAdapter pulls orders from the Shopify Admin API and decodes Shopify
// webhook payloads. Credentials carry shopDomain and accessToken; the shop
// domain doubles as the webhook ShopRef.
type ShopifyAdapter struct {
	config     *ShopifyConfig
	httpClient *http.Client
}

// NewShopifyAdapter creates a Shopify adapter with the given configuration
func NewShopifyAdapter(config *ShopifyConfig) (*ShopifyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ShopifyAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// ChannelType returns the channel this adapter handles
func (a *ShopifyAdapter) ChannelType() integration.ChannelType {
	return integration.ChannelShopify
}

// ---------------------------------------------------------------------------
// Order import
// ---------------------------------------------------------------------------

// FetchOrders pulls every order created or updated since the cursor, walking
// the Link header cursor pagination until the last page.
func (a *ShopifyAdapter) FetchOrders(ctx context.Context, cred integration.Credential, since time.Time) ([]integration.NormalizedOrder, error) {
	shopDomain := cred.Get("shopDomain")
	token := cred.Get("accessToken")
	if shopDomain == "" || token == "" {
		return nil, fmt.Errorf("%w: shopify needs shopDomain and accessToken", integration.ErrCredentialInvalid)
	}

	query := url.Values{}
	query.Set("status", "any")
	query.Set("limit", strconv.Itoa(shopifyPageLimit))
	query.Set("updated_at_min", since.UTC().Format(time.RFC3339))
	nextURL := fmt.Sprintf("%s/orders.json?%s", a.config.apiBase(shopDomain), query.Encode())

	var out []integration.NormalizedOrder
	for nextURL != "" {
		raw, next, err := a.fetchOrdersPage(ctx, nextURL, token)
		if err != nil {
			return nil, err
		}
		for _, rawOrder := range raw {
			n, err := a.normalizeOrder(rawOrder)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		nextURL = next
	}
	return out, nil
}

// fetchOrdersPage fetches one page and returns the raw orders plus the
// rel=next URL from the Link header, if any
func (a *ShopifyAdapter) fetchOrdersPage(ctx context.Context, pageURL, token string) ([]json.RawMessage, string, error) {
	body, header, err := doWithRetry(ctx, a.httpClient, a.config.MaxRetries, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, fmt.Errorf("shopify: failed to create request: %w", err)
		}
		req.Header.Set("X-Shopify-Access-Token", token)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, "", err
	}

	var resp shopifyOrdersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", fmt.Errorf("%w: failed to parse orders page: %v", integration.ErrProviderInvalidResponse, err)
	}
	return resp.Orders, parseLinkNext(header.Get("Link")), nil
}

// normalizeOrder maps one raw Admin API order into the canonical shape
func (a *ShopifyAdapter) normalizeOrder(raw json.RawMessage) (integration.NormalizedOrder, error) {
	var o shopifyOrder
	if err := json.Unmarshal(raw, &o); err != nil {
		return integration.NormalizedOrder{}, fmt.Errorf("%w: failed to parse order: %v", integration.ErrProviderInvalidResponse, err)
	}
	if o.ID == 0 {
		return integration.NormalizedOrder{}, fmt.Errorf("%w: order without id", integration.ErrProviderInvalidResponse)
	}

	n := integration.NormalizedOrder{
		ExternalOrderID: strconv.FormatInt(o.ID, 10),
		Channel:         integration.ChannelShopify,
		Status:          mapShopifyOrderStatus(&o),
		CustomerName:    shopifyCustomerName(&o),
		CustomerEmail:   shopifyCustomerEmail(&o),
		ShippingAddress: formatShopifyAddress(o.ShippingAddress),
		PaymentMode:     mapShopifyPaymentMode(o.FinancialStatus),
		OrderTotal:      parseDecimal(o.TotalPrice),
		CreatedAtSource: parseShopifyTime(o.CreatedAt),
		PayloadDigest:   integration.Digest(string(raw)),
	}
	for i, line := range o.LineItems {
		sku := strings.TrimSpace(line.SKU)
		if sku == "" && line.VariantID != 0 {
			sku = strconv.FormatInt(line.VariantID, 10)
		}
		if sku == "" {
			sku = fmt.Sprintf("LINE-%d", i)
		}
		n.Items = append(n.Items, integration.NormalizedItem{
			SKU:      sku,
			Title:    line.Title,
			Quantity: line.Quantity,
			Price:    parseDecimal(line.Price),
		})
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Webhook payload parsing
// ---------------------------------------------------------------------------

// ParseOrder maps a full order webhook body
func (a *ShopifyAdapter) ParseOrder(body []byte) (integration.NormalizedOrder, error) {
	return a.normalizeOrder(body)
}

// ParseOrderRef extracts the external order id from cancel and refund bodies
func (a *ShopifyAdapter) ParseOrderRef(body []byte) (string, error) {
	var ref shopifyOrderRef
	if err := json.Unmarshal(body, &ref); err != nil {
		return "", fmt.Errorf("%w: failed to parse payload: %v", integration.ErrProviderInvalidResponse, err)
	}
	// Refund payloads reference the order as order_id; their own id is the
	// refund id and must not win.
	if ref.OrderID != 0 {
		return strconv.FormatInt(ref.OrderID, 10), nil
	}
	if ref.ID != 0 {
		return strconv.FormatInt(ref.ID, 10), nil
	}
	return "", fmt.Errorf("%w: payload without order id", integration.ErrProviderInvalidResponse)
}

// ParseFulfillment maps a fulfillments/create body
func (a *ShopifyAdapter) ParseFulfillment(body []byte) (webhook.Fulfillment, error) {
	var f shopifyFulfillment
	if err := json.Unmarshal(body, &f); err != nil {
		return webhook.Fulfillment{}, fmt.Errorf("%w: failed to parse fulfillment: %v", integration.ErrProviderInvalidResponse, err)
	}
	if f.OrderID == 0 || f.TrackingNumber == "" {
		return webhook.Fulfillment{}, fmt.Errorf("%w: fulfillment without order id or tracking number", integration.ErrProviderInvalidResponse)
	}
	return webhook.Fulfillment{
		ExternalOrderID: strconv.FormatInt(f.OrderID, 10),
		CourierName:     strings.ToLower(strings.TrimSpace(f.TrackingCompany)),
		TrackingRef:     f.TrackingNumber,
		TrackingURL:     f.TrackingURL,
		ShippedAt:       parseShopifyTime(f.CreatedAt),
	}, nil
}

// ---------------------------------------------------------------------------
// Mapping
// ---------------------------------------------------------------------------

// mapShopifyOrderStatus derives the internal order status. Shopify has no
// single status field; cancellation and fulfillment state decide.
func mapShopifyOrderStatus(o *shopifyOrder) order.Status {
	if o.CancelledAt != nil && *o.CancelledAt != "" {
		return order.StatusCancelled
	}
	switch o.FulfillmentStatus {
	case "fulfilled", "partial":
		return order.StatusShipped
	default:
		return order.StatusNew
	}
}

// mapShopifyPaymentMode maps financial_status to a payment mode. Only a fully
// paid order counts as prepaid; everything else is treated as COD.
func mapShopifyPaymentMode(financialStatus string) order.PaymentMode {
	if strings.EqualFold(financialStatus, "paid") {
		return order.PaymentModePrepaid
	}
	return order.PaymentModeCOD
}

func shopifyCustomerName(o *shopifyOrder) string {
	if o.Customer != nil {
		name := strings.TrimSpace(o.Customer.FirstName + " " + o.Customer.LastName)
		if name != "" {
			return name
		}
	}
	if o.BillingAddress != nil && o.BillingAddress.Name != "" {
		return o.BillingAddress.Name
	}
	return o.Email
}

func shopifyCustomerEmail(o *shopifyOrder) string {
	if o.Customer != nil && o.Customer.Email != "" {
		return o.Customer.Email
	}
	return o.Email
}

// formatShopifyAddress flattens a structured address into one line
func formatShopifyAddress(addr *shopifyAddress) string {
	if addr == nil {
		return ""
	}
	parts := make([]string, 0, 6)
	for _, p := range []string{addr.Address1, addr.Address2, addr.City, addr.Province, addr.Zip, addr.Country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

func parseShopifyTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

// parseDecimal parses a provider money string, falling back to zero
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// linkNextPattern extracts the rel=next URL from a Link header
var linkNextPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// parseLinkNext returns the rel=next URL from a Link header, or ""
func parseLinkNext(linkHeader string) string {
	m := linkNextPattern.FindStringSubmatch(linkHeader)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// Ensure ShopifyAdapter implements its ports
var (
	_ integration.OrderSource = (*ShopifyAdapter)(nil)
	_ webhook.PayloadParser   = (*ShopifyAdapter)(nil)
)
