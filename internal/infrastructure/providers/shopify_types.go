package providers

import "encoding/json"

// shopifyOrdersResponse is the Admin API orders listing envelope. Orders are
// kept raw so each one can be digested and decoded individually.
type shopifyOrdersResponse struct {
	Orders []json.RawMessage `json:"orders"`
}

// shopifyOrder is the subset of the Admin API order object the import needs
type shopifyOrder struct {
	ID                int64             `json:"id"`
	Email             string            `json:"email"`
	CreatedAt         string            `json:"created_at"`
	CancelledAt       *string           `json:"cancelled_at"`
	FinancialStatus   string            `json:"financial_status"`
	FulfillmentStatus string            `json:"fulfillment_status"`
	TotalPrice        string            `json:"total_price"`
	Customer          *shopifyCustomer  `json:"customer"`
	BillingAddress    *shopifyAddress   `json:"billing_address"`
	ShippingAddress   *shopifyAddress   `json:"shipping_address"`
	LineItems         []shopifyLineItem `json:"line_items"`
}

type shopifyCustomer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type shopifyAddress struct {
	Name     string `json:"name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

type shopifyLineItem struct {
	SKU       string `json:"sku"`
	VariantID int64  `json:"variant_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

// shopifyFulfillment is the fulfillments/create webhook body
type shopifyFulfillment struct {
	OrderID         int64  `json:"order_id"`
	TrackingCompany string `json:"tracking_company"`
	TrackingNumber  string `json:"tracking_number"`
	TrackingURL     string `json:"tracking_url"`
	CreatedAt       string `json:"created_at"`
}

// shopifyOrderRef covers cancel and refund payloads, which carry the order id
// either at the top level (order webhooks) or as order_id (refund webhooks)
type shopifyOrderRef struct {
	ID      int64 `json:"id"`
	OrderID int64 `json:"order_id"`
}
