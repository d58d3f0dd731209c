package providers

// flipkartSearchRequest is the POST /orders/search body
type flipkartSearchRequest struct {
	Filter     flipkartSearchFilter     `json:"filter"`
	Pagination flipkartSearchPagination `json:"pagination"`
	Sort       flipkartSearchSort       `json:"sort"`
}

type flipkartSearchFilter struct {
	OrderDate flipkartDateRange `json:"orderDate"`
}

type flipkartDateRange struct {
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
}

type flipkartSearchPagination struct {
	PageSize int `json:"pageSize"`
}

type flipkartSearchSort struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

// flipkartSearchResponse is the orders/search envelope. Flipkart returns one
// row per order item; rows of the same orderId belong to one order.
type flipkartSearchResponse struct {
	OrderItems  []flipkartOrderItem `json:"orderItems"`
	NextPageURL string              `json:"nextPageUrl"`
}

type flipkartOrderItem struct {
	OrderItemID    string `json:"orderItemId"`
	OrderID        string `json:"orderId"`
	OrderDate      string `json:"orderDate"`
	PaymentType    string `json:"paymentType"`
	Status         string `json:"status"`
	SellerSKUID    string `json:"sellerSkuId"`
	ProductTitle   string `json:"productTitle"`
	Quantity       int    `json:"quantity"`
	SellingPrice   string `json:"sellingPrice"`
	OrderItemValue string `json:"orderItemValue"`
}

// flipkartWebhookOrder is the order envelope of Flipkart webhook payloads
type flipkartWebhookOrder struct {
	Order struct {
		OrderID     string `json:"orderId"`
		OrderDate   string `json:"orderDate"`
		PaymentMode string `json:"paymentMode"`
		TotalAmount string `json:"totalAmount"`
		Customer    struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"customer"`
		OrderItems []struct {
			SKU      string `json:"sku"`
			Title    string `json:"title"`
			Quantity int    `json:"quantity"`
			Price    string `json:"price"`
		} `json:"orderItems"`
	} `json:"order"`
}

// flipkartWebhookShipment is the shipment envelope of SHIPMENT_CREATED payloads
type flipkartWebhookShipment struct {
	Shipment struct {
		OrderID        string `json:"orderId"`
		ShipmentID     string `json:"shipmentId"`
		TrackingID     string `json:"trackingId"`
		Courier        string `json:"courier"`
		TrackingURL    string `json:"trackingUrl"`
		DispatchedDate string `json:"dispatchedDate"`
	} `json:"shipment"`
}
