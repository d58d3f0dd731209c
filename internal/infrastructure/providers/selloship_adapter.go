package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/channelpilot/backend/internal/domain/integration"
	"github.com/channelpilot/backend/internal/domain/shipment"
)

// selloshipBatchLimit is the documented waybillDetails batch maximum
const selloshipBatchLimit = 50

// SelloshipAdapter batch-queries the Selloship shipper API for waybill
// statuses. Requests over the batch limit are chunked transparently.
type SelloshipAdapter struct {
	config     *SelloshipConfig
	httpClient *http.Client
}

// NewSelloshipAdapter creates a Selloship adapter with the given configuration
func NewSelloshipAdapter(config *SelloshipConfig) (*SelloshipAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &SelloshipAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// CourierFamily returns the courier this adapter handles
func (a *SelloshipAdapter) CourierFamily() integration.CourierFamily {
	return integration.CourierSelloship
}

// FetchShipmentStatus resolves current statuses for the given waybills. Every
// requested ref gets exactly one update; refs the API did not answer come
// back with Err set so the caller leaves them stale.
func (a *SelloshipAdapter) FetchShipmentStatus(ctx context.Context, cred integration.Credential, trackingRefs []string) ([]integration.TrackingUpdate, error) {
	token := cred.Get("apiKey")
	if token == "" {
		return nil, fmt.Errorf("%w: selloship needs apiKey", integration.ErrCredentialInvalid)
	}

	out := make([]integration.TrackingUpdate, 0, len(trackingRefs))
	for start := 0; start < len(trackingRefs); start += selloshipBatchLimit {
		end := start + selloshipBatchLimit
		if end > len(trackingRefs) {
			end = len(trackingRefs)
		}
		updates, err := a.fetchBatch(ctx, token, trackingRefs[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, updates...)
	}
	return out, nil
}

// fetchBatch queries one waybillDetails page of up to the batch limit
func (a *SelloshipAdapter) fetchBatch(ctx context.Context, token string, refs []string) ([]integration.TrackingUpdate, error) {
	body, _, err := doWithRetry(ctx, a.httpClient, a.config.MaxRetries, func() (*http.Request, error) {
		query := url.Values{}
		query.Set("waybills", strings.Join(refs, ","))
		req, err := http.NewRequest(http.MethodGet, a.config.BaseURL+"/waybillDetails?"+query.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("selloship: failed to create request: %w", err)
		}
		req.Header.Set("Authorization", token)
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var resp selloshipWaybillResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse waybill details: %v", integration.ErrProviderInvalidResponse, err)
	}

	byRef := make(map[string]selloshipWaybillDetail, len(resp.WaybillDetails))
	for _, d := range resp.WaybillDetails {
		byRef[d.Waybill] = d
	}

	out := make([]integration.TrackingUpdate, 0, len(refs))
	for _, ref := range refs {
		d, ok := byRef[ref]
		if !ok {
			out = append(out, integration.TrackingUpdate{
				TrackingRef: ref,
				Err:         fmt.Errorf("%w: waybill %s missing from response", integration.ErrProviderInvalidResponse, ref),
			})
			continue
		}
		out = append(out, integration.TrackingUpdate{
			TrackingRef: ref,
			Status:      mapSelloshipStatus(d.CurrentStatus),
			RawStatus:   d.CurrentStatus,
		})
	}
	return out, nil
}

// selloshipWaybillResponse is the GET /waybillDetails envelope
type selloshipWaybillResponse struct {
	WaybillDetails []selloshipWaybillDetail `json:"waybillDetails"`
}

type selloshipWaybillDetail struct {
	Waybill         string `json:"waybill"`
	CurrentStatus   string `json:"currentStatus"`
	StatusDate      string `json:"statusDate"`
	CurrentLocation string `json:"current_location"`
}

// selloshipStatusMap maps shipper currentStatus values to internal statuses.
// Keys are matched after lowercasing and underscore normalization.
var selloshipStatusMap = map[string]shipment.Status{
	"delivered":        shipment.StatusDelivered,
	"in_transit":       shipment.StatusShipped,
	"shipped":          shipment.StatusShipped,
	"dispatched":       shipment.StatusShipped,
	"pickup":           shipment.StatusShipped,
	"out_for_delivery": shipment.StatusShipped,
	"rto":              shipment.StatusRTODone,
	"rto_done":         shipment.StatusRTODone,
	"cancelled":        shipment.StatusCancelled,
	"canceled":         shipment.StatusCancelled,
	"undelivered":      shipment.StatusRTOInitiated,
	"rto_initiated":    shipment.StatusRTOInitiated,
	"lost":             shipment.StatusLost,
}

// mapSelloshipStatus normalizes the raw currentStatus. Unknown values map to
// StatusUnknown for the status catalog log, never to an error.
func mapSelloshipStatus(raw string) shipment.Status {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_")
	if s, ok := selloshipStatusMap[key]; ok {
		return s
	}
	return shipment.StatusUnknown
}

// SelloshipConfig holds configuration for the Selloship shipper API
type SelloshipConfig struct {
	// BaseURL is the shipper API base, overridable for tests
	BaseURL string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
	// MaxRetries bounds retry attempts on transient failures
	MaxRetries int
}

// SelloshipProductionBaseURL is the production shipper endpoint
const SelloshipProductionBaseURL = "https://api.selloship.com"

// NewSelloshipConfig creates a Selloship configuration with defaults
func NewSelloshipConfig() *SelloshipConfig {
	return &SelloshipConfig{
		BaseURL:    SelloshipProductionBaseURL,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

// Validate validates the configuration, filling defaults for zero values
func (c *SelloshipConfig) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = SelloshipProductionBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return nil
}

// Ensure SelloshipAdapter implements integration.TrackingSource
var _ integration.TrackingSource = (*SelloshipAdapter)(nil)
