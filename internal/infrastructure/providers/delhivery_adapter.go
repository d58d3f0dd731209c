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

// DelhiveryAdapter queries the Delhivery tracking API. The API is
// per-waybill; refs are resolved sequentially and a failing waybill yields an
// Err update without aborting the rest of the batch.
type DelhiveryAdapter struct {
	config     *DelhiveryConfig
	httpClient *http.Client
}

// NewDelhiveryAdapter creates a Delhivery adapter with the given configuration
func NewDelhiveryAdapter(config *DelhiveryConfig) (*DelhiveryAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &DelhiveryAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// CourierFamily returns the courier this adapter handles
func (a *DelhiveryAdapter) CourierFamily() integration.CourierFamily {
	return integration.CourierDelhivery
}

// FetchShipmentStatus resolves current statuses for the given waybills
func (a *DelhiveryAdapter) FetchShipmentStatus(ctx context.Context, cred integration.Credential, trackingRefs []string) ([]integration.TrackingUpdate, error) {
	apiKey := cred.Get("apiKey")
	if apiKey == "" {
		return nil, fmt.Errorf("%w: delhivery needs apiKey", integration.ErrCredentialInvalid)
	}

	out := make([]integration.TrackingUpdate, 0, len(trackingRefs))
	for _, ref := range trackingRefs {
		update := a.trackOne(ctx, apiKey, ref)
		out = append(out, update)
	}
	return out, nil
}

// trackOne fetches one waybill. Transport and parse failures land on the
// update's Err; the shipment stays stale and the next tick retries it.
func (a *DelhiveryAdapter) trackOne(ctx context.Context, apiKey, ref string) integration.TrackingUpdate {
	body, _, err := doWithRetry(ctx, a.httpClient, a.config.MaxRetries, func() (*http.Request, error) {
		query := url.Values{}
		query.Set("waybill", ref)
		req, err := http.NewRequest(http.MethodGet, a.config.BaseURL+"/api/v1/packages/json/?"+query.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("delhivery: failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Token "+apiKey)
		return req, nil
	})
	if err != nil {
		return integration.TrackingUpdate{TrackingRef: ref, Err: err}
	}

	var resp delhiveryTrackResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return integration.TrackingUpdate{
			TrackingRef: ref,
			Err:         fmt.Errorf("%w: failed to parse tracking response: %v", integration.ErrProviderInvalidResponse, err),
		}
	}
	if len(resp.ShipmentData) == 0 {
		return integration.TrackingUpdate{
			TrackingRef: ref,
			Err:         fmt.Errorf("%w: no shipment data for waybill %s", integration.ErrProviderInvalidResponse, ref),
		}
	}

	raw := resp.ShipmentData[0].Shipment.Status.Status
	return integration.TrackingUpdate{
		TrackingRef: ref,
		Status:      mapDelhiveryStatus(raw),
		RawStatus:   raw,
	}
}

// delhiveryTrackResponse is the packages/json envelope
type delhiveryTrackResponse struct {
	ShipmentData []struct {
		Shipment struct {
			AWB    string `json:"AWB"`
			Status struct {
				Status       string `json:"Status"`
				StatusType   string `json:"StatusType"`
				Instructions string `json:"Instructions"`
			} `json:"Status"`
		} `json:"Shipment"`
	} `json:"ShipmentData"`
}

// delhiveryStatusMap maps raw tracking statuses to internal statuses. Keys
// are matched after lowercasing.
var delhiveryStatusMap = map[string]shipment.Status{
	"delivered":        shipment.StatusDelivered,
	"rto delivered":    shipment.StatusRTODone,
	"rto-del":          shipment.StatusRTODone,
	"rto_del":          shipment.StatusRTODone,
	"rto":              shipment.StatusRTODone,
	"undelivered":      shipment.StatusRTOInitiated,
	"rto initiated":    shipment.StatusRTOInitiated,
	"in transit":       shipment.StatusShipped,
	"dispatched":       shipment.StatusShipped,
	"pickup":           shipment.StatusShipped,
	"pickup scheduled": shipment.StatusShipped,
	"lost":             shipment.StatusLost,
	"cancel":           shipment.StatusCancelled,
	"cancelled":        shipment.StatusCancelled,
}

// mapDelhiveryStatus normalizes the raw status. Unknown values map to
// StatusUnknown for the status catalog log, never to an error.
func mapDelhiveryStatus(raw string) shipment.Status {
	if s, ok := delhiveryStatusMap[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return shipment.StatusUnknown
}

// DelhiveryConfig holds configuration for the Delhivery tracking API
type DelhiveryConfig struct {
	// BaseURL is the tracking API base, overridable for tests
	BaseURL string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
	// MaxRetries bounds retry attempts on transient failures
	MaxRetries int
}

// DelhiveryProductionBaseURL is the production tracking endpoint
const DelhiveryProductionBaseURL = "https://track.delhivery.com"

// NewDelhiveryConfig creates a Delhivery configuration with defaults
func NewDelhiveryConfig() *DelhiveryConfig {
	return &DelhiveryConfig{
		BaseURL:    DelhiveryProductionBaseURL,
		Timeout:    15 * time.Second,
		MaxRetries: 2,
	}
}

// Validate validates the configuration, filling defaults for zero values
func (c *DelhiveryConfig) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DelhiveryProductionBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return nil
}

// Ensure DelhiveryAdapter implements integration.TrackingSource
var _ integration.TrackingSource = (*DelhiveryAdapter)(nil)
