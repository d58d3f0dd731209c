package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/channelpilot/backend/internal/domain/integration"
)

// metaAPIVersion pins the Graph API version
const metaAPIVersion = "v18.0"

// MetaAdsAdapter pulls daily ad spend from the Meta Marketing API insights
// endpoint. Spend comes back in the ad account's billing currency; conversion
// into the ledger currency happens downstream.
type MetaAdsAdapter struct {
	config     *MetaAdsConfig
	httpClient *http.Client
}

// NewMetaAdsAdapter creates a Meta Ads adapter with the given configuration
func NewMetaAdsAdapter(config *MetaAdsConfig) (*MetaAdsAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &MetaAdsAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Platform returns the ad platform this adapter handles
func (a *MetaAdsAdapter) Platform() integration.AdPlatform {
	return integration.AdPlatformMeta
}

// FetchAdSpend returns the spend for one calendar day
func (a *MetaAdsAdapter) FetchAdSpend(ctx context.Context, cred integration.Credential, day time.Time) (integration.AdSpend, error) {
	accountID := strings.TrimPrefix(strings.TrimSpace(cred.Get("adAccountId")), "act_")
	token := cred.Get("accessToken")
	if accountID == "" || token == "" {
		return integration.AdSpend{}, fmt.Errorf("%w: meta ads needs adAccountId and accessToken", integration.ErrCredentialInvalid)
	}

	date := day.Format("2006-01-02")
	body, _, err := doWithRetry(ctx, a.httpClient, a.config.MaxRetries, func() (*http.Request, error) {
		query := url.Values{}
		query.Set("access_token", token)
		query.Set("fields", "spend,account_currency")
		query.Set("time_range", fmt.Sprintf(`{"since":"%s","until":"%s"}`, date, date))
		query.Set("limit", "1")
		endpoint := fmt.Sprintf("%s/%s/act_%s/insights?%s", a.config.BaseURL, metaAPIVersion, accountID, query.Encode())
		req, err := http.NewRequest(http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("meta_ads: failed to create request: %w", err)
		}
		return req, nil
	})
	if err != nil {
		return integration.AdSpend{}, err
	}

	var resp metaInsightsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return integration.AdSpend{}, fmt.Errorf("%w: failed to parse insights: %v", integration.ErrProviderInvalidResponse, err)
	}

	out := integration.AdSpend{
		Platform: integration.AdPlatformMeta,
		Date:     day,
		Spend:    decimal.Zero,
		Currency: "USD",
	}
	// An empty data list is a day with no delivery, not an error
	if len(resp.Data) > 0 {
		row := resp.Data[0]
		out.Spend = parseDecimal(strings.ReplaceAll(row.Spend, ",", ""))
		if row.AccountCurrency != "" {
			out.Currency = strings.ToUpper(row.AccountCurrency)
		}
	}
	return out, nil
}

// metaInsightsResponse is the Graph API insights envelope
type metaInsightsResponse struct {
	Data []struct {
		Spend           string `json:"spend"`
		AccountCurrency string `json:"account_currency"`
		DateStart       string `json:"date_start"`
		DateStop        string `json:"date_stop"`
	} `json:"data"`
}

// MetaAdsConfig holds configuration for the Meta Marketing API
type MetaAdsConfig struct {
	// BaseURL is the Graph API base, overridable for tests
	BaseURL string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
	// MaxRetries bounds retry attempts on transient failures
	MaxRetries int
}

// MetaGraphBaseURL is the production Graph API endpoint
const MetaGraphBaseURL = "https://graph.facebook.com"

// NewMetaAdsConfig creates a Meta Ads configuration with defaults
func NewMetaAdsConfig() *MetaAdsConfig {
	return &MetaAdsConfig{
		BaseURL:    MetaGraphBaseURL,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

// Validate validates the configuration, filling defaults for zero values
func (c *MetaAdsConfig) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = MetaGraphBaseURL
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

// Ensure MetaAdsAdapter implements integration.SpendSource
var _ integration.SpendSource = (*MetaAdsAdapter)(nil)
