package providers

import (
	"errors"
	"strings"
	"time"
)

// FlipkartProductionBaseURL is the production Seller API endpoint
const FlipkartProductionBaseURL = "https://api.flipkart.net/sellers/v2"

// FlipkartConfig holds configuration for the Flipkart Seller API
type FlipkartConfig struct {
	// BaseURL is the Seller API base, overridable for tests
	BaseURL string
	// MaxPages bounds pagination so a runaway feed cannot spin forever
	MaxPages int
	// Timeout is the HTTP request timeout
	Timeout time.Duration
	// MaxRetries bounds retry attempts on transient failures
	MaxRetries int
}

// ErrFlipkartConfigMissingBaseURL indicates an empty base URL
var ErrFlipkartConfigMissingBaseURL = errors.New("flipkart: base url is required")

// NewFlipkartConfig creates a Flipkart configuration with defaults
func NewFlipkartConfig() *FlipkartConfig {
	return &FlipkartConfig{
		BaseURL:    FlipkartProductionBaseURL,
		MaxPages:   20,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

// Validate validates the configuration, filling defaults for zero values
func (c *FlipkartConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrFlipkartConfigMissingBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.MaxPages <= 0 {
		c.MaxPages = 20
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return nil
}

// resolvePageURL rewrites a provider-issued continuation URL onto the
// configured base, so test servers and proxies keep working mid-pagination
func (c *FlipkartConfig) resolvePageURL(nextPageURL string) string {
	if strings.HasPrefix(nextPageURL, "http://") || strings.HasPrefix(nextPageURL, "https://") {
		return nextPageURL
	}
	return c.BaseURL + "/" + strings.TrimLeft(nextPageURL, "/")
}
