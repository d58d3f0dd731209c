package providers

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ShopifyConfig holds configuration for the Shopify Admin API
type ShopifyConfig struct {
	// APIVersion is the pinned Admin API version
	APIVersion string
	// BaseURLOverride replaces the per-shop https URL, for tests
	BaseURLOverride string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
	// MaxRetries bounds retry attempts on transient failures
	MaxRetries int
}

// ErrShopifyConfigMissingVersion indicates an empty API version
var ErrShopifyConfigMissingVersion = errors.New("shopify: api version is required")

// NewShopifyConfig creates a Shopify configuration with defaults
func NewShopifyConfig() *ShopifyConfig {
	return &ShopifyConfig{
		APIVersion: shopifyAPIVersion,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

// Validate validates the configuration, filling defaults for zero values
func (c *ShopifyConfig) Validate() error {
	if c.APIVersion == "" {
		return ErrShopifyConfigMissingVersion
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return nil
}

// apiBase returns the versioned Admin API base URL for a shop
func (c *ShopifyConfig) apiBase(shopDomain string) string {
	if c.BaseURLOverride != "" {
		return strings.TrimRight(c.BaseURLOverride, "/")
	}
	shop := strings.ToLower(strings.TrimSpace(shopDomain))
	if !strings.Contains(shop, ".") {
		shop += ".myshopify.com"
	}
	return fmt.Sprintf("https://%s/admin/api/%s", shop, c.APIVersion)
}
