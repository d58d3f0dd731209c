package integration

// ---------------------------------------------------------------------------
// Provider identity tags
// ---------------------------------------------------------------------------

// ChannelType identifies a commerce marketplace or storefront that produces
// orders. It is a validated variant tag, not a free string: unknown values
// are rejected at the boundary where provider ids enter the system.
type ChannelType string

const (
	ChannelShopify  ChannelType = "SHOPIFY"
	ChannelAmazon   ChannelType = "AMAZON"
	ChannelFlipkart ChannelType = "FLIPKART"
	ChannelMyntra   ChannelType = "MYNTRA"
)

// IsValid returns true if the channel type is known
func (c ChannelType) IsValid() bool {
	switch c {
	case ChannelShopify, ChannelAmazon, ChannelFlipkart, ChannelMyntra:
		return true
	default:
		return false
	}
}

// String returns the string representation of ChannelType
func (c ChannelType) String() string {
	return string(c)
}

// ProviderID returns the credential namespace for the channel, matching the
// provider_id column of provider_credentials
func (c ChannelType) ProviderID() string {
	switch c {
	case ChannelShopify:
		return "shopify"
	case ChannelAmazon:
		return "amazon"
	case ChannelFlipkart:
		return "flipkart"
	case ChannelMyntra:
		return "myntra"
	default:
		return ""
	}
}

// CourierFamily identifies a logistics provider whose tracking API the
// shipment workers poll.
type CourierFamily string

const (
	CourierSelloship CourierFamily = "SELLOSHIP"
	CourierDelhivery CourierFamily = "DELHIVERY"
)

// IsValid returns true if the courier family is known
func (c CourierFamily) IsValid() bool {
	return c == CourierSelloship || c == CourierDelhivery
}

// String returns the string representation of CourierFamily
func (c CourierFamily) String() string {
	return string(c)
}

// ProviderID returns the credential namespace for the courier
func (c CourierFamily) ProviderID() string {
	switch c {
	case CourierSelloship:
		return "selloship"
	case CourierDelhivery:
		return "delhivery"
	default:
		return ""
	}
}

// AdPlatform identifies a marketing platform whose daily spend is ingested
type AdPlatform string

const (
	AdPlatformMeta   AdPlatform = "META"
	AdPlatformGoogle AdPlatform = "GOOGLE"
)

// IsValid returns true if the ad platform is known
func (p AdPlatform) IsValid() bool {
	return p == AdPlatformMeta || p == AdPlatformGoogle
}

// String returns the string representation of AdPlatform
func (p AdPlatform) String() string {
	return string(p)
}

// ProviderID returns the credential namespace for the ad platform
func (p AdPlatform) ProviderID() string {
	switch p {
	case AdPlatformMeta:
		return "meta_ads"
	case AdPlatformGoogle:
		return "google_ads"
	default:
		return ""
	}
}
