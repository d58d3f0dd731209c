package integration

import "errors"

var (
	// Credential errors
	ErrCredentialMissing = errors.New("integration: credential missing, connect the provider first")
	ErrCredentialInvalid = errors.New("integration: credential payload invalid")

	// Sync errors
	ErrSyncInProgress = errors.New("integration: sync already in progress for this account")

	// Webhook errors
	ErrSignatureInvalid = errors.New("integration: webhook signature invalid")
	ErrUnknownTopic     = errors.New("integration: unknown webhook topic")

	// Provider transport errors
	ErrProviderUnavailable     = errors.New("integration: provider temporarily unavailable")
	ErrProviderTimeout         = errors.New("integration: provider request timed out")
	ErrProviderInvalidResponse = errors.New("integration: invalid provider response")
	ErrProviderAuthFailed      = errors.New("integration: provider authentication failed")
	ErrProviderRateLimited     = errors.New("integration: provider rate limited")

	// Mapping errors
	ErrMappingUnknown     = errors.New("integration: unknown external status or topic")
	ErrInvalidChannelType = errors.New("integration: invalid channel type")
	ErrInvalidCourier     = errors.New("integration: invalid courier family")
	ErrInvalidAdPlatform  = errors.New("integration: invalid ad platform")

	// Registry errors
	ErrAdapterNotRegistered = errors.New("integration: no adapter registered for provider")
)
