package integration

import (
	"context"
	"time"
)

// ---------------------------------------------------------------------------
// Adapter ports
// ---------------------------------------------------------------------------
// These interfaces follow the Ports & Adapters pattern: they are defined here
// in the domain layer and implemented per provider in the infrastructure
// layer. Each adapter owns its provider's wire format, signing, paging and
// retry behavior; the core only ever sees normalized projections.

// OrderSource pulls raw orders from a commerce channel and maps them to
// NormalizedOrder.
type OrderSource interface {
	// ChannelType returns the channel this adapter handles
	ChannelType() ChannelType

	// FetchOrders returns all orders created or updated since the cursor.
	// Calls are idempotent GETs and may be retried with backoff.
	FetchOrders(ctx context.Context, cred Credential, since time.Time) ([]NormalizedOrder, error)
}

// TrackingSource batch-queries a courier's tracking API. Implementations cap
// the refs they accept per call at the courier's documented batch limit and
// must return one TrackingUpdate per requested ref, with Err set on
// per-waybill failures.
type TrackingSource interface {
	// CourierFamily returns the courier this adapter handles
	CourierFamily() CourierFamily

	// FetchShipmentStatus resolves current statuses for tracking refs
	FetchShipmentStatus(ctx context.Context, cred Credential, trackingRefs []string) ([]TrackingUpdate, error)
}

// SpendSource pulls one day of marketing spend from an ad platform
type SpendSource interface {
	// Platform returns the ad platform this adapter handles
	Platform() AdPlatform

	// FetchAdSpend returns the spend for a calendar day
	FetchAdSpend(ctx context.Context, cred Credential, day time.Time) (AdSpend, error)
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// Registry is the fixed set of provider adapters the process runs with.
// It is assembled once at startup; lookups validate the provider tag and
// fail with ErrAdapterNotRegistered rather than dispatching on free strings.
type Registry struct {
	orders   map[ChannelType]OrderSource
	tracking map[CourierFamily]TrackingSource
	spend    map[AdPlatform]SpendSource
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{
		orders:   make(map[ChannelType]OrderSource),
		tracking: make(map[CourierFamily]TrackingSource),
		spend:    make(map[AdPlatform]SpendSource),
	}
}

// RegisterOrderSource adds a commerce adapter to the registry
func (r *Registry) RegisterOrderSource(s OrderSource) {
	r.orders[s.ChannelType()] = s
}

// RegisterTrackingSource adds a courier adapter to the registry
func (r *Registry) RegisterTrackingSource(s TrackingSource) {
	r.tracking[s.CourierFamily()] = s
}

// RegisterSpendSource adds an ad platform adapter to the registry
func (r *Registry) RegisterSpendSource(s SpendSource) {
	r.spend[s.Platform()] = s
}

// OrderSource returns the adapter for a channel type
func (r *Registry) OrderSource(c ChannelType) (OrderSource, error) {
	if !c.IsValid() {
		return nil, ErrInvalidChannelType
	}
	s, ok := r.orders[c]
	if !ok {
		return nil, ErrAdapterNotRegistered
	}
	return s, nil
}

// TrackingSource returns the adapter for a courier family
func (r *Registry) TrackingSource(c CourierFamily) (TrackingSource, error) {
	if !c.IsValid() {
		return nil, ErrInvalidCourier
	}
	s, ok := r.tracking[c]
	if !ok {
		return nil, ErrAdapterNotRegistered
	}
	return s, nil
}

// SpendSource returns the adapter for an ad platform
func (r *Registry) SpendSource(p AdPlatform) (SpendSource, error) {
	if !p.IsValid() {
		return nil, ErrInvalidAdPlatform
	}
	s, ok := r.spend[p]
	if !ok {
		return nil, ErrAdapterNotRegistered
	}
	return s, nil
}

// TrackingSources returns all registered courier adapters
func (r *Registry) TrackingSources() []TrackingSource {
	out := make([]TrackingSource, 0, len(r.tracking))
	for _, s := range r.tracking {
		out = append(out, s)
	}
	return out
}

// SpendSources returns all registered ad platform adapters
func (r *Registry) SpendSources() []SpendSource {
	out := make([]SpendSource, 0, len(r.spend))
	for _, s := range r.spend {
		out = append(out, s)
	}
	return out
}
