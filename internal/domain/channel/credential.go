package channel

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/channelpilot/backend/internal/domain/integration"
)

// CredentialStore is the boundary to credential storage. Implementations own
// encryption at rest; this core only ever sees decrypted payloads. There is
// one payload per (user, provider), overwritten on reconnect.
type CredentialStore interface {
	// Get returns the decrypted payload, or ErrAccountNotFound-compatible
	// integration.ErrCredentialMissing when nothing is saved
	Get(ctx context.Context, userID uuid.UUID, providerID string) (string, error)

	// Save overwrites the payload for (user, provider)
	Save(ctx context.Context, userID uuid.UUID, providerID string, payload string) error
}

// SecretSource yields one candidate credential for a (user, provider) pair.
// Sources are tried in order by the Resolver; the chain is a first-class
// construct so fallback behavior is testable rather than ad hoc branching.
type SecretSource interface {
	// Name identifies the source in logs
	Name() string

	// Lookup returns the credential, or ok=false when this source has none
	Lookup(ctx context.Context, userID uuid.UUID, providerID string) (integration.Credential, bool, error)
}

// ---------------------------------------------------------------------------
// Sources
// ---------------------------------------------------------------------------

// StoreSource resolves user-saved credentials from the CredentialStore
type StoreSource struct {
	store CredentialStore
}

// NewStoreSource creates a SecretSource backed by the credential store
func NewStoreSource(store CredentialStore) *StoreSource {
	return &StoreSource{store: store}
}

// Name identifies the source
func (s *StoreSource) Name() string { return "user_store" }

// Lookup fetches and decodes the user's saved payload
func (s *StoreSource) Lookup(ctx context.Context, userID uuid.UUID, providerID string) (integration.Credential, bool, error) {
	payload, err := s.store.Get(ctx, userID, providerID)
	if err != nil {
		if err == integration.ErrCredentialMissing {
			return integration.Credential{}, false, nil
		}
		return integration.Credential{}, false, err
	}
	cred, err := DecodePayload(providerID, payload)
	if err != nil {
		return integration.Credential{}, false, err
	}
	return cred, true, nil
}

// StaticSource resolves process-wide default credentials, typically loaded
// from configuration or the environment. It ignores the user id.
type StaticSource struct {
	name   string
	values map[string]map[string]string // providerID -> payload values
}

// NewStaticSource creates a SecretSource over fixed per-provider values.
// Providers with no non-empty values are treated as absent.
func NewStaticSource(name string, values map[string]map[string]string) *StaticSource {
	return &StaticSource{name: name, values: values}
}

// Name identifies the source
func (s *StaticSource) Name() string { return s.name }

// Lookup returns the static values for a provider
func (s *StaticSource) Lookup(_ context.Context, _ uuid.UUID, providerID string) (integration.Credential, bool, error) {
	vals, ok := s.values[providerID]
	if !ok {
		return integration.Credential{}, false, nil
	}
	nonEmpty := make(map[string]string, len(vals))
	for k, v := range vals {
		if v != "" {
			nonEmpty[k] = v
		}
	}
	if len(nonEmpty) == 0 {
		return integration.Credential{}, false, nil
	}
	return integration.Credential{ProviderID: providerID, Values: nonEmpty}, true, nil
}

// ---------------------------------------------------------------------------
// Resolver
// ---------------------------------------------------------------------------

// Resolver resolves the active credential for a (user, provider) pair by
// trying an ordered list of sources: user-saved payload first, then the
// process-wide default, then any environment fallback.
type Resolver struct {
	sources []SecretSource
}

// NewResolver creates a Resolver over the given source chain
func NewResolver(sources ...SecretSource) *Resolver {
	return &Resolver{sources: sources}
}

// Resolve returns the first credential any source yields, or
// integration.ErrCredentialMissing when the chain is exhausted.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID, providerID string) (integration.Credential, error) {
	for _, src := range r.sources {
		cred, ok, err := src.Lookup(ctx, userID, providerID)
		if err != nil {
			return integration.Credential{}, err
		}
		if ok {
			return cred, nil
		}
	}
	return integration.Credential{}, integration.ErrCredentialMissing
}

// Candidates returns every credential the chain can yield, in source order.
// Webhook signature verification tries each candidate secret until one
// matches, since a webhook may have been registered under any of them.
func (r *Resolver) Candidates(ctx context.Context, userID uuid.UUID, providerID string) ([]integration.Credential, error) {
	var out []integration.Credential
	for _, src := range r.sources {
		cred, ok, err := src.Lookup(ctx, userID, providerID)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, cred)
		}
	}
	return out, nil
}

// DecodePayload decodes a stored credential payload. Payloads are either a
// JSON object of provider-specific keys or a bare token string, which older
// connect flows saved directly.
func DecodePayload(providerID, payload string) (integration.Credential, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return integration.Credential{}, integration.ErrCredentialInvalid
	}
	if strings.HasPrefix(trimmed, "{") {
		var values map[string]string
		if err := json.Unmarshal([]byte(trimmed), &values); err != nil {
			return integration.Credential{}, integration.ErrCredentialInvalid
		}
		return integration.Credential{ProviderID: providerID, Values: values}, nil
	}
	return integration.Credential{
		ProviderID: providerID,
		Values:     map[string]string{"apiKey": trimmed},
	}, nil
}
