package integration

// Credential is a decrypted provider credential as consumed by adapters.
// The payload is an opaque key/value set whose keys are provider-specific
// (access tokens, client ids, API keys). Encryption at rest is handled
// outside this core behind the channel.CredentialStore interface.
type Credential struct {
	ProviderID string
	Values     map[string]string
}

// Get returns the value for a key, or "" when absent
func (c Credential) Get(key string) string {
	if c.Values == nil {
		return ""
	}
	return c.Values[key]
}

// Has reports whether every listed key is present and non-empty
func (c Credential) Has(keys ...string) bool {
	for _, k := range keys {
		if c.Get(k) == "" {
			return false
		}
	}
	return true
}

// IsZero reports whether the credential carries no values
func (c Credential) IsZero() bool {
	return len(c.Values) == 0
}
