package provider

import "time"

// SecretMetadata describes a fetched Secret: which version it is, when it
// was retrieved, which store it came from, and the reference that
// produced it. All fields are non-null by construction. Equality ignores
// LastRetrieved — two fetches of the same version are "the same metadata"
// regardless of when each happened.
type SecretMetadata struct {
	Version       string
	LastRetrieved time.Time
	StoreType     StoreType
	SourceRef     SecretReference
}

// NewSecretMetadata builds metadata for a freshly fetched secret.
// LastRetrieved is set to now.
func NewSecretMetadata(version string, storeType StoreType, sourceRef SecretReference) SecretMetadata {
	return SecretMetadata{
		Version:       version,
		LastRetrieved: time.Now(),
		StoreType:     storeType,
		SourceRef:     sourceRef,
	}
}

// WithTimestamp returns a copy of m with LastRetrieved updated to now.
func (m SecretMetadata) WithTimestamp() SecretMetadata {
	m.LastRetrieved = time.Now()
	return m
}

// WithVersion returns a copy of m with a new Version (and LastRetrieved
// refreshed to now, since a new version implies a new fetch).
func (m SecretMetadata) WithVersion(version string) SecretMetadata {
	m.Version = version
	m.LastRetrieved = time.Now()
	return m
}

// Equal reports whether m and other describe the same version from the
// same store and reference, ignoring LastRetrieved.
func (m SecretMetadata) Equal(other SecretMetadata) bool {
	return m.Version == other.Version &&
		m.StoreType == other.StoreType &&
		m.SourceRef == other.SourceRef
}
