package provider

import (
	"fmt"

	"github.com/systmms/secretaccess/internal/secure"
)

// Secret is a fetched secret value and its metadata. Id is a stable
// identifier minted by the Provider that fetched the value and must never
// be reused across fetches that produce semantically different values —
// it is what Secret equality is defined over, not Value or Metadata.
//
// Value is held in a locked, zero-able buffer (internal/secure.Buffer).
// Reads via Value() always return a defensive copy; the buffer itself is
// only mutated by ClearValue, which overwrites it with a fixed non-secret
// byte. Buffers returned to callers are owned by the caller from that
// point on — the core only clears buffers it still owns itself (cache
// evictions of entries no live caller holds a reference to).
type Secret struct {
	id       string
	name     string
	value    *secure.Buffer
	metadata SecretMetadata
}

// NewSecret mints a Secret from bytes fetched by a Provider. id must be a
// stable, provider-minted identifier; value is copied into a locked
// buffer and the input slice is wiped as part of that copy.
func NewSecret(id, name string, value []byte, metadata SecretMetadata) *Secret {
	return &Secret{
		id:       id,
		name:     name,
		value:    secure.NewBuffer(value),
		metadata: metadata,
	}
}

// ID returns the secret's stable identifier.
func (s *Secret) ID() string { return s.id }

// Name returns the secret's name.
func (s *Secret) Name() string { return s.name }

// Metadata returns the secret's metadata.
func (s *Secret) Metadata() SecretMetadata { return s.metadata }

// Value returns a defensive copy of the secret's bytes, or nil if the
// value has already been cleared.
func (s *Secret) Value() []byte { return s.value.Bytes() }

// ClearValue overwrites the secret's buffer with a fixed non-secret byte.
// It is idempotent and safe to call from any exit path.
func (s *Secret) ClearValue() { s.value.Clear() }

// Cleared reports whether ClearValue has already run.
func (s *Secret) Cleared() bool { return s.value.Cleared() }

// Scoped runs fn with a defensive copy of the secret's value, then clears
// the secret's buffer on every exit path from fn — the scoped-acquisition
// pattern the spec requires for callers accepting ownership of a Secret's
// value for a bounded region of code.
func (s *Secret) Scoped(fn func(value []byte) error) error {
	return secure.Scope(s.value, fn)
}

// Equal reports whether two Secrets are the same minted value, by ID
// only — Value and Metadata are deliberately excluded.
func (s *Secret) Equal(other *Secret) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.id == other.id
}

// String renders a diagnostic form that includes id, name, and metadata
// but never the value.
func (s *Secret) String() string {
	if s == nil {
		return "Secret(nil)"
	}
	return fmt.Sprintf("Secret{ID: %s, Name: %s, Version: %s, StoreType: %s, SourceRef: %s}",
		s.id, s.name, s.metadata.Version, s.metadata.StoreType, s.metadata.SourceRef)
}

// Clone returns a copy of s backed by its own locked buffer, so clearing
// the clone's value (directly or via Scoped) never affects s or any
// cache entry s is shared with. Used by callers that need to consume a
// Secret's value independently of a cache-owned original.
func (s *Secret) Clone() *Secret {
	return &Secret{id: s.id, name: s.name, value: secure.NewBuffer(s.value.Bytes()), metadata: s.metadata}
}

// WithMetadata returns a shallow copy of s with different metadata. The
// copy shares s's buffer, so clearing either one clears both. The Resolver
// Aggregate does not call it: it caches a Secret with the metadata its
// Provider set.
func (s *Secret) WithMetadata(metadata SecretMetadata) *Secret {
	return &Secret{id: s.id, name: s.name, value: s.value, metadata: metadata}
}
