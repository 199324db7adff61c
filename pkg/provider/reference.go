package provider

import (
	"fmt"
	"strings"
)

// VersionLatest is the default version hint: the store's current version.
const VersionLatest = "latest"

// VersionActive and VersionInactive carry rollover semantics (see the
// Resolver Aggregate's rollover detection): a reference whose version hint
// is "active" has its fetched version compared against a sibling reference
// with the same (StoreType, Name) and version hint "inactive".
const (
	VersionActive   = "active"
	VersionInactive = "inactive"
)

// SecretReference is the immutable identity triple (StoreType, Name,
// VersionHint) used as both cache key and registration key. It is a plain
// comparable struct: equality and Go's built-in map hashing are over all
// three fields, matching the spec's equality/hash requirement exactly —
// no custom Equals/HashCode is needed because the fields are all strings.
type SecretReference struct {
	StoreType   StoreType
	Name        string
	VersionHint string
}

// NewSecretReference builds a validated SecretReference. Name must be
// non-empty. An empty versionHint defaults to VersionLatest.
func NewSecretReference(storeType StoreType, name, versionHint string) (SecretReference, error) {
	if name == "" {
		return SecretReference{}, NewValidationError("name", "secret reference: name must not be empty")
	}
	if versionHint == "" {
		versionHint = VersionLatest
	}
	return SecretReference{StoreType: storeType, Name: name, VersionHint: versionHint}, nil
}

// String renders a diagnostic form. It contains no secret material — a
// reference never does.
func (r SecretReference) String() string {
	return fmt.Sprintf("%s/%s@%s", r.StoreType, r.Name, r.VersionHint)
}

// WithVersionHint returns a copy of r with a different version hint. Used
// by the Resolver Aggregate to form the sibling reference for rollover
// detection.
func (r SecretReference) WithVersionHint(versionHint string) SecretReference {
	r.VersionHint = versionHint
	return r
}

// IsActiveVersion reports whether this reference's version hint is
// "active" (case-insensitive), the trigger condition for rollover
// detection in the Resolver Aggregate.
func (r SecretReference) IsActiveVersion() bool {
	return strings.EqualFold(r.VersionHint, VersionActive)
}
