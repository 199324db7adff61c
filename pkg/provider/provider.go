package provider

import "context"

// Provider is the contract implemented by secret store adapters: AWS
// Secrets Manager, a CyberArk-style vault, or any other store. The core
// never talks to a backing store directly — it only ever calls through
// this interface, chosen for a SecretReference by the Provider Registry.
//
// Implementations must be safe for concurrent use: the Resolver Aggregate
// may call FetchSecret from multiple goroutines for different references
// at the same time (though never concurrently for the *same* reference,
// thanks to the Aggregate's single-flight guard).
type Provider interface {
	// FetchSecret retrieves the current value for ref using credential.
	// Implementations must set the returned Secret's Metadata.SourceRef to
	// ref and Metadata.StoreType to ref.StoreType, and must populate
	// Metadata.Version with a stable opaque identifier: the same bytes iff
	// the underlying secret is unchanged, a new identifier on every
	// rotation. Errors are wrapped by the core as AccessError; Providers
	// should still return descriptive errors (not bare sentinels) since
	// AccessError carries the cause.
	FetchSecret(ctx context.Context, ref SecretReference, credential AccessCredential) (*Secret, error)

	// SupportsStore reports whether this Provider can serve references of
	// the given StoreType. The Provider Registry calls this, in
	// registration order, to route a reference to its Provider.
	SupportsStore(storeType StoreType) bool

	// GetLatestVersion returns the current version identifier for ref
	// without fetching the value, for cheap staleness checks. The zero
	// value ("", false) means "not supported" — most Providers can leave
	// this unimplemented by returning that.
	GetLatestVersion(ctx context.Context, ref SecretReference, credential AccessCredential) (string, bool)

	// SupportsChangeNotifications reports whether this Provider can push
	// change notifications (as opposed to only being polled). Most
	// Providers return false.
	SupportsChangeNotifications() bool
}
