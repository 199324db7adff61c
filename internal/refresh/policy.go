// Package refresh implements the secret access core's Refresh Policy
// (component E): a pluggable strategy deciding when a registered
// reference's cached Secret should be proactively refreshed, independent
// of the Resolver Aggregate's own stale-on-read behavior.
//
// Neither strategy below performs a fetch, cache write, or rollover
// check itself. Both publish SecretRefreshRequested, then call back into
// the Refresher (the resolve.Aggregate) bound to the triggered
// reference, so every refresh — whether caused by a direct Get/Refresh
// call, a Coordinator sweep, or a Policy's own ticker/event — goes
// through the one place §4.4's single-flight guard and rollover
// detection live.
package refresh

import (
	"context"

	"github.com/systmms/secretaccess/internal/cache"
	"github.com/systmms/secretaccess/pkg/provider"
)

// Refresher is the callback a Policy invokes to actually perform a
// refresh for a bound reference. *resolve.Aggregate satisfies this
// interface implicitly; internal/refresh does not import internal/resolve
// to avoid a cycle (internal/resolve already imports internal/refresh for
// the Policy type it holds).
type Refresher interface {
	RefreshSecret(ctx context.Context) (*provider.Secret, error)
}

// Policy is the Refresh Policy contract from spec §4.5.
type Policy interface {
	// Apply binds the policy to the Provider and Cache it should drive.
	// Idempotent.
	Apply(p provider.Provider, c *cache.Cache)

	// IsRefreshNeeded is a cheap predicate consulted when deciding
	// whether to honor a cache hit.
	IsRefreshNeeded(ref provider.SecretReference, cachedSecret *provider.Secret) bool

	// TriggerRefresh requests an out-of-band refresh for a registered
	// reference. It publishes SecretRefreshRequested, then calls the
	// bound Refresher's RefreshSecret. Errors are logged, never raised
	// to the caller; the bool return reports whether the reference was
	// registered at all.
	TriggerRefresh(ctx context.Context, ref provider.SecretReference) bool

	// Start begins any background worker. Idempotent.
	Start()

	// Stop waits for background work to cease, up to an internal bound,
	// then returns regardless.
	Stop()

	// IsRunning reports whether the background worker is active.
	IsRunning() bool

	// RegisterSecret binds a reference to the Refresher that should
	// service it, so the policy's ticker/event dispatch has something
	// to call back into.
	RegisterSecret(ref provider.SecretReference, refresher Refresher)

	// UnregisterSecret removes a previously registered reference.
	UnregisterSecret(ref provider.SecretReference)
}

type registration struct {
	refresher Refresher
}
