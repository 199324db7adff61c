// Package resolve implements the secret access core's Resolver Aggregate
// (component D): the per-reference state machine owning one
// SecretReference, its AccessCredential, the Provider chosen for it at
// construction, a shared Cache, an optional Refresh Policy, and an Event
// Bus publish handle.
//
// Concurrency is modeled on the teacher's internal/resolve package — a
// mutex-guarded map with bounded concurrent fan-out — generalized to a
// true single-flight guarantee via golang.org/x/sync/singleflight, which
// already ships (indirectly) in the teacher's own dependency graph and is
// the canonical ecosystem primitive for "at most one in-flight call per
// key, waiters share the result".
package resolve

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/systmms/secretaccess/internal/cache"
	"github.com/systmms/secretaccess/internal/errs"
	"github.com/systmms/secretaccess/internal/eventbus"
	"github.com/systmms/secretaccess/internal/refresh"
	"github.com/systmms/secretaccess/pkg/provider"
)

// Aggregate is the per-reference resolution state machine: Idle →
// Fetching → Idle. Entry to Fetching is guarded by a single-flight group
// keyed on the reference's string form, so at most one refresh is ever
// in flight for this Aggregate's reference, and concurrent callers
// observing a stale/missing cache entry coalesce onto it.
type Aggregate struct {
	reference  provider.SecretReference
	credential provider.AccessCredential
	provider   provider.Provider
	cache      *cache.Cache
	policy     refresh.Policy
	bus        *eventbus.Bus

	group singleflight.Group

	mu            sync.Mutex
	lastRetrieved *provider.Secret
}

// New constructs an Aggregate for reference, validating that provider
// supports reference's store type and rejecting a nil credential or
// provider. If policy is non-nil, it is Applied with (provider, cache)
// and Started if not already running.
func New(reference provider.SecretReference, credential provider.AccessCredential, prov provider.Provider, c *cache.Cache, policy refresh.Policy, bus *eventbus.Bus) (*Aggregate, error) {
	if prov == nil {
		return nil, errs.NewValidation("provider", "provider must not be nil")
	}
	if c == nil {
		return nil, errs.NewValidation("cache", "cache must not be nil")
	}
	if credential.Method() == "" {
		return nil, errs.NewValidation("credential", "credential must not be empty")
	}
	if !prov.SupportsStore(reference.StoreType) {
		return nil, errs.NewConfiguration("provider", "no provider supports store type "+string(reference.StoreType))
	}

	a := &Aggregate{
		reference:  reference,
		credential: credential,
		provider:   prov,
		cache:      c,
		policy:     policy,
		bus:        bus,
	}

	if policy != nil {
		policy.Apply(prov, c)
		policy.RegisterSecret(reference, a)
		if !policy.IsRunning() {
			policy.Start()
		}
	}

	return a, nil
}

// Reference returns the SecretReference this Aggregate owns.
func (a *Aggregate) Reference() provider.SecretReference {
	return a.reference
}

// GetSecret is the read path: a fresh cache hit is returned directly,
// otherwise this delegates to RefreshSecret.
func (a *Aggregate) GetSecret(ctx context.Context) (*provider.Secret, error) {
	if secret, ok := a.cache.Get(a.reference); ok {
		a.mu.Lock()
		a.lastRetrieved = secret
		a.mu.Unlock()
		return secret, nil
	}
	return a.RefreshSecret(ctx)
}

// RefreshSecret forces a fetch, coalescing concurrent callers onto a
// single in-flight Provider call via the single-flight group.
func (a *Aggregate) RefreshSecret(ctx context.Context) (*provider.Secret, error) {
	key := a.reference.String()

	result, err, _ := a.group.Do(key, func() (interface{}, error) {
		return a.refreshSecretLocked(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*provider.Secret), nil
}

func (a *Aggregate) refreshSecretLocked(ctx context.Context) (*provider.Secret, error) {
	a.mu.Lock()
	prior := a.lastRetrieved
	a.mu.Unlock()

	secret, err := a.provider.FetchSecret(ctx, a.reference, a.credential)
	if err != nil {
		return nil, errs.NewAccess(a.reference, "fetch failed", err)
	}

	a.mu.Lock()
	a.lastRetrieved = secret
	a.mu.Unlock()

	a.detectRollover(prior, secret)

	a.cache.Put(secret)

	valueChanged := prior == nil || string(prior.Value()) != string(secret.Value())

	if a.bus != nil {
		a.bus.Publish(eventbus.SecretRefreshed{
			Reference:    a.reference,
			Version:      secret.Metadata().Version,
			ValueChanged: valueChanged,
		})
	}

	return secret, nil
}

// detectRollover implements §4.4 step 4: only applies when this
// Aggregate's reference carries the "active" version hint. It compares
// the pre-fetch snapshot of lastRetrieved (prior) against the freshly
// fetched secret — never the post-fetch field — so a second caller
// racing into refreshSecretLocked after this one completed cannot
// observe a stale "prior" and double-report a rollover that already
// fired.
func (a *Aggregate) detectRollover(prior, fresh *provider.Secret) {
	if !a.reference.IsActiveVersion() {
		return
	}
	if prior == nil {
		return
	}

	siblingRef := a.reference.WithVersionHint(provider.VersionInactive)
	if _, siblingCached := a.cache.Get(siblingRef); !siblingCached {
		return
	}

	if prior.Metadata().Version == fresh.Metadata().Version {
		return
	}

	if a.bus != nil {
		a.bus.Publish(eventbus.SecretRolloverDetected{
			ActiveReference:   a.reference,
			InactiveReference: siblingRef,
			NewActiveVersion:  fresh.Metadata().Version,
		})
	}
}

// Stop stops the Aggregate's Refresh Policy, if one is bound and running.
func (a *Aggregate) Stop() {
	if a.policy != nil && a.policy.IsRunning() {
		a.policy.Stop()
	}
}
