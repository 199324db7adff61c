// Package registry implements the secret access core's Provider Registry
// (component B): an append-only, insertion-ordered list of providers that
// the Facade consults at registration time to find a Provider supporting a
// given reference's store type.
//
// This generalizes the teacher's internal/providers.Registry and
// internal/secretstores.Registry — both of which are keyed, factory-based
// registries resolving a provider by a configured type string — to the
// spec's simpler "first match wins, insertion order" contract: a Provider
// here declares what it supports via Provider.SupportsStore rather than
// being looked up by a string key, so registration order is the only
// tie-breaking rule when more than one Provider could serve a store type.
package registry

import (
	"sync"

	"github.com/systmms/secretaccess/pkg/provider"
)

// Registry holds the set of Providers a Facade was built with, in
// registration order. It supports no deregistration: a Provider, once
// registered, is reachable for the lifetime of the Registry.
type Registry struct {
	mu        sync.RWMutex
	providers []provider.Provider
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Register appends p to the registry. Providers are tried in the order
// they were registered, so an earlier registration for an overlapping
// store type always wins FindFor.
func (r *Registry) Register(p provider.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, p)
}

// FindFor returns the first registered Provider whose SupportsStore
// reports true for storeType, or false if none does.
func (r *Registry) FindFor(storeType provider.StoreType) (provider.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.providers {
		if p.SupportsStore(storeType) {
			return p, true
		}
	}
	return nil, false
}

// All returns a copy of the registered providers in registration order.
func (r *Registry) All() []provider.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]provider.Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Len reports the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
