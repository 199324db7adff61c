// Package secretaccess is the secret access core's public Facade
// (component G): the only package most callers import. It wires together
// the Provider Registry, Cache, Event Bus, Refresh Coordinator, and one
// Resolver Aggregate per registered name, and exposes a small,
// name-keyed surface over them.
//
// Construction is via Builder, modeled on the teacher's
// tests/testutil.TestConfigBuilder fluent style, generalized from a
// test-only YAML config assembler to the production entry point this
// core ships.
package secretaccess

import (
	"context"
	"sync"

	"github.com/systmms/secretaccess/internal/cache"
	"github.com/systmms/secretaccess/internal/coordinator"
	"github.com/systmms/secretaccess/internal/errs"
	"github.com/systmms/secretaccess/internal/eventbus"
	"github.com/systmms/secretaccess/internal/logging"
	"github.com/systmms/secretaccess/internal/refresh"
	"github.com/systmms/secretaccess/internal/registry"
	"github.com/systmms/secretaccess/internal/resolve"
	"github.com/systmms/secretaccess/pkg/provider"
)

// Client is the built Facade. The zero value is not usable; obtain one
// via Builder.Build.
type Client struct {
	registry    *registry.Registry
	cache       *cache.Cache
	bus         *eventbus.Bus
	coordinator *coordinator.Coordinator
	logger      *logging.Logger

	defaultPolicyFactory func() refresh.Policy
	manifest             *Manifest

	mu      sync.Mutex
	clients map[string]*resolve.Aggregate
}

// Register binds name to reference, fetched via credential through
// whichever registered Provider supports reference's store type. name
// must not already be registered (Unregister frees it); a double-register raises
// ConfigurationError. If policy is nil, the Builder's default policy
// factory (if any) supplies one.
func (c *Client) Register(name string, reference provider.SecretReference, credential provider.AccessCredential, policy refresh.Policy) error {
	if name == "" {
		return errs.NewValidation("name", "name must not be empty")
	}

	c.mu.Lock()
	_, exists := c.clients[name]
	c.mu.Unlock()
	if exists {
		return errs.NewConfiguration("name", "a secret is already registered under name "+name)
	}

	prov, ok := c.registry.FindFor(reference.StoreType)
	if !ok {
		return errs.NewConfiguration("reference", "no provider registered for store type "+string(reference.StoreType))
	}

	if policy == nil && c.defaultPolicyFactory != nil {
		policy = c.defaultPolicyFactory()
	}

	aggregate, err := resolve.New(reference, credential, prov, c.cache, policy, c.bus)
	if err != nil {
		return err
	}

	if err := c.coordinator.RegisterSecret(reference, credential, aggregate, policy); err != nil {
		aggregate.Stop()
		return err
	}

	c.mu.Lock()
	c.clients[name] = aggregate
	c.mu.Unlock()
	return nil
}

// RegisterFromManifest registers name using the reference shape named
// name in the manifest file set via Builder.WithManifestFile, combined
// with a credential and policy supplied here at call time. It raises
// ConfigurationError if no manifest was set or name is not in it;
// otherwise it behaves exactly like Register. The manifest never
// supplies credential or secret material — only which store, which name,
// which version hint.
func (c *Client) RegisterFromManifest(name string, credential provider.AccessCredential, policy refresh.Policy) error {
	entry, err := c.manifest.entry(name)
	if err != nil {
		return err
	}

	reference, err := provider.NewSecretReference(entry.Store, entry.Name, entry.VersionHint)
	if err != nil {
		return err
	}

	return c.Register(name, reference, credential, policy)
}

// Unregister removes name, stopping its Resolver Aggregate. A no-op if
// name is unknown.
func (c *Client) Unregister(name string) {
	c.mu.Lock()
	aggregate, ok := c.clients[name]
	if ok {
		delete(c.clients, name)
	}
	c.mu.Unlock()

	if !ok {
		return
	}
	c.coordinator.UnregisterSecret(aggregate.Reference())
	aggregate.Stop()
}

// Get resolves the secret registered under name, serving a fresh cache
// hit or fetching through the bound Provider. It raises
// ConfigurationError if name is unknown.
func (c *Client) Get(name string) (*provider.Secret, error) {
	aggregate, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	return aggregate.GetSecret(context.Background())
}

// GetAsString is a convenience wrapper over Get: it copies the resolved
// Secret's value into a private Clone, reads that into a string and zeroes
// the clone's buffer before returning. The resolved Secret itself, which
// may be the cached one, is left intact.
func (c *Client) GetAsString(name string) (string, error) {
	secret, err := c.Get(name)
	if err != nil {
		return "", err
	}

	var out string
	err = secret.Clone().Scoped(func(value []byte) error {
		out = string(value)
		return nil
	})
	return out, err
}

// Refresh forces a fetch for name, bypassing any cached value.
func (c *Client) Refresh(name string) (*provider.Secret, error) {
	aggregate, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	return aggregate.RefreshSecret(context.Background())
}

func (c *Client) lookup(name string) (*resolve.Aggregate, error) {
	c.mu.Lock()
	aggregate, ok := c.clients[name]
	c.mu.Unlock()
	if !ok {
		return nil, errs.NewConfiguration("name", "no secret registered under name "+name)
	}
	return aggregate, nil
}

// Close stops the Refresh Coordinator and every registered Resolver
// Aggregate's Refresh Policy. Per-component shutdown is best-effort;
// Close always returns nil, matching the teacher's
// internal/rotation/notifications.Manager shutdown posture of swallowing
// individual stop errors rather than failing the whole teardown.
func (c *Client) Close() error {
	c.coordinator.Stop()

	c.mu.Lock()
	aggregates := make([]*resolve.Aggregate, 0, len(c.clients))
	for _, aggregate := range c.clients {
		aggregates = append(aggregates, aggregate)
	}
	c.clients = make(map[string]*resolve.Aggregate)
	c.mu.Unlock()

	for _, aggregate := range aggregates {
		aggregate.Stop()
	}
	return nil
}
