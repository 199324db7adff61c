// Package mock provides a deterministic in-memory Provider for tests and
// demos, adapted from the teacher's internal/providers.MockProvider
// (simulated delay/failure hooks over an in-memory value map) to this
// core's Provider contract (FetchSecret/SupportsStore/GetLatestVersion/
// SupportsChangeNotifications).
package mock

import (
	"context"
	"time"

	"github.com/systmms/secretaccess/internal/errs"
	"github.com/systmms/secretaccess/pkg/provider"
)

type entry struct {
	value   string
	version string
}

// Provider is a deterministic, in-memory secret store double. It never
// performs I/O; FetchSecret returns immediately unless a delay has been
// configured for the reference.
type Provider struct {
	storeType provider.StoreType
	values    map[provider.SecretReference]entry
	failures  map[provider.SecretReference]error
	delays    map[provider.SecretReference]time.Duration
}

// New creates a Provider that supports storeType.
func New(storeType provider.StoreType) *Provider {
	return &Provider{
		storeType: storeType,
		values:    make(map[provider.SecretReference]entry),
		failures:  make(map[provider.SecretReference]error),
		delays:    make(map[provider.SecretReference]time.Duration),
	}
}

// SetValue sets the value and version FetchSecret returns for ref.
func (p *Provider) SetValue(ref provider.SecretReference, value, version string) {
	p.values[ref] = entry{value: value, version: version}
}

// SetFailure makes FetchSecret return err for ref instead of a value.
func (p *Provider) SetFailure(ref provider.SecretReference, err error) {
	p.failures[ref] = err
}

// SetDelay makes FetchSecret block for d before returning, honoring
// context cancellation.
func (p *Provider) SetDelay(ref provider.SecretReference, d time.Duration) {
	p.delays[ref] = d
}

// FetchSecret implements provider.Provider.
func (p *Provider) FetchSecret(ctx context.Context, ref provider.SecretReference, credential provider.AccessCredential) (*provider.Secret, error) {
	if d, ok := p.delays[ref]; ok && d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, errs.NewAccess(ref, "context cancelled", ctx.Err())
		}
	}

	if err, ok := p.failures[ref]; ok {
		return nil, errs.NewAccess(ref, "simulated provider failure", err)
	}

	e, ok := p.values[ref]
	if !ok {
		return nil, errs.NewAccess(ref, "no value configured for reference", nil)
	}

	meta := provider.NewSecretMetadata(e.version, ref.StoreType, ref).WithTimestamp()
	id := ref.String() + "@" + e.version
	return provider.NewSecret(id, ref.Name, []byte(e.value), meta), nil
}

// SupportsStore reports whether storeType matches this Provider's
// configured store type.
func (p *Provider) SupportsStore(storeType provider.StoreType) bool {
	return storeType == p.storeType
}

// GetLatestVersion returns the version currently configured for ref, if
// any.
func (p *Provider) GetLatestVersion(ctx context.Context, ref provider.SecretReference, credential provider.AccessCredential) (string, bool) {
	e, ok := p.values[ref]
	if !ok {
		return "", false
	}
	return e.version, true
}

// SupportsChangeNotifications always reports false: this Provider has no
// push-notification mechanism.
func (p *Provider) SupportsChangeNotifications() bool {
	return false
}
