// Package cache implements the secret access core's thread-safe,
// per-reference TTL cache (component A of the core). It is structurally
// modeled on the teacher's internal/providers.TokenCache — a mutex-guarded
// struct with lazy expiry on read — generalized from a single token to a
// map keyed by provider.SecretReference, with a process-lifetime default
// TTL and per-reference overrides.
package cache

import (
	"sync"
	"time"

	"github.com/systmms/secretaccess/pkg/provider"
)

// DefaultTTL is the reference implementation's initial default TTL.
const DefaultTTL = 15 * time.Minute

type entry struct {
	secret *provider.Secret
	expiry time.Time
}

// Cache is a thread-safe mapping from SecretReference to (Secret, expiry).
// Every operation takes a single mutex protecting the whole map, so
// concurrent Get/Put/Invalidate calls on distinct references wait for each
// other for the length of one map operation; there is no per-entry
// locking. A Put immediately followed by a Get
// on the same reference and goroutine always observes the just-put
// Secret.
type Cache struct {
	mu         sync.RWMutex
	entries    map[provider.SecretReference]entry
	defaultTTL time.Duration
	ttlOverride map[provider.SecretReference]time.Duration
}

// New creates an empty Cache with DefaultTTL as its default TTL.
func New() *Cache {
	return &Cache{
		entries:     make(map[provider.SecretReference]entry),
		defaultTTL:  DefaultTTL,
		ttlOverride: make(map[provider.SecretReference]time.Duration),
	}
}

// Get returns the cached Secret for ref if present and not expired. An
// expired entry observed here is dropped immediately (lazy eviction); its
// buffer is cleared only if no live caller could be holding it — since
// Get never hands out the cached *Secret itself to more than one caller
// without it having already been copied out via Secret.Value(), it is
// safe to clear here.
func (c *Cache) Get(ref provider.SecretReference) (*provider.Secret, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[ref]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiry) {
		delete(c.entries, ref)
		e.secret.ClearValue()
		return nil, false
	}
	return e.secret, true
}

// Put inserts or replaces the entry keyed by secret.Metadata().SourceRef,
// computing its expiry as now + the effective TTL for that reference (a
// per-reference override if set, else the cache's default).
func (c *Cache) Put(secret *provider.Secret) {
	ref := secret.Metadata().SourceRef

	c.mu.Lock()
	defer c.mu.Unlock()

	ttl := c.ttlFor(ref)
	c.entries[ref] = entry{secret: secret, expiry: time.Now().Add(ttl)}
}

// ttlFor must be called with c.mu held.
func (c *Cache) ttlFor(ref provider.SecretReference) time.Duration {
	if override, ok := c.ttlOverride[ref]; ok {
		return override
	}
	return c.defaultTTL
}

// Invalidate removes the entry for ref, if any, clearing its buffer.
func (c *Cache) Invalidate(ref provider.SecretReference) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[ref]; ok {
		delete(c.entries, ref)
		e.secret.ClearValue()
	}
}

// Clear removes every entry, clearing each one's buffer.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for ref, e := range c.entries {
		delete(c.entries, ref)
		e.secret.ClearValue()
	}
}

// SetDefaultTTL sets the process-lifetime default TTL used by references
// without an override.
func (c *Cache) SetDefaultTTL(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultTTL = d
}

// GetDefaultTTL returns the current default TTL.
func (c *Cache) GetDefaultTTL() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultTTL
}

// SetTTL sets a per-reference TTL override, which persists across Puts
// until changed again.
func (c *Cache) SetTTL(ref provider.SecretReference, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttlOverride[ref] = d
}

// IsStale reports whether ref's entry is absent or expired. It does not
// evict — Get is the only lazy-eviction path — so a caller that wants a
// consistent stale-then-refresh sequence should call Get, not IsStale,
// if it intends to act on a hit.
func (c *Cache) IsStale(ref provider.SecretReference) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[ref]
	if !ok {
		return true
	}
	return time.Now().After(e.expiry)
}
