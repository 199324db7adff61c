package secretaccess

import (
	"time"

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

// Builder assembles a Client. Fields mirror
// tests/testutil.TestConfigBuilder's chained-method style: each With*
// call mutates and returns the Builder, and Build validates and wires
// everything at the end rather than failing eagerly on each call.
type Builder struct {
	providers            []provider.Provider
	cache                *cache.Cache
	defaultPolicyFactory func() refresh.Policy
	eventHandler         eventbus.Handler
	defaultTTL           time.Duration
	logger               *logging.Logger
	sweepInterval        time.Duration
	manifestPath         string
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithProvider registers p, trying providers in the order they were
// added when resolving a reference's store type.
func (b *Builder) WithProvider(p provider.Provider) *Builder {
	b.providers = append(b.providers, p)
	return b
}

// WithCache sets the Cache instance the built Client shares across every
// registered secret. Required — Build raises ConfigurationError if
// omitted.
func (b *Builder) WithCache(c *cache.Cache) *Builder {
	b.cache = c
	return b
}

// WithDefaultCacheTTL sets the TTL applied to the cache at build time,
// overriding cache.DefaultTTL for every reference without its own
// per-reference override.
func (b *Builder) WithDefaultCacheTTL(ttl time.Duration) *Builder {
	b.defaultTTL = ttl
	return b
}

// WithDefaultRefreshPolicy sets the factory invoked to supply a
// refresh.Policy for any Register call that does not pass its own. A
// factory (rather than a shared instance) is used because each
// Resolver Aggregate needs its own Policy instance bound to its own
// reference.
func (b *Builder) WithDefaultRefreshPolicy(factory func() refresh.Policy) *Builder {
	b.defaultPolicyFactory = factory
	return b
}

// WithEventSink subscribes handler to every event the built Client's Bus
// publishes. The Bus is otherwise private to the Client; this is the
// only way a caller observes SecretRefreshed/SecretRolloverDetected/
// SecretRefreshRequested events.
func (b *Builder) WithEventSink(handler eventbus.Handler) *Builder {
	b.eventHandler = handler
	return b
}

// WithLogger sets the Logger the Client and its Refresh Coordinator log
// through. Defaults to a non-debug, color-enabled Logger if omitted.
func (b *Builder) WithLogger(logger *logging.Logger) *Builder {
	b.logger = logger
	return b
}

// WithSweepInterval overrides the Refresh Coordinator's background sweep
// frequency (coordinator.DefaultSweepInterval if unset).
func (b *Builder) WithSweepInterval(interval time.Duration) *Builder {
	b.sweepInterval = interval
	return b
}

// WithManifestFile sets the path to a YAML manifest of named secret
// reference shapes (store type, name, version hint — never secret values
// or credentials). The file is read and parsed at Build time, not here,
// matching Builder's pattern of deferring validation to Build. The built
// Client exposes looked-up entries through RegisterFromManifest.
func (b *Builder) WithManifestFile(path string) *Builder {
	b.manifestPath = path
	return b
}

// Build validates the accumulated configuration and returns a running
// Client: its Refresh Coordinator is already started.
func (b *Builder) Build() (*Client, error) {
	if b.cache == nil {
		return nil, errs.NewConfiguration("cache", "a cache is required to build a Client")
	}

	var manifest *Manifest
	if b.manifestPath != "" {
		m, err := LoadManifest(b.manifestPath)
		if err != nil {
			return nil, err
		}
		manifest = m
	}

	if b.defaultTTL > 0 {
		b.cache.SetDefaultTTL(b.defaultTTL)
	}

	logger := b.logger
	if logger == nil {
		logger = logging.New(false, false)
	}

	reg := registry.New()
	for _, p := range b.providers {
		reg.Register(p)
	}

	bus := eventbus.New(func(event eventbus.Event, recovered interface{}) {
		logger.EventHandlerPanic(event, recovered)
	})
	if b.eventHandler != nil {
		bus.SubscribeAny(b.eventHandler)
	}

	coord := coordinator.New(bus, logger, b.sweepInterval)
	coord.Start()

	client := &Client{
		registry:             reg,
		cache:                b.cache,
		bus:                  bus,
		coordinator:          coord,
		logger:               logger,
		defaultPolicyFactory: b.defaultPolicyFactory,
		clients:              make(map[string]*resolve.Aggregate),
		manifest:             manifest,
	}
	return client, nil
}
