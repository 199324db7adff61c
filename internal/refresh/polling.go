package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/systmms/secretaccess/internal/cache"
	"github.com/systmms/secretaccess/internal/eventbus"
	"github.com/systmms/secretaccess/internal/logging"
	"github.com/systmms/secretaccess/pkg/provider"
)

// DefaultPollInterval is the reference implementation's polling interval.
const DefaultPollInterval = time.Minute

// StopWait is how long Stop waits for the background worker to exit
// cooperatively before giving up and returning anyway.
const StopWait = 5 * time.Second

// Polling is a background-ticker-driven Policy: on every tick, it walks
// its registered references and calls TriggerRefresh for each one
// IsRefreshNeeded reports true for.
type Polling struct {
	interval time.Duration
	logger   *logging.Logger

	mu            sync.Mutex
	provider      provider.Provider
	cache         *cache.Cache
	bus           *eventbus.Bus
	registrations map[provider.SecretReference]registration
	running       bool
	stopCh        chan struct{}
	doneCh        chan struct{}
}

// NewPolling creates a Polling policy ticking at interval (DefaultPollInterval
// if zero or negative), publishing to bus and logging via logger (either may
// be nil).
func NewPolling(interval time.Duration, bus *eventbus.Bus, logger *logging.Logger) *Polling {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Polling{
		interval:      interval,
		bus:           bus,
		logger:        logger,
		registrations: make(map[provider.SecretReference]registration),
	}
}

// Apply binds this policy to p and c. Idempotent: calling it again simply
// rebinds the collaborators.
func (p *Polling) Apply(prov provider.Provider, c *cache.Cache) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.provider = prov
	p.cache = c
}

// IsRefreshNeeded implements the canonical rule: true iff cachedSecret is
// absent or the cache considers ref stale.
func (p *Polling) IsRefreshNeeded(ref provider.SecretReference, cachedSecret *provider.Secret) bool {
	if cachedSecret == nil {
		return true
	}
	p.mu.Lock()
	c := p.cache
	p.mu.Unlock()
	if c == nil {
		return true
	}
	return c.IsStale(ref)
}

// TriggerRefresh publishes SecretRefreshRequested and calls the bound
// Refresher's RefreshSecret for ref if it is registered. It returns
// false without side effects if ref has never been registered.
func (p *Polling) TriggerRefresh(ctx context.Context, ref provider.SecretReference) bool {
	p.mu.Lock()
	reg, ok := p.registrations[ref]
	bus := p.bus
	p.mu.Unlock()

	if !ok {
		return false
	}

	if bus != nil {
		bus.Publish(eventbus.SecretRefreshRequested{Reference: ref, Reason: "poll"})
	}
	if _, err := reg.refresher.RefreshSecret(ctx); err != nil {
		if p.logger != nil {
			p.logger.RefreshFailed("polling", ref, err)
		}
	}
	return true
}

// RegisterSecret binds refresher to ref for future polling ticks.
func (p *Polling) RegisterSecret(ref provider.SecretReference, refresher Refresher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registrations[ref] = registration{refresher: refresher}
}

// UnregisterSecret removes ref from future polling ticks.
func (p *Polling) UnregisterSecret(ref provider.SecretReference) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.registrations, ref)
}

// Start launches the background ticker goroutine. Idempotent.
func (p *Polling) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.run(stopCh, doneCh)
}

func (p *Polling) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

func (p *Polling) sweep() {
	p.mu.Lock()
	refs := make([]provider.SecretReference, 0, len(p.registrations))
	for ref := range p.registrations {
		refs = append(refs, ref)
	}
	c := p.cache
	p.mu.Unlock()

	for _, ref := range refs {
		var cached *provider.Secret
		if c != nil {
			cached, _ = c.Get(ref)
		}
		if p.IsRefreshNeeded(ref, cached) {
			p.TriggerRefresh(context.Background(), ref)
		}
	}
}

// Stop signals the background worker to exit and waits up to StopWait for
// it to do so cooperatively. It always returns, whether or not the
// worker confirmed it stopped in time.
func (p *Polling) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
	case <-time.After(StopWait):
	}
}

// IsRunning reports whether the background ticker is active.
func (p *Polling) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
