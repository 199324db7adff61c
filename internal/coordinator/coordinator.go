// Package coordinator implements the secret access core's Refresh
// Coordinator (component F): a process-wide façade over every registered
// reference's Resolver Aggregate and Refresh Policy, offering an
// out-of-band TriggerRefresh entry point and a low-frequency background
// sweep.
//
// Lifecycle is modeled on the teacher's
// internal/rotation/notifications.Manager — an idempotent Start/Stop
// pair around a single background goroutine, torn down with a done
// channel and a bounded wait — adapted from that package's queued
// notification worker to a periodic sweep ticker.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/systmms/secretaccess/internal/errs"
	"github.com/systmms/secretaccess/internal/eventbus"
	"github.com/systmms/secretaccess/internal/logging"
	"github.com/systmms/secretaccess/internal/refresh"
	"github.com/systmms/secretaccess/internal/resolve"
	"github.com/systmms/secretaccess/pkg/provider"
)

// DefaultSweepInterval is the reference implementation's background
// sweep frequency.
const DefaultSweepInterval = time.Minute

type registration struct {
	aggregate  *resolve.Aggregate
	policy     refresh.Policy
	credential provider.AccessCredential
}

// Coordinator is the process-wide registry of (SecretReference →
// (*resolve.Aggregate, refresh.Policy)).
type Coordinator struct {
	bus      *eventbus.Bus
	logger   *logging.Logger
	interval time.Duration

	mu            sync.Mutex
	registrations map[provider.SecretReference]*registration
	running       bool
	stopCh        chan struct{}
	doneCh        chan struct{}
}

// New creates an empty Coordinator publishing to bus and logging via
// logger (either may be nil), sweeping at interval (DefaultSweepInterval
// if zero or negative).
func New(bus *eventbus.Bus, logger *logging.Logger, interval time.Duration) *Coordinator {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Coordinator{
		bus:           bus,
		logger:        logger,
		interval:      interval,
		registrations: make(map[provider.SecretReference]*registration),
	}
}

// RegisterSecret binds ref to aggregate (its Resolver Aggregate) and an
// optional policy. credential must be non-nil (a non-empty method) —
// resolving the source's "credential is null until some out-of-band
// mechanism sets it" ambiguity, a nil credential here is rejected
// outright rather than accepted as a deferred placeholder, since the
// Coordinator could never refresh a reference it registered without one.
func (c *Coordinator) RegisterSecret(ref provider.SecretReference, credential provider.AccessCredential, aggregate *resolve.Aggregate, policy refresh.Policy) error {
	if credential.Method() == "" {
		return errs.NewValidation("credential", "credential must not be nil/empty at registration time")
	}
	if aggregate == nil {
		return errs.NewValidation("aggregate", "aggregate must not be nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.registrations[ref] = &registration{aggregate: aggregate, policy: policy, credential: credential}
	if c.logger != nil {
		c.logger.CredentialRegistered(ref, credential)
	}
	return nil
}

// UnregisterSecret removes ref, stopping its Resolver Aggregate.
func (c *Coordinator) UnregisterSecret(ref provider.SecretReference) {
	c.mu.Lock()
	reg, ok := c.registrations[ref]
	if ok {
		delete(c.registrations, ref)
	}
	c.mu.Unlock()

	if ok {
		reg.aggregate.Stop()
	}
}

// TriggerRefresh requests an out-of-band refresh for ref. It returns
// false without side effects if ref is unregistered. Otherwise it
// publishes SecretRefreshRequested and invokes the bound Aggregate's
// refresh; a Provider error is logged and swallowed, never raised to
// the caller.
func (c *Coordinator) TriggerRefresh(ctx context.Context, ref provider.SecretReference, reason string) bool {
	c.mu.Lock()
	reg, ok := c.registrations[ref]
	c.mu.Unlock()
	if !ok {
		return false
	}

	if c.bus != nil {
		c.bus.Publish(eventbus.SecretRefreshRequested{Reference: ref, Reason: reason})
	}

	if _, err := reg.aggregate.RefreshSecret(ctx); err != nil {
		if c.logger != nil {
			c.logger.RefreshFailed("coordinator", ref, err)
		}
	}
	return true
}

// HandleRefreshEvent is the entry point for externally received
// SecretRefreshRequested events (e.g. relayed from a webhook adapter).
// It looks up the registered credential for event.Reference and
// refreshes the secret; errors are logged, never raised.
func (c *Coordinator) HandleRefreshEvent(ctx context.Context, event eventbus.SecretRefreshRequested) {
	c.mu.Lock()
	reg, ok := c.registrations[event.Reference]
	c.mu.Unlock()
	if !ok {
		return
	}

	if _, err := reg.aggregate.RefreshSecret(ctx); err != nil {
		if c.logger != nil {
			c.logger.RefreshFailed("coordinator.handleRefreshEvent", event.Reference, err)
		}
	}
}

// Start launches the background sweep goroutine. Idempotent.
func (c *Coordinator) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	stopCh, doneCh := c.stopCh, c.doneCh
	c.mu.Unlock()

	go c.run(stopCh, doneCh)
}

func (c *Coordinator) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep invokes TriggerRefresh for every registered reference whose
// policy opts in (i.e. has a non-nil policy bound).
func (c *Coordinator) sweep() {
	c.mu.Lock()
	refs := make([]provider.SecretReference, 0, len(c.registrations))
	for ref, reg := range c.registrations {
		if reg.policy != nil {
			refs = append(refs, ref)
		}
	}
	c.mu.Unlock()

	for _, ref := range refs {
		c.TriggerRefresh(context.Background(), ref, "coordinator-sweep")
	}
}

// Stop signals the background sweep to exit and waits up to 5 seconds
// for it to do so, then returns regardless.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	stopCh, doneCh := c.stopCh, c.doneCh
	c.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
	case <-time.After(5 * time.Second):
	}
}

// IsRunning reports whether the background sweep is active.
func (c *Coordinator) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
