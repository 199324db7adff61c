package refresh

import (
	"context"
	"sync"

	"github.com/systmms/secretaccess/internal/cache"
	"github.com/systmms/secretaccess/internal/eventbus"
	"github.com/systmms/secretaccess/internal/logging"
	"github.com/systmms/secretaccess/pkg/provider"
)

// EventMapper maps an externally received notification event to the
// SecretReference it concerns. It returns false if event is not one this
// policy should act on.
type EventMapper func(event eventbus.Event) (provider.SecretReference, bool)

// EventDriven is a Policy that reacts to notifications on an Event Bus —
// e.g. a webhook adapter publishing an event when an upstream store
// rotates a secret — rather than polling on a timer. Notifications are
// mapped to a SecretReference by a caller-supplied EventMapper, since the
// notification event's own shape is outside this core's closed event
// hierarchy.
type EventDriven struct {
	bus    *eventbus.Bus
	mapper EventMapper
	logger *logging.Logger

	mu            sync.Mutex
	provider      provider.Provider
	cache         *cache.Cache
	registrations map[provider.SecretReference]registration
	running       bool
	subscribed    bool
}

// NewEventDriven creates an EventDriven policy listening on bus, mapping
// incoming events to references via mapper.
func NewEventDriven(bus *eventbus.Bus, mapper EventMapper, logger *logging.Logger) *EventDriven {
	return &EventDriven{
		bus:           bus,
		mapper:        mapper,
		logger:        logger,
		registrations: make(map[provider.SecretReference]registration),
	}
}

// Apply binds this policy to prov and c. Idempotent.
func (e *EventDriven) Apply(prov provider.Provider, c *cache.Cache) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.provider = prov
	e.cache = c
}

// IsRefreshNeeded uses the same canonical rule as Polling: true iff
// cachedSecret is absent or the cache considers ref stale.
func (e *EventDriven) IsRefreshNeeded(ref provider.SecretReference, cachedSecret *provider.Secret) bool {
	if cachedSecret == nil {
		return true
	}
	e.mu.Lock()
	c := e.cache
	e.mu.Unlock()
	if c == nil {
		return true
	}
	return c.IsStale(ref)
}

// TriggerRefresh publishes SecretRefreshRequested and calls the bound
// Refresher's RefreshSecret for ref if it is registered.
func (e *EventDriven) TriggerRefresh(ctx context.Context, ref provider.SecretReference) bool {
	e.mu.Lock()
	reg, ok := e.registrations[ref]
	bus := e.bus
	e.mu.Unlock()

	if !ok {
		return false
	}

	if bus != nil {
		bus.Publish(eventbus.SecretRefreshRequested{Reference: ref, Reason: "event"})
	}
	if _, err := reg.refresher.RefreshSecret(ctx); err != nil {
		if e.logger != nil {
			e.logger.RefreshFailed("event-driven", ref, err)
		}
	}
	return true
}

// RegisterSecret binds refresher to ref for future event-triggered
// refreshes.
func (e *EventDriven) RegisterSecret(ref provider.SecretReference, refresher Refresher) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registrations[ref] = registration{refresher: refresher}
}

// UnregisterSecret removes ref from future event-triggered refreshes.
func (e *EventDriven) UnregisterSecret(ref provider.SecretReference) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.registrations, ref)
}

// Start subscribes to the bus. Idempotent; a Stop followed by a Start
// re-enables dispatch without a second subscription, since the handler
// itself checks the running flag on every delivery.
func (e *EventDriven) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	if e.bus != nil && !e.subscribed {
		e.bus.SubscribeAny(e.handle)
		e.subscribed = true
	}
}

func (e *EventDriven) handle(event eventbus.Event) {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if !running {
		return
	}

	ref, ok := e.mapper(event)
	if !ok {
		return
	}
	e.TriggerRefresh(context.Background(), ref)
}

// Stop disables dispatch. The underlying Bus subscription is not
// removed — the EventDriven policy's own running flag gates delivery —
// since the Bus offers no per-handler unsubscribe.
func (e *EventDriven) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
}

// IsRunning reports whether this policy is currently dispatching.
func (e *EventDriven) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}
