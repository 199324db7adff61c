// Package eventbus implements the secret access core's Event Bus
// (component C): synchronous fan-out of typed lifecycle events to any
// number of subscribers, including subscribers registered against a
// super-type of the event.
//
// This is a closed type hierarchy: the three event types below are fixed
// and not meant to be extended by subscribers, so the Bus keys concrete
// handlers by the event's reflect.Type at Subscribe time and keeps AnyEvent
// handlers in a separate list, rather than offering an open capability-set
// registration scheme. It is modeled on
// the teacher's internal/rotation/notifications package — a
// provider-fan-out dispatcher gated by a per-provider SupportsEvent check
// — generalized from that package's async bounded queue (notifications
// are allowed to lag behind a rotation) to synchronous delivery, since a
// reader here may depend on observing SecretRefreshed before its own call
// to Get/Refresh returns.
package eventbus

import "github.com/systmms/secretaccess/pkg/provider"

// Event is the marker interface every published event satisfies.
type Event interface {
	eventMarker()
}

// SecretRefreshRequested is emitted by a Refresh Policy's or the Refresh
// Coordinator's TriggerRefresh before it starts a refresh attempt. A stale
// read or an explicit Refresh call on a Resolver Aggregate does not emit it.
type SecretRefreshRequested struct {
	Reference provider.SecretReference
	Reason    string
}

func (SecretRefreshRequested) eventMarker() {}

// SecretRefreshed is emitted after a refresh attempt that successfully
// updated the cache.
type SecretRefreshed struct {
	Reference    provider.SecretReference
	Version      string
	ValueChanged bool
}

func (SecretRefreshed) eventMarker() {}

// SecretRolloverDetected is emitted when an active-version reference's
// freshly fetched version differs from the version it last retrieved,
// while an inactive-version sibling is in the cache. Detection is advisory: it
// never mutates the sibling's cache entry.
type SecretRolloverDetected struct {
	ActiveReference   provider.SecretReference
	InactiveReference provider.SecretReference
	NewActiveVersion  string
}

func (SecretRolloverDetected) eventMarker() {}

// AnyEvent is a supertype matching every event published on the Bus. A
// handler registered against AnyEvent receives all three concrete event
// types above, in addition to any handlers registered against their
// concrete types.
type AnyEvent interface {
	Event
}
