// Package metrics provides a Prometheus-backed Event Bus subscriber
// (component H): an Event-shaped view over the core's refresh activity,
// counting refreshes and rollovers and timing the gap between
// consecutive refreshes of the same reference. It is never subscribed
// to a Bus by default — a caller that wants metrics constructs a Sink
// and calls Subscribe itself, matching the teacher's pattern of lazily
// registered, opt-in Prometheus collectors
// (internal/rotation/health.NewRotationMetrics /
// internal/rotation/notifications.InitMetrics).
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/systmms/secretaccess/internal/eventbus"
)

func nowUnixSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// Sink owns its own prometheus.Registry rather than registering into
// the global default registry, so more than one Sink (e.g. in tests)
// can coexist in a single process without a registration collision —
// the teacher's package-level sync.Once pattern only supports one
// living instance per process, which this core's multi-Client
// construction path does not guarantee.
type Sink struct {
	registry *prometheus.Registry

	refreshedTotal  *prometheus.CounterVec
	rolloverTotal   *prometheus.CounterVec
	requestedTotal  *prometheus.CounterVec
	refreshInterval *prometheus.HistogramVec

	mu        sync.Mutex
	lastFetch map[string]float64 // reference string -> unix seconds of last SecretRefreshed
	nowFunc   func() float64
}

// New creates a Sink with its own Registry.
func New() *Sink {
	registry := prometheus.NewRegistry()
	return &Sink{
		registry: registry,
		refreshedTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "secretaccess_secret_refreshed_total",
			Help: "Total number of SecretRefreshed events observed, by store type and whether the value changed.",
		}, []string{"store_type", "value_changed"}),
		rolloverTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "secretaccess_secret_rollover_total",
			Help: "Total number of SecretRolloverDetected events observed, by store type.",
		}, []string{"store_type"}),
		requestedTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "secretaccess_secret_refresh_requested_total",
			Help: "Total number of SecretRefreshRequested events observed, by reason.",
		}, []string{"reason"}),
		refreshInterval: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "secretaccess_secret_refresh_interval_seconds",
			Help:    "Seconds between consecutive SecretRefreshed events for the same reference.",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		}, []string{"store_type"}),
		lastFetch: make(map[string]float64),
		nowFunc:   nowUnixSeconds,
	}
}

// Registry returns the Sink's private prometheus.Registry, to be
// exposed via an HTTP handler (promhttp.HandlerFor) by the caller.
func (s *Sink) Registry() *prometheus.Registry {
	return s.registry
}

// Subscribe registers the Sink's Handle method against bus for every
// event type.
func (s *Sink) Subscribe(bus *eventbus.Bus) {
	bus.SubscribeAny(s.Handle)
}

// Handle implements eventbus.Handler, recording whichever concrete
// event type it is given. Unknown event types are ignored.
func (s *Sink) Handle(event eventbus.Event) {
	switch e := event.(type) {
	case eventbus.SecretRefreshed:
		s.observeRefreshed(e)
	case eventbus.SecretRolloverDetected:
		s.rolloverTotal.WithLabelValues(string(e.ActiveReference.StoreType)).Inc()
	case eventbus.SecretRefreshRequested:
		s.requestedTotal.WithLabelValues(e.Reason).Inc()
	}
}

func (s *Sink) observeRefreshed(e eventbus.SecretRefreshed) {
	storeType := string(e.Reference.StoreType)
	s.refreshedTotal.WithLabelValues(storeType, boolLabel(e.ValueChanged)).Inc()

	key := e.Reference.String()
	now := s.nowFunc()

	s.mu.Lock()
	prior, seen := s.lastFetch[key]
	s.lastFetch[key] = now
	s.mu.Unlock()

	if seen {
		s.refreshInterval.WithLabelValues(storeType).Observe(now - prior)
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
