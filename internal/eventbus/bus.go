package eventbus

import (
	"reflect"
	"sync"
)

// Handler receives a published Event. A Handler registered against a
// concrete event type only ever receives that type; a Handler registered
// against AnyEvent receives every event published on the Bus.
type Handler func(Event)

// PanicHandler is invoked, synchronously, with the recovered value and the
// Event being dispatched when a Handler panics. It is never itself
// protected against panicking again.
type PanicHandler func(event Event, recovered interface{})

// Bus is a synchronous, closed-type-hierarchy event dispatcher. Publish
// delivers to every Handler registered for the event's concrete type and
// to every Handler registered for AnyEvent, in registration order within
// each group (concrete-type handlers before AnyEvent handlers). Delivery
// blocks the publisher until all matching handlers have run.
type Bus struct {
	mu          sync.Mutex
	handlers    map[reflect.Type][]Handler
	anyHandlers []Handler
	history     []Event
	onPanic     PanicHandler
}

// New creates an empty Bus. onPanic, if non-nil, is invoked whenever a
// Handler panics during dispatch; the panic is always recovered and never
// re-raised to the publisher.
func New(onPanic PanicHandler) *Bus {
	return &Bus{
		handlers: make(map[reflect.Type][]Handler),
		onPanic:  onPanic,
	}
}

// Subscribe registers handler to run whenever an event of exactly
// eventType's concrete type is published. Use SubscribeAny to match every
// event instead.
func (b *Bus) Subscribe(eventType Event, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(eventType)
	b.handlers[t] = append(b.handlers[t], handler)
}

// SubscribeAny registers handler to run for every event published on the
// Bus, regardless of concrete type.
func (b *Bus) SubscribeAny(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.anyHandlers = append(b.anyHandlers, handler)
}

// UnsubscribeAll removes every handler registered against eventType's
// concrete type, per spec §4.3's unsubscribeAll(eventType). It does not
// touch handlers registered for any other concrete type, nor AnyEvent
// handlers registered via SubscribeAny.
func (b *Bus) UnsubscribeAll(eventType Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, reflect.TypeOf(eventType))
}

// Publish delivers event synchronously to every matching handler and
// appends it to the publish history. A Handler's panic is recovered and
// forwarded to the Bus's PanicHandler (if any); it never stops delivery
// to the remaining handlers.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	concrete := append([]Handler(nil), b.handlers[reflect.TypeOf(event)]...)
	any := append([]Handler(nil), b.anyHandlers...)
	b.history = append(b.history, event)
	b.mu.Unlock()

	for _, h := range concrete {
		b.dispatch(event, h)
	}
	for _, h := range any {
		b.dispatch(event, h)
	}
}

func (b *Bus) dispatch(event Event, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			if b.onPanic != nil {
				b.onPanic(event, r)
			}
		}
	}()
	handler(event)
}

// PublishedHistory returns a copy of every event published so far, in
// publish order. Intended for debugging and tests; production callers
// should prefer Subscribe.
func (b *Bus) PublishedHistory() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.history))
	copy(out, b.history)
	return out
}

// ClearHistory discards the recorded publish history.
func (b *Bus) ClearHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = nil
}
