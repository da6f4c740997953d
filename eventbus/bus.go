// Package eventbus implements the per-process publish/subscribe channel
// described in spec.md §4.2: listeners fire synchronously in registration
// order, and a listener added during an Emit only takes effect on the
// next Emit.
package eventbus

import (
	"log/slog"
	"sync"
)

// listenerWarnCap is the soft cap spec.md §3 refers to ("a warning is
// logged above a soft cap"). It is not enforced as a hard limit.
const listenerWarnCap = 64

// Listener receives an event payload. Payloads are passed by value or by
// immutable reference; the bus never clones mutable state on a caller's
// behalf.
type Listener func(payload any)

// Unsubscribe removes the listener it was returned for. It is idempotent.
type Unsubscribe func()

type subscription struct {
	id int
	fn Listener
}

// Bus is a per-process event bus keyed by event name. Use New to
// construct one; the zero value is not ready to use.
type Bus struct {
	mu        sync.Mutex
	listeners map[string][]subscription
	nextID    int
	warned    map[string]bool
}

// New returns a ready-to-use Bus.
func New() *Bus {
	return &Bus{listeners: make(map[string][]subscription)}
}

// On registers listener for event and returns a function that removes it.
func (b *Bus) On(event string, listener Listener) Unsubscribe {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners[event] = append(b.listeners[event], subscription{id: id, fn: listener})
	n := len(b.listeners[event])
	b.mu.Unlock()

	if n > listenerWarnCap {
		b.warnOnce(event, n)
	}

	var once sync.Once
	return func() {
		once.Do(func() { b.removeByID(event, id) })
	}
}

// Off removes every listener registered for event.
func (b *Bus) Off(event string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, event)
}

func (b *Bus) removeByID(event string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.listeners[event]
	for i, s := range subs {
		if s.id == id {
			b.listeners[event] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Emit invokes every listener registered for event, in registration
// order, with payload. Listeners registered during Emit are not invoked
// until the next Emit: Emit iterates a snapshot slice taken at call time.
func (b *Bus) Emit(event string, payload any) {
	b.mu.Lock()
	subs := b.listeners[event]
	snapshot := make([]Listener, len(subs))
	for i, s := range subs {
		snapshot[i] = s.fn
	}
	b.mu.Unlock()

	for _, l := range snapshot {
		l(payload)
	}
}

func (b *Bus) warnOnce(event string, n int) {
	b.mu.Lock()
	if b.warned == nil {
		b.warned = make(map[string]bool)
	}
	already := b.warned[event]
	if !already {
		b.warned[event] = true
	}
	b.mu.Unlock()

	if !already {
		slog.Warn("eventbus: listener count exceeds soft cap", "event", event, "count", n, "cap", listenerWarnCap)
	}
}
