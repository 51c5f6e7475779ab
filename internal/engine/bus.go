package engine

import "sync"

// Handler receives a push event. Handlers run on the publisher's goroutine and must not block on engine calls.
type Handler func(Event)

// Subscription identifies one registration on a [Bus]. The zero value is never issued.
type Subscription struct {
	kind EventKind
	id   uint64
}

// Valid reports whether s was issued by a Bus.
func (s Subscription) Valid() bool { return s.id != 0 }

type entry struct {
	id uint64
	h  Handler
}

// Bus is a typed publish/subscribe registry keyed by [EventKind]. Safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[EventKind][]entry
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[EventKind][]entry)}
}

// On registers h for kind and returns the token that removes it.
func (b *Bus) On(kind EventKind, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	b.handlers[kind] = append(b.handlers[kind], entry{id: b.next, h: h})
	return Subscription{kind: kind, id: b.next}
}

// Off removes the registration identified by sub. Unknown or already removed tokens are ignored.
func (b *Bus) Off(sub Subscription) {
	if !sub.Valid() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.handlers[sub.kind]
	for i, e := range entries {
		if e.id == sub.id {
			b.handlers[sub.kind] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(b.handlers[sub.kind]) == 0 {
		delete(b.handlers, sub.kind)
	}
}

// Publish delivers ev to every handler registered for its kind, in registration order.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	entries := append([]entry(nil), b.handlers[ev.Kind()]...)
	b.mu.RUnlock()

	for _, e := range entries {
		e.h(ev)
	}
}

// Len returns the number of live registrations across all kinds.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, entries := range b.handlers {
		n += len(entries)
	}
	return n
}
