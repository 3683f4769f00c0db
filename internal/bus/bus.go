package bus

import (
	"strings"
	"sync"
	"sync/atomic"
)

// Bus is an in-process publish/subscribe bus. Subscriptions are keyed by a
// kind prefix ("outbox.", "connectivity.", "" for everything). Delivery is
// non-blocking: a subscriber whose channel is full loses the event rather
// than stalling the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscriber
	next int
	// retired accumulates the drop counts of unsubscribed subscribers so
	// Dropped stays a lifetime total.
	retired atomic.Int64
}

type subscriber struct {
	prefix  string
	ch      chan Event
	dropped atomic.Int64
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Publish delivers evt to every subscriber whose prefix matches evt.Kind.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !strings.HasPrefix(evt.Kind, sub.prefix) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			sub.dropped.Add(1)
		}
	}
}

// Subscribe registers a subscriber for events whose kind starts with prefix.
// bufSize sets the channel buffer. The returned function unsubscribes.
func (b *Bus) Subscribe(prefix string, bufSize int) (<-chan Event, func()) {
	sub := &subscriber{prefix: prefix, ch: make(chan Event, bufSize)}
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	return sub.ch, func() {
		b.mu.Lock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			b.retired.Add(sub.dropped.Load())
		}
		b.mu.Unlock()
	}
}

// Dropped reports the total number of events discarded over the bus's
// lifetime because a subscriber channel was full, including subscribers
// that have since unsubscribed.
func (b *Bus) Dropped() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := b.retired.Load()
	for _, sub := range b.subs {
		n += sub.dropped.Load()
	}
	return n
}
