package resource

import (
	"sync"
)

// Broadcaster is a Feed that fans delta trees out to its listeners.
type Broadcaster struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]Listener
}

// NewBroadcaster creates a Broadcaster without listeners.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{listeners: make(map[uint64]Listener)}
}

// Subscribe implements Feed.
func (b *Broadcaster) Subscribe(l Listener) (cancel func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = l
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers d to every listener on the calling goroutine. A nil
// delta is ignored.
func (b *Broadcaster) Publish(d *Delta) {
	if d == nil {
		return
	}

	b.mu.RLock()
	listeners := make([]Listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		listeners = append(listeners, l)
	}
	b.mu.RUnlock()

	for _, l := range listeners {
		l(d)
	}
}

// Len returns the number of listeners.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
