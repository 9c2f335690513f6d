package syncset

import (
	"sync"
	"sync/atomic"

	"teamsync/pkg/logging"
)

// ChangeEvent describes the difference between two consecutive revisions.
// Removed carries the entries as they were before removal; Changed carries
// the new values.
type ChangeEvent struct {
	Revision uint64
	Added    []SyncInfo
	Removed  []SyncInfo
	Changed  []SyncInfo
	// Reset is set when the batch started by clearing the set.
	Reset bool
}

// IsEmpty reports whether the event carries no differences.
func (e *ChangeEvent) IsEmpty() bool {
	return len(e.Added) == 0 && len(e.Removed) == 0 && len(e.Changed) == 0
}

// Len returns the number of entries the event touches.
func (e *ChangeEvent) Len() int {
	return len(e.Added) + len(e.Removed) + len(e.Changed)
}

// Listener receives the change events of a set. Listeners run on the
// writer's goroutine in revision order and must not update the set they
// listen to.
type Listener func(*ChangeEvent)

// Reader is the read side shared by Set and FilteredSet.
type Reader interface {
	Snapshot() *Snapshot
	Subscribe(l Listener) (cancel func())
}

// Set is a sync set with atomically published revisions. Readers never
// block and never observe a partially applied update.
type Set struct {
	name    string
	current atomic.Pointer[Snapshot]

	// writeMu serializes updates and listener delivery
	writeMu sync.Mutex

	listenersMu sync.RWMutex
	nextID      uint64
	listeners   map[uint64]Listener
}

// NewSet creates an empty set at revision 0.
func NewSet(name string) *Set {
	s := &Set{
		name:      name,
		listeners: make(map[uint64]Listener),
	}
	s.current.Store(newSnapshot(0, map[string]SyncInfo{}))
	return s
}

// Name returns the set's name.
func (s *Set) Name() string {
	return s.name
}

// Snapshot returns the current revision.
func (s *Set) Snapshot() *Snapshot {
	return s.current.Load()
}

// Subscribe registers l for change events.
func (s *Set) Subscribe(l Listener) (cancel func()) {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// Update stages changes through fn and publishes them as one new revision.
// It returns the published event, or nil when fn staged no difference.
func (s *Set) Update(fn func(*Batch)) *ChangeEvent {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	base := s.current.Load()
	b := newBatch(base)
	fn(b)

	next, event := b.commit()
	if next == nil {
		return nil
	}
	s.current.Store(next)

	logging.Debug("SyncSet", "%s published revision %d (+%d -%d ~%d)",
		s.name, event.Revision, len(event.Added), len(event.Removed), len(event.Changed))

	s.listenersMu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		l(event)
	}
	return event
}
