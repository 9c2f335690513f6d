package syncset

import (
	"sync"
)

// FilteredSet is a sync set derived from a parent set and a filter. After
// every parent update has been delivered its contents equal the parent
// entries the filter selects.
type FilteredSet struct {
	parent *Set
	out    *Set

	mu     sync.Mutex
	filter Filter
	cancel func()
}

// NewFilteredSet derives a set from parent. A nil filter selects all.
func NewFilteredSet(name string, parent *Set, filter Filter) *FilteredSet {
	if filter == nil {
		filter = All()
	}
	fs := &FilteredSet{
		parent: parent,
		out:    NewSet(name),
		filter: filter,
	}

	fs.mu.Lock()
	fs.cancel = parent.Subscribe(fs.parentChanged)
	fs.recomputeLocked()
	fs.mu.Unlock()
	return fs
}

// Name returns the name of the filtered set.
func (fs *FilteredSet) Name() string {
	return fs.out.Name()
}

// Snapshot returns the current revision of the filtered set.
func (fs *FilteredSet) Snapshot() *Snapshot {
	return fs.out.Snapshot()
}

// Subscribe registers l for changes of the filtered set.
func (fs *FilteredSet) Subscribe(l Listener) (cancel func()) {
	return fs.out.Subscribe(l)
}

// Filter returns the current filter.
func (fs *FilteredSet) Filter() Filter {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.filter
}

// SetFilter replaces the filter and recomputes the set from the parent's
// current revision. A nil filter selects all.
func (fs *FilteredSet) SetFilter(filter Filter) {
	if filter == nil {
		filter = All()
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.filter = filter
	fs.recomputeLocked()
}

// Disconnect stops following the parent. The filtered set keeps its last
// contents.
func (fs *FilteredSet) Disconnect() {
	fs.mu.Lock()
	cancel := fs.cancel
	fs.cancel = nil
	fs.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (fs *FilteredSet) recomputeLocked() {
	parent := fs.parent.Snapshot()
	fs.out.Update(func(b *Batch) {
		b.Clear()
		for _, info := range parent.All() {
			if fs.filter.Select(info) {
				b.Put(info)
			}
		}
	})
}

func (fs *FilteredSet) parentChanged(event *ChangeEvent) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.cancel == nil {
		return
	}

	fs.out.Update(func(b *Batch) {
		if event.Reset {
			b.Clear()
			for _, info := range fs.parent.Snapshot().All() {
				if fs.filter.Select(info) {
					b.Put(info)
				}
			}
			return
		}
		for _, info := range event.Removed {
			b.Remove(info.Path)
		}
		for _, infos := range [][]SyncInfo{event.Added, event.Changed} {
			for _, info := range infos {
				if fs.filter.Select(info) {
					b.Put(info)
				} else {
					b.Remove(info.Path)
				}
			}
		}
	})
}
