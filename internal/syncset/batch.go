package syncset

import (
	"sort"

	"teamsync/internal/resource"
)

// Batch stages changes against one revision of a set. It is only valid
// inside the function passed to Set.Update.
type Batch struct {
	base *Snapshot

	// staged maps a path to its new entry; a nil value removes the path
	staged map[string]*SyncInfo
	reset  bool
}

func newBatch(base *Snapshot) *Batch {
	return &Batch{base: base, staged: make(map[string]*SyncInfo)}
}

// Get returns the entry for path as seen through the staged changes.
func (b *Batch) Get(path string) (SyncInfo, bool) {
	if staged, ok := b.staged[path]; ok {
		if staged == nil {
			return SyncInfo{}, false
		}
		return *staged, true
	}
	if b.reset {
		return SyncInfo{}, false
	}
	return b.base.Get(path)
}

// Put adds or replaces the entry for info.Path. Entries that are in sync
// are removed instead.
func (b *Batch) Put(info SyncInfo) {
	if !info.IsOutOfSync() {
		b.Remove(info.Path)
		return
	}
	b.staged[info.Path] = &info
}

// Remove removes the entry for path.
func (b *Batch) Remove(path string) {
	b.staged[path] = nil
}

// RemoveAllChildren removes scope and every entry below it.
func (b *Batch) RemoveAllChildren(scope string) {
	if !b.reset {
		for _, p := range b.base.scopePaths(scope) {
			b.staged[p] = nil
		}
	}
	for p, staged := range b.staged {
		if staged != nil && resource.Contains(scope, p) {
			b.staged[p] = nil
		}
	}
}

// Clear removes every entry, including entries staged earlier in the
// batch.
func (b *Batch) Clear() {
	b.reset = true
	b.staged = make(map[string]*SyncInfo)
}

// commit builds the next snapshot and its event. It returns nils when the
// batch changes nothing.
func (b *Batch) commit() (*Snapshot, *ChangeEvent) {
	var entries map[string]SyncInfo
	if b.reset {
		entries = make(map[string]SyncInfo, len(b.staged))
	} else {
		entries = make(map[string]SyncInfo, len(b.base.entries)+len(b.staged))
		for p, info := range b.base.entries {
			entries[p] = info
		}
	}
	for p, staged := range b.staged {
		if staged == nil {
			delete(entries, p)
		} else {
			entries[p] = *staged
		}
	}

	event := &ChangeEvent{Revision: b.base.revision + 1, Reset: b.reset}
	for p, info := range entries {
		old, existed := b.base.entries[p]
		switch {
		case !existed:
			event.Added = append(event.Added, info)
		case old != info:
			event.Changed = append(event.Changed, info)
		}
	}
	for p, old := range b.base.entries {
		if _, ok := entries[p]; !ok {
			event.Removed = append(event.Removed, old)
		}
	}

	if event.IsEmpty() {
		return nil, nil
	}

	sortInfos(event.Added)
	sortInfos(event.Removed)
	sortInfos(event.Changed)
	return newSnapshot(event.Revision, entries), event
}

func sortInfos(infos []SyncInfo) {
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
}
