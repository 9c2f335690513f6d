package changeset

import (
	"sort"
	"sync"
)

// ChangeSet is a named group of resource paths.
type ChangeSet struct {
	name string

	mu      sync.RWMutex
	comment string
	paths   map[string]struct{}
}

// NewChangeSet creates an empty change set.
func NewChangeSet(name string) *ChangeSet {
	return &ChangeSet{name: name, paths: make(map[string]struct{})}
}

// Name returns the set's name.
func (cs *ChangeSet) Name() string {
	return cs.name
}

// Comment returns the set's commit comment.
func (cs *ChangeSet) Comment() string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.comment
}

// SetComment replaces the set's commit comment.
func (cs *ChangeSet) SetComment(comment string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.comment = comment
}

// Add adds paths to the set.
func (cs *ChangeSet) Add(paths ...string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, p := range paths {
		cs.paths[p] = struct{}{}
	}
}

// Remove removes paths from the set and reports whether any was present.
func (cs *ChangeSet) Remove(paths ...string) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	removed := false
	for _, p := range paths {
		if _, ok := cs.paths[p]; ok {
			delete(cs.paths, p)
			removed = true
		}
	}
	return removed
}

// Contains reports whether path is in the set.
func (cs *ChangeSet) Contains(path string) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	_, ok := cs.paths[path]
	return ok
}

// Paths returns the set's paths in sorted order.
func (cs *ChangeSet) Paths() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make([]string, 0, len(cs.paths))
	for p := range cs.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of paths in the set.
func (cs *ChangeSet) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.paths)
}

// IsEmpty reports whether the set holds no paths.
func (cs *ChangeSet) IsEmpty() bool {
	return cs.Len() == 0
}
