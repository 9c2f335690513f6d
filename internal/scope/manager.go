package scope

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"teamsync/internal/resource"
	"teamsync/pkg/logging"
)

// Manager holds a scope: a set of mappings and the traversals they resolve
// to under a filesystem root.
type Manager struct {
	root string

	mu         sync.RWMutex
	mappings   map[string]Mapping
	traversals map[string][]Traversal

	listenersMu sync.RWMutex
	nextID      uint64
	listeners   map[uint64]Listener
}

// NewManager creates a scope manager for the workspace at root.
func NewManager(root string) *Manager {
	return &Manager{
		root:       root,
		mappings:   make(map[string]Mapping),
		traversals: make(map[string][]Traversal),
		listeners:  make(map[uint64]Listener),
	}
}

// Root returns the workspace root on disk.
func (m *Manager) Root() string {
	return m.root
}

// AddMappings adds mappings to the scope and resolves them.
func (m *Manager) AddMappings(ctx context.Context, mappings ...Mapping) error {
	return m.Refresh(ctx, mappings)
}

// Mappings returns the mappings of the scope sorted by ID.
func (m *Manager) Mappings() []Mapping {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Mapping, 0, len(m.mappings))
	for _, mapping := range m.mappings {
		out = append(out, mapping)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Traversals returns every traversal of the scope sorted by root.
func (m *Manager) Traversals() []Traversal {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Traversal
	for _, ts := range m.traversals {
		out = append(out, ts...)
	}
	sortTraversals(out)
	return out
}

// Contains reports whether path is covered by any traversal.
func (m *Manager) Contains(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ts := range m.traversals {
		for _, t := range ts {
			if t.Covers(path) {
				return true
			}
		}
	}
	return false
}

// Subscribe registers l for scope changes.
func (m *Manager) Subscribe(l Listener) (cancel func()) {
	m.listenersMu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.listenersMu.Lock()
			delete(m.listeners, id)
			m.listenersMu.Unlock()
		})
	}
}

// Refresh re-resolves the traversals of mappings. Unknown mappings are
// added to the scope. Listeners are notified once with the combined
// difference.
func (m *Manager) Refresh(ctx context.Context, mappings []Mapping) error {
	resolved := make(map[string][]Traversal, len(mappings))
	for _, mapping := range mappings {
		if err := ctx.Err(); err != nil {
			return err
		}
		ts, err := m.resolve(mapping)
		if err != nil {
			return fmt.Errorf("resolving mapping %s: %w", mapping, err)
		}
		resolved[mapping.ID] = ts
	}

	var event ChangeEvent
	m.mu.Lock()
	for _, mapping := range mappings {
		before := m.traversals[mapping.ID]
		after := resolved[mapping.ID]
		added, removed := diffTraversals(before, after)
		event.Added = append(event.Added, added...)
		event.Removed = append(event.Removed, removed...)

		m.mappings[mapping.ID] = mapping
		m.traversals[mapping.ID] = after
	}
	m.mu.Unlock()

	logging.Debug("ScopeManager", "Refreshed %d mappings (+%d -%d traversals)",
		len(mappings), len(event.Added), len(event.Removed))

	if len(event.Added) == 0 && len(event.Removed) == 0 {
		return nil
	}
	sortTraversals(event.Added)
	sortTraversals(event.Removed)

	m.listenersMu.RLock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.listenersMu.RUnlock()

	for _, l := range listeners {
		l(event)
	}
	return nil
}

// resolve stats the mapping's path. A missing path yields no traversal and
// a file caps the depth to zero.
func (m *Manager) resolve(mapping Mapping) ([]Traversal, error) {
	path := resource.Clean(mapping.Path)
	info, err := os.Stat(filepath.Join(m.root, filepath.FromSlash(path)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	depth := mapping.Depth
	if !info.IsDir() {
		depth = DepthZero
	}
	return []Traversal{{Root: path, Depth: depth}}, nil
}

func diffTraversals(before, after []Traversal) (added, removed []Traversal) {
	old := make(map[Traversal]struct{}, len(before))
	for _, t := range before {
		old[t] = struct{}{}
	}
	next := make(map[Traversal]struct{}, len(after))
	for _, t := range after {
		next[t] = struct{}{}
		if _, ok := old[t]; !ok {
			added = append(added, t)
		}
	}
	for _, t := range before {
		if _, ok := next[t]; !ok {
			removed = append(removed, t)
		}
	}
	return added, removed
}

func sortTraversals(ts []Traversal) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].Root != ts[j].Root {
			return ts[i].Root < ts[j].Root
		}
		return ts[i].Depth < ts[j].Depth
	})
}
