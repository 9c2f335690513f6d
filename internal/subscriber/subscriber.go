// Package subscriber defines the comparator a sync set is computed from.
//
// A Subscriber knows which resources are under version control, computes
// their synchronization state against a remote source and reports changes
// of that state that did not originate in the workspace (a commit, a
// change of ignore rules, a provider being attached or detached).
package subscriber

import (
	"context"
	"sync"

	"teamsync/internal/syncset"
)

// Subscriber computes sync state for workspace resources. Paths are slash
// separated and relative to the workspace root.
type Subscriber interface {
	// Name identifies the subscriber in logs.
	Name() string

	// Roots returns the resources whose subtrees the subscriber manages.
	Roots() []string

	// IsSupervised reports whether path is managed by the subscriber.
	IsSupervised(path string) (bool, error)

	// SyncInfo returns the state of path, or nil when path is in sync or
	// not managed.
	SyncInfo(ctx context.Context, path string) (*syncset.SyncInfo, error)

	// Members returns the supervised children of the container at path.
	Members(ctx context.Context, path string) ([]string, error)

	// Refresh re-reads the remote state of paths. An empty list refreshes
	// everything.
	Refresh(ctx context.Context, paths []string) error

	// Subscribe registers l for team state changes.
	Subscribe(l TeamListener) (cancel func())
}

// TeamFlag describes a team state change.
type TeamFlag int

const (
	// SyncChanged means the sync state of the resource changed.
	SyncChanged TeamFlag = 1 << iota
	// ProviderConfigured means the resource became managed.
	ProviderConfigured
	// ProviderDeconfigured means the resource is no longer managed.
	ProviderDeconfigured
	// IgnoresChanged means the ignore rules changed; any resource may
	// have entered or left supervision.
	IgnoresChanged
)

// String returns the string representation of the flag.
func (f TeamFlag) String() string {
	switch f {
	case SyncChanged:
		return "sync-changed"
	case ProviderConfigured:
		return "provider-configured"
	case ProviderDeconfigured:
		return "provider-deconfigured"
	case IgnoresChanged:
		return "ignores-changed"
	default:
		return "unknown"
	}
}

// TeamDelta is a flat team state change for one resource.
type TeamDelta struct {
	Path string
	Flag TeamFlag
}

// TeamListener receives team state changes.
type TeamListener func([]TeamDelta)

// TeamBroadcaster fans team deltas out to listeners. Subscriber
// implementations embed it.
type TeamBroadcaster struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]TeamListener
}

// NewTeamBroadcaster creates a broadcaster without listeners.
func NewTeamBroadcaster() *TeamBroadcaster {
	return &TeamBroadcaster{listeners: make(map[uint64]TeamListener)}
}

// Subscribe registers l.
func (b *TeamBroadcaster) Subscribe(l TeamListener) (cancel func()) {
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

// Publish delivers deltas to every listener. Empty batches are dropped.
func (b *TeamBroadcaster) Publish(deltas []TeamDelta) {
	if len(deltas) == 0 {
		return
	}

	b.mu.RLock()
	listeners := make([]TeamListener, 0, len(b.listeners))
	for _, l := range b.listeners {
		listeners = append(listeners, l)
	}
	b.mu.RUnlock()

	for _, l := range listeners {
		l(deltas)
	}
}
