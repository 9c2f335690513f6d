package syncset

import (
	"sync"

	"teamsync/internal/resource"
)

func outgoing(path string) SyncInfo {
	return SyncInfo{Path: path, Type: resource.File, Direction: Outgoing, Change: Modification}
}

func incoming(path string) SyncInfo {
	return SyncInfo{Path: path, Type: resource.File, Direction: Incoming, Change: Modification}
}

func conflicting(path string) SyncInfo {
	return SyncInfo{Path: path, Type: resource.File, Direction: Conflicting, Change: Modification}
}

func paths(infos []SyncInfo) []string {
	out := make([]string, 0, len(infos))
	for _, i := range infos {
		out = append(out, i.Path)
	}
	return out
}

// eventRecorder collects change events.
type eventRecorder struct {
	mu     sync.Mutex
	events []*ChangeEvent
}

func (r *eventRecorder) listen(e *ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) all() []*ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*ChangeEvent, len(r.events))
	copy(out, r.events)
	return out
}
