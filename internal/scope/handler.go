package scope

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"teamsync/internal/coalescer"
	"teamsync/internal/jobs"
)

// EventRefresh is the kind of the events queued by EventHandler.
const EventRefresh coalescer.EventKind = 10

// EventHandler refreshes mappings in the background. Refresh requests that
// arrive while a refresh is pending are merged, so each mapping is
// refreshed once per pass no matter how often it was requested.
type EventHandler struct {
	refresher Refresher
	coalescer *coalescer.Coalescer

	mu        sync.Mutex
	toRefresh map[Mapping]struct{}
}

// NewEventHandler creates a handler that refreshes through refresher. The
// background passes run under the refresher as job family, so refresher
// must be comparable (a pointer in practice).
func NewEventHandler(refresher Refresher, opts ...coalescer.Option) (*EventHandler, error) {
	if refresher == nil {
		return nil, fmt.Errorf("scope event handler: refresher is required")
	}
	h := &EventHandler{
		refresher: refresher,
		toRefresh: make(map[Mapping]struct{}),
	}

	c, err := coalescer.New("Reconciling Scope", jobs.Family(refresher), h, opts...)
	if err != nil {
		return nil, err
	}
	h.coalescer = c
	return h, nil
}

// Refresh queues mappings for refresh and returns immediately.
func (h *EventHandler) Refresh(ctx context.Context, mappings ...Mapping) error {
	return h.queue(ctx, mappings, false)
}

// RefreshAndWait queues mappings for refresh and blocks until the pass that
// refreshes them has completed.
func (h *EventHandler) RefreshAndWait(ctx context.Context, mappings ...Mapping) error {
	return h.queue(ctx, mappings, true)
}

func (h *EventHandler) queue(ctx context.Context, mappings []Mapping, wait bool) error {
	payload := make([]Mapping, len(mappings))
	copy(payload, mappings)
	return h.coalescer.QueueEvent(ctx, coalescer.Event{Kind: EventRefresh, Payload: payload}, wait)
}

// ProcessEvent implements coalescer.Processor.
func (h *EventHandler) ProcessEvent(_ context.Context, event coalescer.Event) error {
	if event.Kind != EventRefresh {
		return nil
	}
	mappings, ok := event.Payload.([]Mapping)
	if !ok {
		return fmt.Errorf("unexpected refresh payload %T", event.Payload)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range mappings {
		h.toRefresh[m] = struct{}{}
	}
	return nil
}

// DispatchEvents implements coalescer.Processor.
func (h *EventHandler) DispatchEvents(ctx context.Context) (bool, error) {
	h.mu.Lock()
	mappings := make([]Mapping, 0, len(h.toRefresh))
	for m := range h.toRefresh {
		mappings = append(mappings, m)
	}
	h.toRefresh = make(map[Mapping]struct{})
	h.mu.Unlock()

	if len(mappings) == 0 {
		return false, nil
	}

	sort.Slice(mappings, func(i, j int) bool {
		if mappings[i].ID != mappings[j].ID {
			return mappings[i].ID < mappings[j].ID
		}
		if mappings[i].Path != mappings[j].Path {
			return mappings[i].Path < mappings[j].Path
		}
		return mappings[i].Depth < mappings[j].Depth
	})

	if err := h.refresher.Refresh(ctx, mappings); err != nil {
		return true, fmt.Errorf("refreshing scope: %w", err)
	}
	return true, nil
}

// Join blocks until no refresh pass is running.
func (h *EventHandler) Join(ctx context.Context) error {
	return h.coalescer.Join(ctx)
}

// Dispose cancels pending refreshes. Callers waiting in RefreshAndWait
// return coalescer.ErrCancelled.
func (h *EventHandler) Dispose() {
	h.coalescer.Dispose()
}
