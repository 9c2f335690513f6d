package input

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"teamsync/internal/coalescer"
	"teamsync/internal/jobs"
	"teamsync/internal/resource"
	"teamsync/internal/subscriber"
	"teamsync/internal/syncset"
	"teamsync/pkg/logging"
)

// Event kinds queued by EventHandler.
const (
	EventChange coalescer.EventKind = iota + 20
	EventRemoveAll
	EventCollect
	EventReset
)

var (
	kindRequests = map[coalescer.EventKind]requestKind{
		EventChange:    requestChange,
		EventRemoveAll: requestRemoveAll,
		EventCollect:   requestCollect,
		EventReset:     requestReset,
	}
	requestKinds = map[requestKind]coalescer.EventKind{
		requestChange:    EventChange,
		requestRemoveAll: EventRemoveAll,
		requestCollect:   EventCollect,
		requestReset:     EventReset,
	}
)

// EventHandler applies queued requests to a sync set in background passes.
// Each pass asks the subscriber for the state of every affected resource
// and publishes the outcome as one revision of the set.
type EventHandler struct {
	sub       subscriber.Subscriber
	set       *syncset.Set
	coalescer *coalescer.Coalescer

	mu       sync.Mutex
	requests []request
}

// NewEventHandler creates a handler that keeps set in line with sub.
func NewEventHandler(sub subscriber.Subscriber, set *syncset.Set, opts ...coalescer.Option) (*EventHandler, error) {
	if sub == nil {
		return nil, fmt.Errorf("subscriber event handler: subscriber is required")
	}
	if set == nil {
		return nil, fmt.Errorf("subscriber event handler: sync set is required")
	}
	h := &EventHandler{sub: sub, set: set}

	c, err := coalescer.New("Updating Sync Set "+set.Name(), jobs.Family(h), h, opts...)
	if err != nil {
		return nil, err
	}
	h.coalescer = c
	return h, nil
}

// queue queues one event for kind covering paths.
func (h *EventHandler) queue(ctx context.Context, kind requestKind, paths []string, wait bool) error {
	payload := make([]string, len(paths))
	for i, p := range paths {
		payload[i] = resource.Clean(p)
	}
	event := coalescer.Event{Kind: requestKinds[kind], Payload: payload}
	return h.coalescer.QueueEvent(ctx, event, wait)
}

// queueRequests queues requests in order without waiting.
func (h *EventHandler) queueRequests(ctx context.Context, requests []request) error {
	for _, r := range requests {
		if err := h.queue(ctx, r.kind, []string{r.path}, false); err != nil {
			return err
		}
	}
	return nil
}

// ProcessEvent implements coalescer.Processor.
func (h *EventHandler) ProcessEvent(_ context.Context, event coalescer.Event) error {
	kind, ok := kindRequests[event.Kind]
	if !ok {
		return fmt.Errorf("unexpected event kind %d", event.Kind)
	}
	var paths []string
	switch payload := event.Payload.(type) {
	case []string:
		paths = payload
	case string:
		paths = []string{payload}
	case nil:
	default:
		return fmt.Errorf("unexpected %s payload %T", kind, event.Payload)
	}
	if kind == requestReset {
		paths = []string{""}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range paths {
		h.requests = append(h.requests, request{kind: kind, path: resource.Clean(p)})
	}
	return nil
}

// step is one staged change of a pass, applied in order inside the set
// update.
type step struct {
	kind  requestKind
	path  string
	infos []syncset.SyncInfo
}

// DispatchEvents implements coalescer.Processor. The comparator is called
// before the set is locked for writing; a request whose comparator call
// fails leaves the set untouched for its path and the pass reports the
// failure.
func (h *EventHandler) DispatchEvents(ctx context.Context) (bool, error) {
	h.mu.Lock()
	requests := compact(h.requests)
	h.requests = nil
	h.mu.Unlock()

	if len(requests) == 0 {
		return false, nil
	}

	var (
		steps []step
		errs  []error
	)
	for _, r := range requests {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		s, err := h.prepare(ctx, r)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %q: %w", r.kind, r.path, err))
			continue
		}
		steps = append(steps, s...)
	}

	event := h.set.Update(func(b *syncset.Batch) {
		for _, s := range steps {
			switch s.kind {
			case requestReset:
				b.Clear()
			case requestRemoveAll:
				b.RemoveAllChildren(s.path)
			case requestChange:
				if len(s.infos) == 0 {
					b.Remove(s.path)
				}
			}
			for _, info := range s.infos {
				b.Put(info)
			}
		}
	})
	if event != nil {
		logging.Debug("SubscriberInput", "Applied %d requests to %s", len(requests), h.set.Name())
	}

	if len(errs) > 0 {
		return true, fmt.Errorf("updating sync set %s: %w", h.set.Name(), errors.Join(errs...))
	}
	return true, nil
}

// prepare turns r into the steps that apply it. Collect and reset replace
// the state of their subtree, so they stage a removal before the collected
// entries.
func (h *EventHandler) prepare(ctx context.Context, r request) ([]step, error) {
	switch r.kind {
	case requestChange:
		info, err := h.syncInfo(ctx, r.path)
		if err != nil {
			return nil, err
		}
		s := step{kind: requestChange, path: r.path}
		if info != nil {
			s.infos = []syncset.SyncInfo{*info}
		}
		return []step{s}, nil

	case requestRemoveAll:
		return []step{{kind: requestRemoveAll, path: r.path}}, nil

	case requestCollect:
		var infos []syncset.SyncInfo
		if err := h.collect(ctx, r.path, &infos); err != nil {
			return nil, err
		}
		return []step{{kind: requestRemoveAll, path: r.path, infos: infos}}, nil

	case requestReset:
		var infos []syncset.SyncInfo
		for _, root := range h.sub.Roots() {
			if err := h.collect(ctx, resource.Clean(root), &infos); err != nil {
				return nil, err
			}
		}
		return []step{{kind: requestReset, infos: infos}}, nil
	}
	return nil, fmt.Errorf("unknown request %d", r.kind)
}

// syncInfo returns the state of path, or nil when it is in sync or not
// supervised.
func (h *EventHandler) syncInfo(ctx context.Context, path string) (*syncset.SyncInfo, error) {
	ok, err := h.sub.IsSupervised(path)
	if err != nil || !ok {
		return nil, err
	}
	return h.sub.SyncInfo(ctx, path)
}

// collect appends the out-of-sync state of path and everything below it.
func (h *EventHandler) collect(ctx context.Context, path string, out *[]syncset.SyncInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ok, err := h.sub.IsSupervised(path)
	if err != nil || !ok {
		return err
	}

	info, err := h.sub.SyncInfo(ctx, path)
	if err != nil {
		return err
	}
	if info != nil {
		*out = append(*out, *info)
	}

	members, err := h.sub.Members(ctx, path)
	if err != nil {
		return err
	}
	for _, m := range members {
		if err := h.collect(ctx, m, out); err != nil {
			return err
		}
	}
	return nil
}

// Join blocks until no pass is running.
func (h *EventHandler) Join(ctx context.Context) error {
	return h.coalescer.Join(ctx)
}

// Dispose cancels pending requests and refuses new ones.
func (h *EventHandler) Dispose() {
	h.coalescer.Dispose()
}
