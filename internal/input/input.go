package input

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"teamsync/internal/coalescer"
	"teamsync/internal/resource"
	"teamsync/internal/subscriber"
	"teamsync/internal/syncset"
	"teamsync/pkg/logging"
)

// Option configures an Input.
type Option func(*options)

type options struct {
	name          string
	feed          resource.Feed
	filter        syncset.Filter
	coalescerOpts []coalescer.Option
}

// WithName names the input's sets. The default is the subscriber's name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithFeed subscribes the input to a resource delta feed.
func WithFeed(feed resource.Feed) Option {
	return func(o *options) {
		o.feed = feed
	}
}

// WithFilter sets the initial filter of the filtered set.
func WithFilter(filter syncset.Filter) Option {
	return func(o *options) {
		o.filter = filter
	}
}

// WithCoalescerOptions passes opts to the handler's coalescer.
func WithCoalescerOptions(opts ...coalescer.Option) Option {
	return func(o *options) {
		o.coalescerOpts = append(o.coalescerOpts, opts...)
	}
}

// Input connects a subscriber to its sync sets.
type Input struct {
	sub      subscriber.Subscriber
	base     *syncset.Set
	filtered *syncset.FilteredSet
	handler  *EventHandler

	disposeOnce sync.Once
	cancels     []func()
}

// New creates an input for sub. The sets start empty; call Prepare to
// populate them.
func New(sub subscriber.Subscriber, opts ...Option) (*Input, error) {
	if sub == nil {
		return nil, fmt.Errorf("subscriber input: subscriber is required")
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.name == "" {
		o.name = sub.Name()
	}

	base := syncset.NewSet(o.name)
	handler, err := NewEventHandler(sub, base, o.coalescerOpts...)
	if err != nil {
		return nil, err
	}

	in := &Input{
		sub:      sub,
		base:     base,
		filtered: syncset.NewFilteredSet(o.name+" (filtered)", base, o.filter),
		handler:  handler,
	}
	if o.feed != nil {
		in.cancels = append(in.cancels, o.feed.Subscribe(in.ProcessDelta))
	}
	in.cancels = append(in.cancels, sub.Subscribe(in.ProcessTeamDeltas))
	return in, nil
}

// Subscriber returns the subscriber the input follows.
func (in *Input) Subscriber() subscriber.Subscriber {
	return in.sub
}

// Roots returns the subscriber's roots.
func (in *Input) Roots() []string {
	return in.sub.Roots()
}

// SubscriberSyncSet returns the set of everything the subscriber reports
// out of sync.
func (in *Input) SubscriberSyncSet() *syncset.Set {
	return in.base
}

// FilteredSyncSet returns the set derived through the current filter.
func (in *Input) FilteredSyncSet() *syncset.FilteredSet {
	return in.filtered
}

// SetFilter replaces the filter of the filtered set and recomputes it. The
// subscriber is not consulted.
func (in *Input) SetFilter(filter syncset.Filter) {
	in.filtered.SetFilter(filter)
}

// Prepare collects the state of every root and waits for it.
func (in *Input) Prepare(ctx context.Context) error {
	return in.Reset(ctx, true)
}

// Reset clears the subscriber set and collects every root again.
func (in *Input) Reset(ctx context.Context, wait bool) error {
	return in.handler.queue(ctx, requestReset, nil, wait)
}

// CollectDeeply recomputes the state of paths and everything below them.
func (in *Input) CollectDeeply(ctx context.Context, paths []string, wait bool) error {
	if len(paths) == 0 {
		return nil
	}
	return in.handler.queue(ctx, requestCollect, paths, wait)
}

// HandleChange marks path for recomputation in the next pass.
func (in *Input) HandleChange(path string) error {
	return in.handler.queue(context.Background(), requestChange, []string{path}, false)
}

// RemoveAllChildren removes path and every entry below it in the next pass.
func (in *Input) RemoveAllChildren(path string) error {
	return in.handler.queue(context.Background(), requestRemoveAll, []string{path}, false)
}

// RefreshLocalState refreshes the subscriber's view of paths and waits
// until their state is in the sets.
func (in *Input) RefreshLocalState(ctx context.Context, paths []string) error {
	if err := in.sub.Refresh(ctx, paths); err != nil {
		return fmt.Errorf("refreshing %s: %w", in.sub.Name(), err)
	}
	if len(paths) == 0 {
		return in.Reset(ctx, true)
	}
	return in.CollectDeeply(ctx, paths, true)
}

// ProcessDelta translates a resource delta into queued requests. It is the
// input's resource feed listener.
func (in *Input) ProcessDelta(d *resource.Delta) {
	in.queueFromListener(translateDelta(d, in.sub))
}

// ProcessTeamDeltas translates team deltas into queued requests. It is the
// input's subscriber listener.
func (in *Input) ProcessTeamDeltas(deltas []subscriber.TeamDelta) {
	in.queueFromListener(translateTeamDeltas(deltas))
}

func (in *Input) queueFromListener(requests []request) {
	err := in.handler.queueRequests(context.Background(), requests)
	if err != nil && !errors.Is(err, coalescer.ErrDisposed) {
		logging.Error("SubscriberInput", err, "Failed to queue %d requests", len(requests))
	}
}

// Join blocks until no pass is running.
func (in *Input) Join(ctx context.Context) error {
	return in.handler.Join(ctx)
}

// Dispose unsubscribes from both feeds, stops the filtered set from
// following the subscriber set and cancels pending work. Waiting callers
// return coalescer.ErrCancelled.
func (in *Input) Dispose() {
	in.disposeOnce.Do(func() {
		for _, cancel := range in.cancels {
			cancel()
		}
		in.filtered.Disconnect()
		in.handler.Dispose()
		logging.Debug("SubscriberInput", "Disposed input for %s", in.sub.Name())
	})
}
