package coalescer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"teamsync/internal/jobs"
	"teamsync/pkg/logging"
)

// pendingEvent is a queued event together with the callers waiting for it.
type pendingEvent struct {
	event   Event
	waiters []chan error
}

// Coalescer accumulates events from any number of producers and hands them
// to a Processor in serialized background passes. A burst of events queued
// while no pass is running collapses into a single pass.
type Coalescer struct {
	name      string
	family    jobs.Family
	processor Processor
	jobs      *jobs.Manager
	metrics   *Metrics

	mu sync.Mutex

	// pending holds queued events in FIFO order
	pending []*pendingEvent

	// keyed indexes pending events that carry a dedup key
	keyed map[eventKey]*pendingEvent

	// inFlight holds the waiters of the pass currently running
	inFlight []chan error

	// scheduled is true while a pass job is pending or running
	scheduled bool

	disposed bool
}

type eventKey struct {
	kind EventKind
	key  string
}

// Option configures a Coalescer.
type Option func(*Coalescer)

// WithJobManager runs passes on m instead of the process wide manager.
func WithJobManager(m *jobs.Manager) Option {
	return func(c *Coalescer) {
		c.jobs = m
	}
}

// WithMetrics records pass statistics into m instead of the global metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Coalescer) {
		c.metrics = m
	}
}

// New creates a coalescer. name is used in logs and errors; family is the
// job family its passes run under, so callers can join or cancel them.
func New(name string, family jobs.Family, processor Processor, opts ...Option) (*Coalescer, error) {
	if processor == nil {
		return nil, fmt.Errorf("coalescer %q: processor is required", name)
	}
	if family == nil {
		return nil, fmt.Errorf("coalescer %q: job family is required", name)
	}

	c := &Coalescer{
		name:      name,
		family:    family,
		processor: processor,
		keyed:     make(map[eventKey]*pendingEvent),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.jobs == nil {
		c.jobs = jobs.Default()
	}
	if c.metrics == nil {
		c.metrics = GetMetrics()
	}
	return c, nil
}

// Name returns the coalescer's name.
func (c *Coalescer) Name() string {
	return c.name
}

// Family returns the job family token the passes run under.
func (c *Coalescer) Family() jobs.Family {
	return c.family
}

// QueueEvent adds event to the pending set and makes sure a pass will run.
//
// With wait false it returns immediately. With wait true it blocks until the
// pass that drains event has completed and returns that pass's outcome: nil,
// a *ProcessingError, ErrCancelled, or ErrInterrupted if ctx ends first.
func (c *Coalescer) QueueEvent(ctx context.Context, event Event, wait bool) error {
	var waiter chan error
	if wait {
		waiter = make(chan error, 1)
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	c.enqueueLocked(event, waiter)
	c.scheduleLocked()
	c.mu.Unlock()

	c.metrics.RecordQueued(ctx, c.name)

	if !wait {
		return nil
	}

	select {
	case err := <-waiter:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
	}
}

// enqueueLocked must be called with c.mu held.
func (c *Coalescer) enqueueLocked(event Event, waiter chan error) {
	if event.Key != "" {
		k := eventKey{kind: event.Kind, key: event.Key}
		if existing, ok := c.keyed[k]; ok {
			existing.event = event
			if waiter != nil {
				existing.waiters = append(existing.waiters, waiter)
			}
			return
		}
		p := &pendingEvent{event: event}
		if waiter != nil {
			p.waiters = append(p.waiters, waiter)
		}
		c.keyed[k] = p
		c.pending = append(c.pending, p)
		return
	}

	p := &pendingEvent{event: event}
	if waiter != nil {
		p.waiters = append(p.waiters, waiter)
	}
	c.pending = append(c.pending, p)
}

// scheduleLocked must be called with c.mu held.
func (c *Coalescer) scheduleLocked() {
	if c.scheduled || len(c.pending) == 0 {
		return
	}

	c.scheduled = true
	if job := c.jobs.Schedule(c.family, c.name, c.run); job == nil {
		// The job manager is gone, nothing will ever drain these events.
		c.scheduled = false
		waiters := c.takePendingLocked()
		release(waiters, ErrCancelled)
	}
}

// takePendingLocked empties the pending set and returns its waiters.
func (c *Coalescer) takePendingLocked() []chan error {
	var waiters []chan error
	for _, p := range c.pending {
		waiters = append(waiters, p.waiters...)
	}
	c.pending = nil
	c.keyed = make(map[eventKey]*pendingEvent)
	return waiters
}

// run is the body of the background job. It keeps draining until the
// pending set is empty, the coalescer is disposed or the job is cancelled.
func (c *Coalescer) run(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.disposed || len(c.pending) == 0 || ctx.Err() != nil {
			c.scheduled = false
			if ctx.Err() != nil && !c.disposed {
				// The family was cancelled from outside. Events queued
				// meanwhile belong to a fresh pass.
				c.scheduleLocked()
			}
			c.mu.Unlock()
			return nil
		}

		batch := c.pending
		c.inFlight = c.takePendingLocked()
		c.mu.Unlock()

		start := time.Now()
		worked, err := c.pass(ctx, batch)
		if ctx.Err() != nil {
			err = ErrCancelled
		}

		c.mu.Lock()
		waiters := c.inFlight
		c.inFlight = nil
		c.mu.Unlock()

		c.metrics.RecordPass(ctx, c.name, len(batch), worked, time.Since(start), err)

		switch {
		case errors.Is(err, ErrCancelled):
			logging.Debug("Coalescer", "Pass of %s cancelled", c.name)
		case err != nil:
			logging.Error("Coalescer", err, "Pass of %s failed", c.name)
		case !worked:
			logging.Debug("Coalescer", "Pass of %s had no actionable work (%d events)", c.name, len(batch))
		default:
			logging.Debug("Coalescer", "Pass of %s dispatched %d events in %v", c.name, len(batch), time.Since(start))
		}

		release(waiters, err)
	}
}

// pass feeds batch to the processor and dispatches once. Per-event failures
// do not stop the remaining events from being processed.
func (c *Coalescer) pass(ctx context.Context, batch []*pendingEvent) (worked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			worked = false
			err = &ProcessingError{Handler: c.name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	var errs []error
	for _, p := range batch {
		if ctx.Err() != nil {
			return false, ErrCancelled
		}
		if err := c.processor.ProcessEvent(ctx, p.event); err != nil {
			errs = append(errs, err)
		}
	}

	worked, dispatchErr := c.processor.DispatchEvents(ctx)
	if dispatchErr != nil {
		errs = append(errs, dispatchErr)
	}

	if len(errs) > 0 {
		return worked, &ProcessingError{Handler: c.name, Err: errors.Join(errs...)}
	}
	return worked, nil
}

func release(waiters []chan error, err error) {
	for _, w := range waiters {
		w <- err
	}
}

// Pending returns the number of events waiting for the next pass.
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// IsDisposed reports whether Dispose has been called.
func (c *Coalescer) IsDisposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// Join blocks until no pass of this coalescer's family is running.
func (c *Coalescer) Join(ctx context.Context) error {
	return c.jobs.Join(ctx, c.family)
}

// Dispose cancels any running pass, releases every waiter with ErrCancelled
// and refuses further events. It is safe to call more than once.
func (c *Coalescer) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	waiters := append(c.takePendingLocked(), c.inFlight...)
	c.inFlight = nil
	c.mu.Unlock()

	c.jobs.Cancel(c.family)
	release(waiters, ErrCancelled)

	logging.Debug("Coalescer", "Disposed %s (%d waiters released)", c.name, len(waiters))
}
