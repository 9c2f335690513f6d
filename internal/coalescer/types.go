package coalescer

import (
	"context"
	"errors"
	"fmt"
)

// EventKind tags an Event so a Processor can tell its events apart.
type EventKind int

// Event is a unit of change queued on a Coalescer. It must not be mutated
// once queued.
type Event struct {
	// Kind identifies what the payload means to the processor.
	Kind EventKind

	// Key optionally identifies the event for deduplication. Two pending
	// events with the same Kind and a non-empty Key collapse into one entry
	// holding the most recent payload.
	Key string

	// Payload is opaque to the coalescer.
	Payload any
}

// Processor receives the events drained by a background pass.
//
// ProcessEvent folds one event into the processor's aggregate work-set and
// should be cheap. DispatchEvents performs the expensive operation exactly
// once over that aggregate and reports whether any work was done.
// Both are only ever called from the coalescer's single pass goroutine.
type Processor interface {
	ProcessEvent(ctx context.Context, event Event) error
	DispatchEvents(ctx context.Context) (bool, error)
}

var (
	// ErrDisposed is returned when events are queued on a disposed coalescer.
	ErrDisposed = errors.New("coalescer disposed")

	// ErrCancelled is delivered to waiters whose pass was cancelled, either
	// because the coalescer was disposed or its job family was cancelled.
	ErrCancelled = errors.New("event processing cancelled")

	// ErrInterrupted is returned when the waiting caller's own context ends
	// before the pass completes. It wraps the context error.
	ErrInterrupted = errors.New("wait for event processing interrupted")
)

// ProcessingError reports a failed background pass.
type ProcessingError struct {
	// Handler is the name of the coalescer whose pass failed.
	Handler string

	// Err is the underlying failure.
	Err error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Handler, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
