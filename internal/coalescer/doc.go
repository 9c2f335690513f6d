// Package coalescer decouples producers of change notifications from the
// expensive, serialized processing of those changes.
//
// # Overview
//
// Producers call QueueEvent from any goroutine. Events land in a pending
// set guarded by the coalescer's mutex, and a background pass is scheduled
// on a jobs.Manager if none is pending or running. A pass swaps the pending
// set for an empty one, releases the lock, feeds every drained event to the
// Processor and then calls DispatchEvents exactly once. Events that arrive
// while a pass runs are picked up by the next pass.
//
// At most one pass per coalescer runs at a time. Passes run under the
// coalescer's job family so that other components can join or cancel them.
//
// # Waiting
//
//	err := c.QueueEvent(ctx, ev, true)
//
// blocks until the pass that drained ev has completed. All waiters of one
// pass are released together with that pass's outcome. Failures never reach
// producers that did not wait; they are logged through pkg/logging.
//
// # Disposal
//
// Dispose cancels the running pass, releases every waiter with ErrCancelled
// and makes further QueueEvent calls return ErrDisposed.
package coalescer
