// Package input keeps a sync set up to date with a subscriber.
//
// An Input owns two sets: the subscriber set, holding every out-of-sync
// resource the subscriber reports, and a filtered set derived from it.
// Resource deltas and team deltas are translated into requests (change,
// remove-all, collect, reset) and queued on an EventHandler. The handler
// runs them in the background through a coalescer: the comparator is asked
// once per resource per pass and the pass's result is published as a
// single revision of the subscriber set. The filtered set follows.
//
// Structural changes win over fine-grained ones. A project that is deleted
// or no longer supervised drops its whole subtree in one request, and a
// resource that changed type is removed and collected again instead of
// being patched in place.
package input
