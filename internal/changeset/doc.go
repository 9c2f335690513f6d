// Package changeset groups outgoing changes into named change sets.
//
// A Collector follows a sync set. Every resource with a local change that
// is not yet in a change set lands in the default set; resources that
// return to sync, or only have incoming changes left, drop out of every
// set. Users move resources between sets with Assign. The sets can be
// persisted through a Store and restored on the next start.
package changeset
