// Package syncset holds sync sets: collections of resources annotated with
// their synchronization state relative to a remote source.
//
// A Set is written by a single reconciler through Update and read by any
// number of goroutines through Snapshot. Every Update publishes one new
// immutable Snapshot and one ChangeEvent, so readers never see a partially
// applied change.
//
// A FilteredSet follows a parent Set through its change events and keeps
// only the entries its Filter selects. Replacing the filter recomputes the
// derived set from the parent without touching the comparator that
// produced the parent.
//
//	base := syncset.NewSet("subscriber")
//	outgoing := syncset.NewFilteredSet("outgoing", base, syncset.DirectionFilter(syncset.Outgoing))
//	base.Update(func(b *syncset.Batch) {
//		b.Put(syncset.SyncInfo{Path: "p/a.go", Direction: syncset.Outgoing, Change: syncset.Modification})
//	})
package syncset
