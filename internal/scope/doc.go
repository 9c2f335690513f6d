// Package scope tracks which parts of a workspace an operation applies to
// and refreshes them in the background.
//
// A Manager maps named Mappings to the Traversals they currently resolve
// to on disk. An EventHandler coalesces refresh requests from any number of
// callers: mappings requested while a refresh is pending are merged and
// refreshed once.
package scope
