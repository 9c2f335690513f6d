// Package resource models hierarchical change notifications for a
// workspace tree.
//
// A workspace has a root, top-level directories called projects, and
// folders and files below them. Paths are slash separated and relative to
// the root, which is the empty string.
//
// A change is delivered as a Delta tree: every changed resource appears as
// a node together with all of its ancestors up to the root. Producers
// usually observe changes one path at a time and use a Builder to assemble
// the tree. Consumers subscribe to a Feed.
package resource
