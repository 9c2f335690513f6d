// Package watcher turns filesystem notifications for a workspace into
// resource deltas.
//
// The watcher registers every directory of the workspace with fsnotify
// (skipping .git and ignored paths), collects raw notifications for a
// debounce window and then publishes a single resource.Delta tree for the
// window. It remembers the type of every path it has seen so a file
// replaced by a directory of the same name is reported as a type change.
package watcher
