package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"teamsync/internal/resource"
	"teamsync/pkg/logging"
)

// DefaultDebounce is the debounce window used when none is configured.
const DefaultDebounce = 200 * time.Millisecond

// operation is the merged filesystem operation seen for one path within a
// debounce window.
type operation int

const (
	opCreate operation = iota + 1
	opUpdate
	opDelete
)

func (o operation) String() string {
	switch o {
	case opCreate:
		return "create"
	case opUpdate:
		return "update"
	case opDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// IgnoreFunc reports whether a workspace relative path should be skipped.
type IgnoreFunc func(path string, isDir bool) bool

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounceInterval = d
		}
	}
}

// WithIgnore skips paths for which ignore returns true.
func WithIgnore(ignore IgnoreFunc) Option {
	return func(w *Watcher) {
		w.ignore = ignore
	}
}

// Watcher is a resource.Feed backed by fsnotify. It watches a workspace
// recursively and delivers one delta tree per debounce window.
type Watcher struct {
	mu sync.Mutex

	// publishMu keeps windows in order: a window is taken and published
	// before the next one is taken. Acquired before mu.
	publishMu sync.Mutex

	// root is the workspace directory on disk
	root string

	// watcher is the fsnotify watcher instance
	watcher *fsnotify.Watcher

	// debounceInterval is how long to wait for additional changes
	debounceInterval time.Duration

	// pending holds the merged operation per relative path
	pending map[string]operation

	// timer flushes pending when the window closes
	timer *time.Timer

	// known maps every watched relative path to its last seen type
	known map[string]resource.Type

	ignore IgnoreFunc
	feed   *resource.Broadcaster

	stopCh  chan struct{}
	running bool
}

// New creates a watcher for the workspace at root.
func New(root string, opts ...Option) *Watcher {
	w := &Watcher{
		root:             root,
		debounceInterval: DefaultDebounce,
		pending:          make(map[string]operation),
		known:            make(map[string]resource.Type),
		feed:             resource.NewBroadcaster(),
		stopCh:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Subscribe implements resource.Feed. Listeners run on the watcher's flush
// goroutine.
func (w *Watcher) Subscribe(l resource.Listener) (cancel func()) {
	return w.feed.Subscribe(l)
}

// Start begins watching. It returns once the initial tree has been
// registered with fsnotify.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = fsw
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	if _, err := w.addTree("", true); err != nil {
		_ = w.Stop()
		return err
	}

	go w.processEvents(ctx, fsw)

	logging.Info("Watcher", "Started watching %s (debounce %v)", w.root, w.debounceInterval)
	return nil
}

// addTree registers rel and every directory below it with fsnotify. With
// seed set the types of everything found are recorded as known; otherwise
// the paths not known yet are returned so they can be reported as added.
func (w *Watcher) addTree(rel string, seed bool) ([]string, error) {
	var discovered []string
	start := filepath.Join(w.root, filepath.FromSlash(rel))

	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		child, ok := w.relative(p)
		if !ok {
			return nil
		}
		if child != "" && w.skip(child, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if err := w.watch(p); err != nil {
				logging.Warn("Watcher", "Failed to watch %s: %v", child, err)
			}
		}

		if child == "" {
			return nil
		}
		w.mu.Lock()
		if seed {
			w.known[child] = resource.TypeFor(child, d.IsDir())
		} else if _, ok := w.known[child]; !ok {
			discovered = append(discovered, child)
		}
		w.mu.Unlock()
		return nil
	})
	return discovered, err
}

func (w *Watcher) watch(dir string) error {
	w.mu.Lock()
	fsw := w.watcher
	w.mu.Unlock()
	if fsw == nil {
		return nil
	}
	return fsw.Add(dir)
}

// relative converts an absolute path to a workspace relative slash path.
func (w *Watcher) relative(p string) (string, bool) {
	rel, err := filepath.Rel(w.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	if rel == "." {
		return "", true
	}
	return filepath.ToSlash(rel), true
}

// skip reports whether rel is outside the watched tree.
func (w *Watcher) skip(rel string, isDir bool) bool {
	for _, segment := range strings.Split(rel, "/") {
		if segment == ".git" {
			return true
		}
	}
	return w.ignore != nil && w.ignore(rel, isDir)
}

// processEvents handles filesystem events until the watcher stops.
func (w *Watcher) processEvents(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return

		case <-w.stopChan():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher", err, "Filesystem watcher error")
		}
	}
}

func (w *Watcher) stopChan() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopCh
}

// handleFsEvent processes a single filesystem event.
func (w *Watcher) handleFsEvent(event fsnotify.Event) {
	rel, ok := w.relative(event.Name)
	if !ok || rel == "" {
		return
	}

	var op operation
	switch {
	case event.Op.Has(fsnotify.Create):
		op = opCreate
	case event.Op.Has(fsnotify.Write):
		op = opUpdate
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		// Rename is treated as delete; the new name triggers a create.
		op = opDelete
	default:
		return
	}

	isDir := false
	if op != opDelete {
		if info, err := os.Stat(event.Name); err == nil {
			isDir = info.IsDir()
		}
	}
	if w.skip(rel, isDir) {
		return
	}

	if op == opCreate && isDir {
		// Files created before the watch was registered produce no events
		// of their own.
		discovered, err := w.addTree(rel, false)
		if err != nil {
			logging.Warn("Watcher", "Failed to watch new directory %s: %v", rel, err)
		}
		for _, child := range discovered {
			if child != rel {
				w.debounce(child, opCreate)
			}
		}
	}

	w.debounce(rel, op)
}

// debounce merges op into the pending window and restarts the timer.
func (w *Watcher) debounce(rel string, op operation) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	if existing, ok := w.pending[rel]; ok {
		op = mergeOperations(existing, op)
	}
	w.pending[rel] = op

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounceInterval, w.flush)
}

// mergeOperations merges two operations into a single logical operation.
func mergeOperations(old, new operation) operation {
	if old == opCreate {
		if new == opDelete {
			return opDelete
		}
		// Create + Update = Create
		return opCreate
	}

	if old == opUpdate && new == opDelete {
		return opDelete
	}

	return new
}

// flush turns the pending window into one delta tree and publishes it.
func (w *Watcher) flush() {
	w.publishMu.Lock()
	defer w.publishMu.Unlock()

	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	pending := w.pending
	w.pending = make(map[string]operation)
	w.timer = nil

	b := resource.NewBuilder()
	for rel, op := range pending {
		w.recordLocked(b, rel, op)
	}
	w.mu.Unlock()

	delta := b.Build()
	if delta == nil {
		return
	}
	logging.Debug("Watcher", "Publishing delta with %d nodes from %d paths", delta.Len(), len(pending))
	w.feed.Publish(delta)
}

// recordLocked translates the merged operation of rel into builder
// records. The path is compared against its last known type on disk, so a
// file replaced by a folder of the same name becomes a type change no
// matter which operations fsnotify reported.
func (w *Watcher) recordLocked(b *resource.Builder, rel string, op operation) {
	before, known := w.known[rel]

	var after resource.Type
	exists := false
	if info, err := os.Stat(filepath.Join(w.root, filepath.FromSlash(rel))); err == nil {
		exists = true
		after = resource.TypeFor(rel, info.IsDir())
	}

	switch {
	case !exists:
		if !known {
			return
		}
		b.Add(resource.Record{Path: rel, Type: before, Kind: resource.Removed})
		w.forgetLocked(rel)

	case !known:
		b.Add(resource.Record{Path: rel, Type: after, Kind: resource.Added})
		w.known[rel] = after

	case before != after:
		b.Add(resource.Record{Path: rel, Type: before, Kind: resource.Removed})
		w.forgetLocked(rel)
		b.Add(resource.Record{Path: rel, Type: after, Kind: resource.Added})
		w.known[rel] = after

	case after.IsContainer() && op != opCreate:
		// Directory writes only mirror changes of their children.

	default:
		b.Add(resource.Record{Path: rel, Type: after, Kind: resource.Changed, Flags: resource.FlagContent})
	}
}

// forgetLocked drops rel and everything below it from the known types.
func (w *Watcher) forgetLocked(rel string) {
	for p := range w.known {
		if resource.Contains(rel, p) {
			delete(w.known, p)
		}
	}
}

// Known returns the last seen type of rel.
func (w *Watcher) Known(rel string) (resource.Type, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.known[rel]
	return t, ok
}

// Stop stops the watcher. Pending changes are discarded. It is safe to call
// more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}

	w.running = false
	close(w.stopCh)

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.pending = make(map[string]operation)

	fsw := w.watcher
	w.watcher = nil
	w.mu.Unlock()

	// Closing blocks until fsnotify's reader exits, which may be waiting
	// on an event send, so it happens outside the lock.
	if fsw != nil {
		if err := fsw.Close(); err != nil {
			logging.Error("Watcher", err, "Error closing filesystem watcher")
		}
	}

	logging.Info("Watcher", "Stopped watching %s", w.root)
	return nil
}
