package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamsync/internal/resource"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func seeded(t *testing.T, root string, opts ...Option) *Watcher {
	t.Helper()
	w := New(root, opts...)
	_, err := w.addTree("", true)
	require.NoError(t, err)
	return w
}

func record(w *Watcher, rel string, op operation) *resource.Delta {
	b := resource.NewBuilder()
	w.mu.Lock()
	w.recordLocked(b, rel, op)
	w.mu.Unlock()
	return b.Build()
}

func TestMergeOperations(t *testing.T) {
	tests := []struct {
		old, new, expected operation
	}{
		{opCreate, opUpdate, opCreate},
		{opCreate, opDelete, opDelete},
		{opUpdate, opUpdate, opUpdate},
		{opUpdate, opDelete, opDelete},
		{opDelete, opCreate, opCreate},
	}

	for _, tt := range tests {
		t.Run(tt.old.String()+"_"+tt.new.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, mergeOperations(tt.old, tt.new))
		})
	}
}

func TestWatcher_SeedSkipsGitAndIgnored(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "proj/a.go", "a")
	writeFile(t, root, "proj/build/out.bin", "b")
	writeFile(t, root, ".git/HEAD", "ref: refs/heads/main")

	w := seeded(t, root, WithIgnore(func(p string, isDir bool) bool {
		return isDir && strings.HasSuffix(p, "/build")
	}))

	typ, ok := w.Known("proj")
	require.True(t, ok)
	assert.Equal(t, resource.Project, typ)

	typ, ok = w.Known("proj/a.go")
	require.True(t, ok)
	assert.Equal(t, resource.File, typ)

	_, ok = w.Known(".git")
	assert.False(t, ok)
	_, ok = w.Known(".git/HEAD")
	assert.False(t, ok)
	_, ok = w.Known("proj/build/out.bin")
	assert.False(t, ok)
}

func TestWatcher_RecordAdded(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "proj/a.go", "a")
	w := seeded(t, root)

	writeFile(t, root, "proj/new.go", "n")
	delta := record(w, "proj/new.go", opCreate)
	require.NotNil(t, delta)

	node := delta.Find("proj/new.go")
	require.NotNil(t, node)
	assert.Equal(t, resource.Added, node.Kind)
	assert.Equal(t, resource.File, node.Type)

	_, ok := w.Known("proj/new.go")
	assert.True(t, ok)
}

func TestWatcher_RecordContentChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "proj/a.go", "a")
	w := seeded(t, root)

	delta := record(w, "proj/a.go", opUpdate)
	require.NotNil(t, delta)
	node := delta.Find("proj/a.go")
	require.NotNil(t, node)
	assert.Equal(t, resource.Changed, node.Kind)
	assert.Equal(t, resource.FlagContent, node.Flags)

	// Directory writes carry no information of their own.
	assert.Nil(t, record(w, "proj", opUpdate))
}

func TestWatcher_RecordTypeChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "proj/x", "file")
	w := seeded(t, root)

	require.NoError(t, os.Remove(filepath.Join(root, "proj", "x")))
	writeFile(t, root, "proj/x/inner.txt", "now a folder")

	delta := record(w, "proj/x", opCreate)
	require.NotNil(t, delta)
	node := delta.Find("proj/x")
	require.NotNil(t, node)
	assert.Equal(t, resource.Changed, node.Kind)
	assert.Equal(t, resource.Folder, node.Type)
	assert.True(t, node.Flags.Has(resource.FlagType))

	typ, _ := w.Known("proj/x")
	assert.Equal(t, resource.Folder, typ)
}

func TestWatcher_RecordRemovedFolderForgetsChildren(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "proj/sub/a.go", "a")
	w := seeded(t, root)

	require.NoError(t, os.RemoveAll(filepath.Join(root, "proj", "sub")))

	delta := record(w, "proj/sub", opDelete)
	require.NotNil(t, delta)
	node := delta.Find("proj/sub")
	require.NotNil(t, node)
	assert.Equal(t, resource.Removed, node.Kind)
	assert.Equal(t, resource.Folder, node.Type)

	_, ok := w.Known("proj/sub/a.go")
	assert.False(t, ok)

	// A late notification for the child finds nothing to report.
	assert.Nil(t, record(w, "proj/sub/a.go", opDelete))
}

// collect subscribes to w and returns a channel of published deltas.
func collect(t *testing.T, w *Watcher) <-chan *resource.Delta {
	t.Helper()
	ch := make(chan *resource.Delta, 16)
	cancel := w.Subscribe(func(d *resource.Delta) { ch <- d })
	t.Cleanup(cancel)
	return ch
}

func waitDelta(t *testing.T, ch <-chan *resource.Delta, match func(*resource.Delta) bool) *resource.Delta {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case d := <-ch:
			if match(d) {
				return d
			}
		case <-deadline:
			t.Fatal("timeout waiting for delta")
			return nil
		}
	}
}

func TestWatcher_DetectsChanges(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "proj/a.go", "a")

	w := New(root, WithDebounce(30*time.Millisecond))
	ch := collect(t, w)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	writeFile(t, root, "proj/b.go", "b")
	d := waitDelta(t, ch, func(d *resource.Delta) bool { return d.Find("proj/b.go") != nil })
	assert.Equal(t, resource.Added, d.Find("proj/b.go").Kind)

	require.NoError(t, os.Remove(filepath.Join(root, "proj", "a.go")))
	d = waitDelta(t, ch, func(d *resource.Delta) bool { return d.Find("proj/a.go") != nil })
	assert.Equal(t, resource.Removed, d.Find("proj/a.go").Kind)
}

func TestWatcher_NewDirectoryContents(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "proj"), 0o755))

	w := New(root, WithDebounce(50*time.Millisecond))
	ch := collect(t, w)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	writeFile(t, root, "proj/pkg/deep/file.go", "x")

	waitDelta(t, ch, func(d *resource.Delta) bool {
		n := d.Find("proj/pkg/deep/file.go")
		return n != nil && n.Kind == resource.Added
	})

	// The new directories are watched too.
	writeFile(t, root, "proj/pkg/deep/second.go", "y")
	waitDelta(t, ch, func(d *resource.Delta) bool { return d.Find("proj/pkg/deep/second.go") != nil })
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "proj/a.go", "v0")

	w := New(root, WithDebounce(150*time.Millisecond))
	ch := collect(t, w)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	for i := 0; i < 5; i++ {
		writeFile(t, root, "proj/a.go", "v"+string(rune('1'+i)))
		time.Sleep(10 * time.Millisecond)
	}

	count := 0
	timeout := time.After(600 * time.Millisecond)
loop:
	for {
		select {
		case <-ch:
			count++
		case <-timeout:
			break loop
		}
	}

	// One window, or two if timing is tight.
	assert.GreaterOrEqual(t, count, 1)
	assert.LessOrEqual(t, count, 2)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := New(t.TempDir())
	assert.NoError(t, w.Stop())

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestWatcher_FlushPublishesWindowsInOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "proj/a.go", "a")
	writeFile(t, root, "proj/b.go", "b")

	w := New(root)
	w.running = true

	entered := make(chan struct{}, 2)
	releaseFirst := make(chan struct{})
	var order []string
	first := true
	w.Subscribe(func(d *resource.Delta) {
		entered <- struct{}{}
		if first {
			first = false
			<-releaseFirst
		}
		for _, p := range []string{"proj/a.go", "proj/b.go"} {
			if d.Find(p) != nil {
				order = append(order, p)
			}
		}
	})

	w.mu.Lock()
	w.pending["proj/a.go"] = opCreate
	w.mu.Unlock()
	firstDone := make(chan struct{})
	go func() { w.flush(); close(firstDone) }()
	<-entered

	w.mu.Lock()
	w.pending["proj/b.go"] = opCreate
	w.mu.Unlock()
	secondDone := make(chan struct{})
	go func() { w.flush(); close(secondDone) }()

	select {
	case <-entered:
		t.Fatal("second window published while the first was still being delivered")
	case <-time.After(50 * time.Millisecond):
	}

	close(releaseFirst)
	<-firstDone
	<-secondDone
	assert.Equal(t, []string{"proj/a.go", "proj/b.go"}, order)
}
