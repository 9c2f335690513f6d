package scope

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "proj", "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "proj", "src", "main.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# ws\n"), 0o644))
	return root
}

func TestTraversal_Covers(t *testing.T) {
	tests := []struct {
		name string
		tr   Traversal
		path string
		want bool
	}{
		{"zero self", Traversal{Root: "p", Depth: DepthZero}, "p", true},
		{"zero child", Traversal{Root: "p", Depth: DepthZero}, "p/a", false},
		{"one child", Traversal{Root: "p", Depth: DepthOne}, "p/a", true},
		{"one grandchild", Traversal{Root: "p", Depth: DepthOne}, "p/a/b", false},
		{"infinite grandchild", Traversal{Root: "p", Depth: DepthInfinite}, "p/a/b", true},
		{"infinite sibling", Traversal{Root: "p", Depth: DepthInfinite}, "px/a", false},
		{"root one", Traversal{Root: "", Depth: DepthOne}, "top.txt", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tr.Covers(tt.path))
		})
	}
}

func TestManager_Resolve(t *testing.T) {
	root := newWorkspace(t)
	m := NewManager(root)
	ctx := context.Background()

	require.NoError(t, m.AddMappings(ctx,
		Mapping{ID: "project", Path: "proj", Depth: DepthInfinite},
		Mapping{ID: "readme", Path: "README.md", Depth: DepthInfinite},
		Mapping{ID: "missing", Path: "nope", Depth: DepthOne},
	))

	assert.Len(t, m.Mappings(), 3)
	assert.Equal(t, []Traversal{
		{Root: "README.md", Depth: DepthZero},
		{Root: "proj", Depth: DepthInfinite},
	}, m.Traversals())

	assert.True(t, m.Contains("proj/src/main.go"))
	assert.True(t, m.Contains("README.md"))
	assert.False(t, m.Contains("nope"))
	assert.False(t, m.Contains("other/file"))
	assert.Equal(t, root, m.Root())
}

func TestManager_RefreshNotifiesDifferences(t *testing.T) {
	root := newWorkspace(t)
	m := NewManager(root)
	ctx := context.Background()

	var events []ChangeEvent
	cancel := m.Subscribe(func(e ChangeEvent) { events = append(events, e) })
	defer cancel()

	missing := Mapping{ID: "later", Path: "later", Depth: DepthInfinite}
	require.NoError(t, m.AddMappings(ctx, missing))
	assert.Empty(t, events, "no traversal, no event")

	require.NoError(t, os.Mkdir(filepath.Join(root, "later"), 0o755))
	require.NoError(t, m.Refresh(ctx, []Mapping{missing}))
	require.Len(t, events, 1)
	assert.Equal(t, []Traversal{{Root: "later", Depth: DepthInfinite}}, events[0].Added)

	// Unchanged refresh is silent.
	require.NoError(t, m.Refresh(ctx, []Mapping{missing}))
	assert.Len(t, events, 1)

	require.NoError(t, os.Remove(filepath.Join(root, "later")))
	require.NoError(t, m.Refresh(ctx, []Mapping{missing}))
	require.Len(t, events, 2)
	assert.Equal(t, []Traversal{{Root: "later", Depth: DepthInfinite}}, events[1].Removed)
	assert.False(t, m.Contains("later"))
}

func TestManager_RefreshHonorsContext(t *testing.T) {
	m := NewManager(newWorkspace(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Refresh(ctx, []Mapping{{ID: "p", Path: "proj"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, m.Mappings())
}
