package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamsync/internal/config"
	"teamsync/internal/syncset"
	"teamsync/internal/telemetry"
)

// newWorkspace creates a repository with p/a.go and q/b.go committed, then
// modifies p/a.go and adds an untracked q/new.go.
func newWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	for _, rel := range []string{"p/a.go", "q/b.go"} {
		writeFile(t, dir, rel, "package x\n")
		_, err := wt.Add(rel)
		require.NoError(t, err)
	}
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	writeFile(t, dir, "p/a.go", "package x\n\nfunc A() {}\n")
	writeFile(t, dir, "q/new.go", "package x\n")
	return dir
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func newTestApplication(t *testing.T, root, configPath string, scopes ...string) *Application {
	t.Helper()
	tc := config.GetDefaultConfig()
	tc.Root = root
	tc.Debounce = 20 * time.Millisecond

	a, err := NewApplication(&Config{
		LogOutput:  io.Discard,
		ConfigPath: configPath,
		Scopes:     scopes,
		Teamsync:   &tc,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func paths(infos []syncset.SyncInfo) []string {
	out := make([]string, 0, len(infos))
	for _, i := range infos {
		out = append(out, i.Path)
	}
	return out
}

func TestNewApplication_LoadsConfigFromPath(t *testing.T) {
	root := newWorkspace(t)
	configDir := t.TempDir()
	writeFile(t, configDir, "teamsync.yaml", "root: "+root+"\nfilter:\n  directions: [outgoing]\n")

	a, err := NewApplication(&Config{LogOutput: io.Discard, ConfigPath: configDir})
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.Equal(t, root, a.Services().Config.Root)
	assert.Equal(t, []string{"outgoing"}, a.Services().Config.Filter.Directions)
}

func TestNewApplication_Errors(t *testing.T) {
	configDir := t.TempDir()
	writeFile(t, configDir, "teamsync.yaml", "logFormat: xml\n")
	_, err := NewApplication(&Config{LogOutput: io.Discard, ConfigPath: configDir})
	assert.Error(t, err)

	tc := config.GetDefaultConfig()
	tc.Root = t.TempDir()
	_, err = NewApplication(&Config{LogOutput: io.Discard, ConfigPath: t.TempDir(), Teamsync: &tc})
	assert.Error(t, err, "root is not a repository")
}

func TestInitializeServices_ReleasesTelemetryOnFailure(t *testing.T) {
	original := shutdownTelemetry
	defer func() { shutdownTelemetry = original }()

	var released []*telemetry.Provider
	shutdownTelemetry = func(ctx context.Context, p *telemetry.Provider) error {
		released = append(released, p)
		return original(ctx, p)
	}

	tc := config.GetDefaultConfig()
	tc.Root = t.TempDir()
	tc.Metrics = config.MetricsConfig{Enabled: true, Address: "127.0.0.1:0"}

	_, err := InitializeServices(&Config{LogOutput: io.Discard, ConfigPath: t.TempDir(), Teamsync: &tc})
	require.Error(t, err)
	require.Len(t, released, 1)
	assert.True(t, released[0].Enabled())
}

func TestPrepare_CollectsWorkingTree(t *testing.T) {
	root := newWorkspace(t)
	a := newTestApplication(t, root, t.TempDir())

	require.NoError(t, a.Prepare(context.Background()))

	s := a.Services()
	assert.Equal(t, []string{"p/a.go", "q/new.go"}, paths(s.Input.SubscriberSyncSet().Snapshot().All()))
	assert.Equal(t, []string{"p/a.go", "q/new.go"}, paths(s.Input.FilteredSyncSet().Snapshot().All()))
	assert.Equal(t, []string{"p/a.go", "q/new.go"}, s.ChangeSets.Default().Paths())
}

func TestPrepare_ScopeNarrowsFilteredSet(t *testing.T) {
	root := newWorkspace(t)
	a := newTestApplication(t, root, t.TempDir(), "p")

	require.NoError(t, a.Prepare(context.Background()))

	s := a.Services()
	assert.Len(t, s.Input.SubscriberSyncSet().Snapshot().All(), 2)
	assert.Equal(t, []string{"p/a.go"}, paths(s.Input.FilteredSyncSet().Snapshot().All()))
	assert.True(t, s.Scope.Contains("p/a.go"))
	assert.False(t, s.Scope.Contains("q/new.go"))
}

func TestClose_PersistsChangeSets(t *testing.T) {
	root := newWorkspace(t)
	configDir := t.TempDir()
	ctx := context.Background()

	a := newTestApplication(t, root, configDir)
	require.NoError(t, a.Prepare(ctx))
	_, err := a.Services().ChangeSets.CreateSet("feature")
	require.NoError(t, err)
	require.NoError(t, a.Services().ChangeSets.Assign("q/new.go", "feature"))
	require.NoError(t, a.Close(ctx))
	require.NoError(t, a.Close(ctx))

	b := newTestApplication(t, root, configDir)
	require.NoError(t, b.Prepare(ctx))

	feature, ok := b.Services().ChangeSets.Get("feature")
	require.True(t, ok)
	assert.Equal(t, []string{"q/new.go"}, feature.Paths())
	assert.Equal(t, []string{"p/a.go"}, b.Services().ChangeSets.Default().Paths())
}

func TestRun_FollowsFilesystemChanges(t *testing.T) {
	root := newWorkspace(t)
	a := newTestApplication(t, root, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Prepare(ctx))

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	filtered := a.Services().Input.FilteredSyncSet()

	// The watcher registers its tree before Run blocks; retry the write
	// until the change is observed.
	require.Eventually(t, func() bool {
		writeFile(t, root, "q/b.go", "package x\n\nfunc B() {}\n")
		return filtered.Snapshot().Contains("q/b.go")
	}, 5*time.Second, 50*time.Millisecond)

	info, ok := filtered.Snapshot().Get("q/b.go")
	require.True(t, ok)
	assert.Equal(t, syncset.Outgoing, info.Direction)
	assert.Equal(t, syncset.Modification, info.Change)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestMappingsFor(t *testing.T) {
	assert.Len(t, mappingsFor(nil), 1)
	assert.Equal(t, "", mappingsFor(nil)[0].Path)

	ms := mappingsFor([]string{"p/", "./q"})
	require.Len(t, ms, 2)
	assert.Equal(t, "p", ms[0].Path)
	assert.Equal(t, "q", ms[1].Path)
}

func TestRun_PicksUpChangesMadeBeforeWatching(t *testing.T) {
	root := newWorkspace(t)
	a := newTestApplication(t, root, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Prepare(ctx))

	filtered := a.Services().Input.FilteredSyncSet()
	require.False(t, filtered.Snapshot().Contains("q/b.go"))

	// Edited after the initial collect but before any watch is registered.
	writeFile(t, root, "q/b.go", "package x\n\nfunc B() {}\n")

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		return filtered.Snapshot().Contains("q/b.go")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
