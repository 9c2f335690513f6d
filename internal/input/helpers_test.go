package input

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"teamsync/internal/coalescer"
	"teamsync/internal/jobs"
	"teamsync/internal/resource"
	"teamsync/internal/subscriber"
	"teamsync/internal/syncset"
)

// fakeSubscriber is an in-memory comparator. Resources exist when they are
// in nodes; their sync state lives in states.
type fakeSubscriber struct {
	*subscriber.TeamBroadcaster

	mu           sync.Mutex
	roots        []string
	nodes        map[string]bool // path -> is container
	states       map[string]syncset.SyncInfo
	unsupervised map[string]bool
	failing      map[string]error
	syncCalls    map[string]int
	refreshed    [][]string
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{
		TeamBroadcaster: subscriber.NewTeamBroadcaster(),
		roots:           []string{""},
		nodes:           map[string]bool{"": true},
		states:          make(map[string]syncset.SyncInfo),
		unsupervised:    make(map[string]bool),
		failing:         make(map[string]error),
		syncCalls:       make(map[string]int),
	}
}

func (f *fakeSubscriber) Name() string { return "fake" }

func (f *fakeSubscriber) Roots() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.roots...)
}

func (f *fakeSubscriber) IsSupervised(path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for p := path; ; p = resource.Parent(p) {
		if f.unsupervised[p] {
			return false, nil
		}
		if p == "" {
			return true, nil
		}
	}
}

func (f *fakeSubscriber) SyncInfo(_ context.Context, path string) (*syncset.SyncInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncCalls[path]++
	if err := f.failing[path]; err != nil {
		return nil, err
	}
	info, ok := f.states[path]
	if !ok {
		return nil, nil
	}
	return &info, nil
}

func (f *fakeSubscriber) Members(_ context.Context, path string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]struct{})
	for p := range f.nodes {
		if p != "" && resource.Parent(p) == path {
			seen[p] = struct{}{}
		}
	}
	// Deleted resources keep their state and stay members.
	for p := range f.states {
		if resource.Parent(p) == path {
			seen[p] = struct{}{}
		}
	}
	members := make([]string, 0, len(seen))
	for p := range seen {
		members = append(members, p)
	}
	sort.Strings(members)
	return members, nil
}

func (f *fakeSubscriber) Refresh(_ context.Context, paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed = append(f.refreshed, append([]string(nil), paths...))
	return nil
}

// addFile creates a file and its missing parent folders.
func (f *fakeSubscriber) addFile(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes[path] = false
	for p := resource.Parent(path); p != ""; p = resource.Parent(p) {
		f.nodes[p] = true
	}
}

// addFolder creates an empty folder and its missing parents.
func (f *fakeSubscriber) addFolder(path string) {
	f.addFile(path)
	f.mu.Lock()
	f.nodes[path] = true
	f.mu.Unlock()
}

// removeTree deletes path and everything below it together with its state.
func (f *fakeSubscriber) removeTree(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for p := range f.nodes {
		if resource.Contains(path, p) {
			delete(f.nodes, p)
		}
	}
	for p := range f.states {
		if resource.Contains(path, p) {
			delete(f.states, p)
		}
	}
}

func (f *fakeSubscriber) setState(path string, direction syncset.Direction, change syncset.Change) {
	f.mu.Lock()
	defer f.mu.Unlock()
	typ := resource.File
	if f.nodes[path] {
		typ = resource.Folder
	}
	f.states[path] = syncset.SyncInfo{Path: path, Type: typ, Direction: direction, Change: change}
}

func (f *fakeSubscriber) setInSync(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, path)
}

func (f *fakeSubscriber) setUnsupervised(path string, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsupervised[path] = v
}

func (f *fakeSubscriber) setFailing(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[path] = err
}

func (f *fakeSubscriber) calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.syncCalls[path]
}

func (f *fakeSubscriber) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.syncCalls {
		n += c
	}
	return n
}

func (f *fakeSubscriber) refreshCalls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.refreshed...)
}

// testCoalescerOptions isolates the handler's passes from other tests.
func testCoalescerOptions(t *testing.T) []coalescer.Option {
	t.Helper()
	m := jobs.NewManager(context.Background())
	t.Cleanup(m.Shutdown)
	metrics, err := coalescer.NewMetrics(nil)
	require.NoError(t, err)
	return []coalescer.Option{coalescer.WithJobManager(m), coalescer.WithMetrics(metrics)}
}

func newTestInput(t *testing.T, sub *fakeSubscriber, opts ...Option) (*Input, *resource.Broadcaster) {
	t.Helper()
	feed := resource.NewBroadcaster()
	opts = append([]Option{WithFeed(feed), WithCoalescerOptions(testCoalescerOptions(t)...)}, opts...)
	in, err := New(sub, opts...)
	require.NoError(t, err)
	t.Cleanup(in.Dispose)
	return in, feed
}

func paths(infos []syncset.SyncInfo) []string {
	out := make([]string, 0, len(infos))
	for _, info := range infos {
		out = append(out, info.Path)
	}
	return out
}
