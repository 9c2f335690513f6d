// Package gitsub implements subscriber.Subscriber on top of a git working
// tree.
//
// The remote source is the repository's HEAD commit and index: a file with
// uncommitted changes is outgoing, an unmerged file is conflicting. Status
// scans are shared between concurrent callers and cached until Refresh is
// called.
package gitsub

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"golang.org/x/sync/singleflight"

	"teamsync/internal/resource"
	"teamsync/internal/subscriber"
	"teamsync/internal/syncset"
	"teamsync/pkg/logging"
)

// Name is the subscriber name reported by Subscriber.Name.
const Name = "git"

// Option configures a Subscriber.
type Option func(*Subscriber)

// WithExtraIgnores adds gitignore style patterns on top of the
// repository's own .gitignore files.
func WithExtraIgnores(patterns ...string) Option {
	return func(s *Subscriber) {
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" || strings.HasPrefix(p, "#") {
				continue
			}
			s.extraIgnores = append(s.extraIgnores, gitignore.ParsePattern(p, nil))
		}
	}
}

// Subscriber computes sync state from a git working tree.
type Subscriber struct {
	*subscriber.TeamBroadcaster

	root     string
	repo     *git.Repository
	worktree *git.Worktree

	extraIgnores []gitignore.Pattern

	// group shares one status scan between concurrent callers of the same
	// cache generation
	group singleflight.Group

	// scanMu serializes status scans and index writes
	scanMu sync.Mutex

	mu         sync.RWMutex
	generation uint64
	status     git.Status
	ignores    gitignore.Matcher
}

var _ subscriber.Subscriber = (*Subscriber)(nil)

// Open opens the git repository whose working tree is root.
func Open(root string, opts ...Option) (*Subscriber, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}

	repo, err := git.PlainOpen(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", abs, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	s := &Subscriber{
		TeamBroadcaster: subscriber.NewTeamBroadcaster(),
		root:            abs,
		repo:            repo,
		worktree:        wt,
	}
	for _, opt := range opts {
		opt(s)
	}
	wt.Excludes = append(wt.Excludes, s.extraIgnores...)

	if err := s.ReloadIgnores(); err != nil {
		return nil, err
	}

	logging.Debug("GitSubscriber", "Opened repository at %s", abs)
	return s, nil
}

// Name implements subscriber.Subscriber.
func (s *Subscriber) Name() string {
	return Name
}

// Root returns the working tree directory.
func (s *Subscriber) Root() string {
	return s.root
}

// Roots implements subscriber.Subscriber. The whole working tree is one
// root.
func (s *Subscriber) Roots() []string {
	return []string{""}
}

// ReloadIgnores re-reads the .gitignore files of the working tree.
func (s *Subscriber) ReloadIgnores() error {
	patterns, err := gitignore.ReadPatterns(s.worktree.Filesystem, nil)
	if err != nil {
		return fmt.Errorf("failed to read ignore patterns: %w", err)
	}
	patterns = append(patterns, s.extraIgnores...)

	s.mu.Lock()
	s.ignores = gitignore.NewMatcher(patterns)
	s.mu.Unlock()
	return nil
}

// IsSupervised implements subscriber.Subscriber.
func (s *Subscriber) IsSupervised(path string) (bool, error) {
	path = resource.Clean(path)
	if path == "" {
		return true, nil
	}
	segments := strings.Split(path, "/")
	for _, seg := range segments {
		if seg == ".git" {
			return false, nil
		}
	}

	isDir := false
	info, err := os.Lstat(s.abs(path))
	switch {
	case err == nil:
		isDir = info.IsDir()
	case errors.Is(err, fs.ErrNotExist):
	default:
		return false, err
	}

	s.mu.RLock()
	ignores := s.ignores
	s.mu.RUnlock()
	return !ignores.Match(segments, isDir), nil
}

// SyncInfo implements subscriber.Subscriber.
func (s *Subscriber) SyncInfo(ctx context.Context, path string) (*syncset.SyncInfo, error) {
	path = resource.Clean(path)
	st, err := s.currentStatus(ctx)
	if err != nil {
		return nil, err
	}

	fileStatus, ok := st[path]
	if !ok {
		return nil, nil
	}
	return toSyncInfo(path, fileStatus), nil
}

// Members implements subscriber.Subscriber. Tracked files deleted from the
// working tree are reported as members of their former parent so a deep
// collect finds outgoing deletions.
func (s *Subscriber) Members(ctx context.Context, path string) ([]string, error) {
	path = resource.Clean(path)
	entries, err := os.ReadDir(s.abs(path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	seen := make(map[string]struct{}, len(entries))
	var members []string
	for _, entry := range entries {
		child := childPath(path, entry.Name())
		ok, err := s.IsSupervised(child)
		if err != nil {
			return nil, err
		}
		if ok {
			seen[child] = struct{}{}
			members = append(members, child)
		}
	}

	st, err := s.currentStatus(ctx)
	if err != nil {
		return nil, err
	}
	for p, fileStatus := range st {
		if fileStatus.Staging != git.Deleted && fileStatus.Worktree != git.Deleted {
			continue
		}
		if p == path || !resource.Contains(path, p) {
			continue
		}
		rest := p
		if path != "" {
			rest = strings.TrimPrefix(p, path+"/")
		}
		child := childPath(path, strings.SplitN(rest, "/", 2)[0])
		if _, ok := seen[child]; ok {
			continue
		}
		seen[child] = struct{}{}
		members = append(members, child)
	}

	sort.Strings(members)
	return members, nil
}

func childPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// Refresh implements subscriber.Subscriber. It drops the cached status,
// scans again and reports every path among paths whose state changed as
// SyncChanged. Deleted files are not in the working tree any more, so the
// scan is the only way to learn about them.
func (s *Subscriber) Refresh(ctx context.Context, paths []string) error {
	s.mu.Lock()
	previous := s.status
	s.status = nil
	s.generation++
	s.mu.Unlock()

	current, err := s.currentStatus(ctx)
	if err != nil {
		return err
	}

	var changed []string
	for _, p := range diffStatus(previous, current) {
		if inScope(paths, p) {
			changed = append(changed, p)
		}
	}
	if len(changed) == 0 {
		return nil
	}
	sort.Strings(changed)

	deltas := make([]subscriber.TeamDelta, 0, len(changed))
	for _, p := range changed {
		deltas = append(deltas, subscriber.TeamDelta{Path: p, Flag: subscriber.SyncChanged})
	}
	logging.Debug("GitSubscriber", "Refresh found %d changed paths", len(deltas))
	s.Publish(deltas)
	return nil
}

// currentStatus returns the cached status, scanning the working tree when
// the cache is empty.
func (s *Subscriber) currentStatus(ctx context.Context) (git.Status, error) {
	s.mu.RLock()
	st := s.status
	gen := s.generation
	s.mu.RUnlock()
	if st != nil {
		return st, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, err, _ := s.group.Do(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		s.scanMu.Lock()
		scanned, err := s.worktree.Status()
		s.scanMu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("status scan failed: %w", err)
		}

		s.mu.Lock()
		if s.generation == gen {
			s.status = scanned
		}
		s.mu.Unlock()
		return scanned, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(git.Status), nil
}

// Invalidate drops the cached status without scanning.
func (s *Subscriber) Invalidate() {
	s.mu.Lock()
	s.status = nil
	s.generation++
	s.mu.Unlock()
}

func (s *Subscriber) abs(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(path))
}

// toSyncInfo maps a git file status to sync state. Unmerged wins over any
// other code, then additions and deletions over modifications.
func toSyncInfo(path string, st *git.FileStatus) *syncset.SyncInfo {
	staging, wt := st.Staging, st.Worktree
	info := &syncset.SyncInfo{Path: path, Type: resource.File}

	switch {
	case staging == git.UpdatedButUnmerged || wt == git.UpdatedButUnmerged:
		info.Direction = syncset.Conflicting
		info.Change = syncset.Modification
	case staging == git.Untracked || wt == git.Untracked || staging == git.Added:
		info.Direction = syncset.Outgoing
		info.Change = syncset.Addition
	case staging == git.Deleted || wt == git.Deleted:
		info.Direction = syncset.Outgoing
		info.Change = syncset.Deletion
	case isModification(staging) || isModification(wt):
		info.Direction = syncset.Outgoing
		info.Change = syncset.Modification
	default:
		return nil
	}
	return info
}

func isModification(code git.StatusCode) bool {
	return code == git.Modified || code == git.Renamed || code == git.Copied
}

// diffStatus returns the paths whose sync state differs between a and b.
func diffStatus(a, b git.Status) []string {
	var out []string
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, st := range []git.Status{a, b} {
		for p := range st {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			if !sameState(p, a[p], b[p]) {
				out = append(out, p)
			}
		}
	}
	return out
}

func sameState(path string, a, b *git.FileStatus) bool {
	var ia, ib *syncset.SyncInfo
	if a != nil {
		ia = toSyncInfo(path, a)
	}
	if b != nil {
		ib = toSyncInfo(path, b)
	}
	if ia == nil || ib == nil {
		return ia == nil && ib == nil
	}
	return *ia == *ib && a.Staging == b.Staging && a.Worktree == b.Worktree
}

func inScope(scopes []string, path string) bool {
	if len(scopes) == 0 {
		return true
	}
	for _, scope := range scopes {
		if resource.Contains(resource.Clean(scope), path) {
			return true
		}
	}
	return false
}
