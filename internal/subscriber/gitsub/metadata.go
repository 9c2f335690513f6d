package gitsub

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"teamsync/internal/subscriber"
	"teamsync/pkg/logging"
)

// metadataDebounce is how long metadata notifications are collected before
// the subscriber refreshes.
const metadataDebounce = 100 * time.Millisecond

// WatchMetadata watches the repository's index, HEAD and root .gitignore
// until ctx ends. Index or HEAD changes (a commit, a checkout, staging from
// another tool) refresh the status and report SyncChanged deltas; a
// .gitignore change reloads the ignore rules and reports IgnoresChanged
// for the root.
func (s *Subscriber) WatchMetadata(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	gitDir := filepath.Join(s.root, ".git")
	if err := fsw.Add(gitDir); err != nil {
		return err
	}
	if err := fsw.Add(s.root); err != nil {
		return err
	}

	var (
		mu             sync.Mutex
		timer          *time.Timer
		refresh        bool
		ignoresChanged bool
	)

	fire := func() {
		mu.Lock()
		doRefresh, doIgnores := refresh, ignoresChanged
		refresh, ignoresChanged = false, false
		mu.Unlock()

		if doIgnores {
			if err := s.ReloadIgnores(); err != nil {
				logging.Error("GitSubscriber", err, "Failed to reload ignore rules")
			} else {
				s.Invalidate()
				s.Publish([]subscriber.TeamDelta{{Path: "", Flag: subscriber.IgnoresChanged}})
			}
		}
		if doRefresh {
			if err := s.Refresh(ctx, nil); err != nil && ctx.Err() == nil {
				logging.Error("GitSubscriber", err, "Failed to refresh after metadata change")
			}
		}
	}

	index := filepath.Join(gitDir, "index")
	head := filepath.Join(gitDir, "HEAD")
	gitignore := filepath.Join(s.root, ".gitignore")

	logging.Debug("GitSubscriber", "Watching repository metadata in %s", gitDir)
	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod {
				continue
			}

			mu.Lock()
			switch event.Name {
			case index, head:
				refresh = true
			case gitignore:
				ignoresChanged = true
			default:
				mu.Unlock()
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(metadataDebounce, fire)
			mu.Unlock()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logging.Error("GitSubscriber", err, "Metadata watcher error")
		}
	}
}
