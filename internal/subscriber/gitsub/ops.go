package gitsub

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-git/go-git/v5"

	"teamsync/internal/resource"
	"teamsync/internal/syncset"
)

// ErrInSync is returned by Stage and Restore for paths without changes.
var ErrInSync = errors.New("path has no changes")

// Stage records the working tree state of path in the index.
func (s *Subscriber) Stage(ctx context.Context, path string) error {
	path = resource.Clean(path)
	info, err := s.SyncInfo(ctx, path)
	if err != nil {
		return err
	}
	if info == nil {
		return fmt.Errorf("stage %s: %w", path, ErrInSync)
	}

	s.scanMu.Lock()
	if info.Change == syncset.Deletion {
		_, err = s.worktree.Remove(path)
	} else {
		_, err = s.worktree.Add(path)
	}
	s.scanMu.Unlock()
	if err != nil {
		return fmt.Errorf("stage %s: %w", path, err)
	}

	return s.Refresh(ctx, []string{path})
}

// Restore discards local changes of path: modified and deleted files are
// restored from HEAD, added files are removed.
func (s *Subscriber) Restore(ctx context.Context, path string) error {
	path = resource.Clean(path)
	info, err := s.SyncInfo(ctx, path)
	if err != nil {
		return err
	}
	if info == nil {
		return fmt.Errorf("restore %s: %w", path, ErrInSync)
	}

	s.mu.RLock()
	fileStatus := s.status[path]
	s.mu.RUnlock()

	s.scanMu.Lock()
	switch {
	case info.Change == syncset.Addition && fileStatus != nil && fileStatus.Staging == git.Added:
		_, err = s.worktree.Remove(path)
	case info.Change == syncset.Addition:
		err = os.Remove(s.abs(path))
		if errors.Is(err, fs.ErrNotExist) {
			err = nil
		}
	default:
		err = s.worktree.Restore(&git.RestoreOptions{
			Staged:   true,
			Worktree: true,
			Files:    []string{path},
		})
	}
	s.scanMu.Unlock()
	if err != nil {
		return fmt.Errorf("restore %s: %w", path, err)
	}

	return s.Refresh(ctx, []string{path})
}
