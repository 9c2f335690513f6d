package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"teamsync/pkg/logging"
)

// ErrNotFound is returned by Load and Delete for entities without a file.
var ErrNotFound = errors.New("entity not found")

const documentExt = ".yaml"

// Storage keeps state documents as YAML files, one subdirectory of the
// configuration directory per entity type:
//
//	<dir>/changesets/active.yaml
//
// Writes replace files atomically so a concurrent Load sees either the old
// or the new document.
type Storage struct {
	mu  sync.RWMutex
	dir string // empty means the user configuration directory
}

// NewStorage creates a Storage in the user configuration directory.
func NewStorage() *Storage {
	return &Storage{}
}

// NewStorageWithPath creates a Storage rooted at dir.
func NewStorageWithPath(dir string) *Storage {
	return &Storage{dir: dir}
}

// Save writes data as the document name of entityType.
func (ds *Storage) Save(entityType string, name string, data []byte) error {
	target, err := ds.documentPath(entityType, name)
	if err != nil {
		return err
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", entityType, err)
	}
	if err := writeFileAtomic(target, data); err != nil {
		return fmt.Errorf("failed to save %s/%s: %w", entityType, name, err)
	}

	logging.Debug("Storage", "Saved %s/%s to %s", entityType, name, target)
	return nil
}

// Load returns the document name of entityType. A missing document yields
// an error wrapping ErrNotFound.
func (ds *Storage) Load(entityType string, name string) ([]byte, error) {
	target, err := ds.documentPath(entityType, name)
	if err != nil {
		return nil, err
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	data, err := os.ReadFile(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s/%s: %w", entityType, name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s/%s: %w", entityType, name, err)
	}

	logging.Debug("Storage", "Loaded %s/%s from %s", entityType, name, target)
	return data, nil
}

// Delete removes the document name of entityType.
func (ds *Storage) Delete(entityType string, name string) error {
	target, err := ds.documentPath(entityType, name)
	if err != nil {
		return err
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	err = os.Remove(target)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s/%s: %w", entityType, name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", entityType, name, err)
	}

	logging.Info("Storage", "Deleted %s/%s", entityType, name)
	return nil
}

// List returns the sorted document names of entityType. An entity type
// without documents yields an empty list.
func (ds *Storage) List(entityType string) ([]string, error) {
	if entityType == "" {
		return nil, fmt.Errorf("entity type cannot be empty")
	}
	dir, err := ds.baseDir()
	if err != nil {
		return nil, err
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(dir, entityType))
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", entityType, err)
	}

	names := []string{}
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || (ext != documentExt && ext != ".yml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ext))
	}
	sort.Strings(names)
	return names, nil
}

func (ds *Storage) baseDir() (string, error) {
	if ds.dir != "" {
		return ds.dir, nil
	}
	dir, err := GetUserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get configuration directory: %w", err)
	}
	return dir, nil
}

func (ds *Storage) documentPath(entityType, name string) (string, error) {
	if entityType == "" {
		return "", fmt.Errorf("entity type cannot be empty")
	}
	if name == "" {
		return "", fmt.Errorf("name cannot be empty")
	}
	dir, err := ds.baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, entityType, fileStem(name)+documentExt), nil
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		os.Remove(tmp.Name())
	}
	return err
}

// fileStem maps a document name to a safe file name: characters that are
// special to file systems, dots and blanks become single underscores.
func fileStem(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		if strings.ContainsRune(`/\:*?"<>|. _`, r) {
			if !lastUnderscore {
				b.WriteByte('_')
			}
			lastUnderscore = true
			continue
		}
		b.WriteRune(r)
		lastUnderscore = false
	}
	if stem := strings.Trim(b.String(), "_"); stem != "" {
		return stem
	}
	return "unnamed"
}
