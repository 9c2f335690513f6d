package syncset

import (
	"sort"

	"teamsync/internal/resource"
)

// Snapshot is one immutable revision of a sync set.
type Snapshot struct {
	revision uint64
	entries  map[string]SyncInfo
	paths    []string
}

func newSnapshot(revision uint64, entries map[string]SyncInfo) *Snapshot {
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return &Snapshot{revision: revision, entries: entries, paths: paths}
}

// Revision returns the revision number. The empty initial snapshot has
// revision 0 and every published change increments it by one.
func (s *Snapshot) Revision() uint64 {
	return s.revision
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	return len(s.paths)
}

// Get returns the entry for path.
func (s *Snapshot) Get(path string) (SyncInfo, bool) {
	info, ok := s.entries[path]
	return info, ok
}

// Contains reports whether path has an entry.
func (s *Snapshot) Contains(path string) bool {
	_, ok := s.entries[path]
	return ok
}

// All returns every entry sorted by path.
func (s *Snapshot) All() []SyncInfo {
	out := make([]SyncInfo, 0, len(s.paths))
	for _, p := range s.paths {
		out = append(out, s.entries[p])
	}
	return out
}

// Members returns the entries at or below scope, sorted by path.
func (s *Snapshot) Members(scope string) []SyncInfo {
	var out []SyncInfo
	for _, p := range s.scopePaths(scope) {
		out = append(out, s.entries[p])
	}
	return out
}

// HasOutOfSync reports whether any entry lies at or below scope.
func (s *Snapshot) HasOutOfSync(scope string) bool {
	return len(s.scopePaths(scope)) > 0
}

// CountByDirection counts the entries per direction.
func (s *Snapshot) CountByDirection() map[Direction]int {
	counts := make(map[Direction]int)
	for _, info := range s.entries {
		counts[info.Direction]++
	}
	return counts
}

// scopePaths returns the sorted paths at or below scope. Paths below scope
// sort directly after scope+"/", so the range is found by binary search.
func (s *Snapshot) scopePaths(scope string) []string {
	if scope == "" {
		return s.paths
	}

	var out []string
	if _, ok := s.entries[scope]; ok {
		out = append(out, scope)
	}

	prefix := scope + "/"
	start := sort.SearchStrings(s.paths, prefix)
	for i := start; i < len(s.paths) && resource.Contains(scope, s.paths[i]); i++ {
		out = append(out, s.paths[i])
	}
	return out
}
