package syncset

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Filter selects the entries of a derived set.
type Filter interface {
	Select(info SyncInfo) bool
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(info SyncInfo) bool

// Select implements Filter.
func (f FilterFunc) Select(info SyncInfo) bool {
	return f(info)
}

// All selects every entry.
func All() Filter {
	return FilterFunc(func(SyncInfo) bool { return true })
}

// And selects entries selected by every filter. An empty And selects all.
func And(filters ...Filter) Filter {
	return FilterFunc(func(info SyncInfo) bool {
		for _, f := range filters {
			if !f.Select(info) {
				return false
			}
		}
		return true
	})
}

// Or selects entries selected by at least one filter. An empty Or selects
// nothing.
func Or(filters ...Filter) Filter {
	return FilterFunc(func(info SyncInfo) bool {
		for _, f := range filters {
			if f.Select(info) {
				return true
			}
		}
		return false
	})
}

// Not inverts f.
func Not(f Filter) Filter {
	return FilterFunc(func(info SyncInfo) bool { return !f.Select(info) })
}

// DirectionFilter selects entries with one of the given directions.
func DirectionFilter(directions ...Direction) Filter {
	set := make(map[Direction]struct{}, len(directions))
	for _, d := range directions {
		set[d] = struct{}{}
	}
	return FilterFunc(func(info SyncInfo) bool {
		_, ok := set[info.Direction]
		return ok
	})
}

// ChangeFilter selects entries with one of the given change kinds.
func ChangeFilter(changes ...Change) Filter {
	set := make(map[Change]struct{}, len(changes))
	for _, c := range changes {
		set[c] = struct{}{}
	}
	return FilterFunc(func(info SyncInfo) bool {
		_, ok := set[info.Change]
		return ok
	})
}

// PathFilter selects entries matching at least one include pattern (all
// entries when include is empty) and no exclude pattern. Patterns use
// gitignore syntax, so "*.go" matches at any depth and "docs/**" matches a
// subtree.
func PathFilter(include, exclude []string) Filter {
	inc := parsePatterns(include)
	exc := parsePatterns(exclude)
	return FilterFunc(func(info SyncInfo) bool {
		segments := strings.Split(info.Path, "/")
		isDir := info.Type.IsContainer()
		if len(inc) > 0 && !matchAny(inc, segments, isDir) {
			return false
		}
		return !matchAny(exc, segments, isDir)
	})
}

func parsePatterns(patterns []string) []gitignore.Pattern {
	out := make([]gitignore.Pattern, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, gitignore.ParsePattern(p, nil))
	}
	return out
}

func matchAny(patterns []gitignore.Pattern, segments []string, isDir bool) bool {
	for _, p := range patterns {
		if p.Match(segments, isDir) == gitignore.Exclude {
			return true
		}
	}
	return false
}

// FilterSpec is the serializable form of a filter as found in
// configuration files.
type FilterSpec struct {
	Directions []string `yaml:"directions,omitempty" json:"directions,omitempty"`
	Changes    []string `yaml:"changes,omitempty" json:"changes,omitempty"`
	Include    []string `yaml:"include,omitempty" json:"include,omitempty"`
	Exclude    []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// Build converts s into a Filter. Unknown directions or changes are errors.
func (s FilterSpec) Build() (Filter, error) {
	var filters []Filter

	if len(s.Directions) > 0 {
		var directions []Direction
		for _, raw := range s.Directions {
			d, err := ParseDirection(raw)
			if err != nil {
				return nil, fmt.Errorf("filter: %w", err)
			}
			directions = append(directions, d)
		}
		filters = append(filters, DirectionFilter(directions...))
	}

	if len(s.Changes) > 0 {
		var changes []Change
		for _, raw := range s.Changes {
			c, err := ParseChange(raw)
			if err != nil {
				return nil, fmt.Errorf("filter: %w", err)
			}
			changes = append(changes, c)
		}
		filters = append(filters, ChangeFilter(changes...))
	}

	if len(s.Include) > 0 || len(s.Exclude) > 0 {
		filters = append(filters, PathFilter(s.Include, s.Exclude))
	}

	if len(filters) == 0 {
		return All(), nil
	}
	return And(filters...), nil
}
