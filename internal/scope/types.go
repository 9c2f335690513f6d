package scope

import (
	"context"
	"fmt"

	"teamsync/internal/resource"
)

// Depth is how far below its root a traversal reaches.
type Depth int

const (
	// DepthZero covers the root resource only.
	DepthZero Depth = iota
	// DepthOne covers the root and its direct children.
	DepthOne
	// DepthInfinite covers the whole subtree.
	DepthInfinite
)

// String returns the string representation of the depth.
func (d Depth) String() string {
	switch d {
	case DepthZero:
		return "zero"
	case DepthOne:
		return "one"
	case DepthInfinite:
		return "infinite"
	default:
		return fmt.Sprintf("depth(%d)", int(d))
	}
}

// Mapping names a piece of the workspace an operation applies to. Mappings
// are compared by value.
type Mapping struct {
	ID    string
	Path  string
	Depth Depth
}

// String returns the mapping in id(path,depth) form.
func (m Mapping) String() string {
	return fmt.Sprintf("%s(%s,%s)", m.ID, m.Path, m.Depth)
}

// Traversal is a set of resources a mapping resolves to.
type Traversal struct {
	Root  string
	Depth Depth
}

// Covers reports whether path is part of the traversal.
func (t Traversal) Covers(path string) bool {
	switch t.Depth {
	case DepthZero:
		return path == t.Root
	case DepthOne:
		return path == t.Root || resource.Parent(path) == t.Root
	default:
		return resource.Contains(t.Root, path)
	}
}

// Refresher recomputes the traversals of mappings.
type Refresher interface {
	Refresh(ctx context.Context, mappings []Mapping) error
}

// ChangeEvent lists the traversals a refresh added to or removed from the
// scope.
type ChangeEvent struct {
	Added   []Traversal
	Removed []Traversal
}

// Listener receives scope change events.
type Listener func(ChangeEvent)
