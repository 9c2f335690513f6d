package resource

import (
	"fmt"
	"strings"
)

// Type is the kind of node a resource is in the workspace tree.
type Type int

const (
	// File is a regular file.
	File Type = iota + 1
	// Folder is a directory below a project.
	Folder
	// Project is a directory directly below the workspace root.
	Project
	// Root is the workspace root itself.
	Root
)

// String returns the string representation of the type.
func (t Type) String() string {
	switch t {
	case File:
		return "file"
	case Folder:
		return "folder"
	case Project:
		return "project"
	case Root:
		return "root"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	for _, candidate := range []Type{File, Folder, Project, Root} {
		if candidate.String() == string(text) {
			*t = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown resource type %q", text)
}

// IsContainer reports whether resources of this type can have children.
func (t Type) IsContainer() bool {
	return t == Folder || t == Project || t == Root
}

// Kind is the kind of change a delta node describes.
type Kind int

const (
	// Added means the resource did not exist before the change.
	Added Kind = iota + 1
	// Removed means the resource no longer exists.
	Removed
	// Changed means the resource exists before and after the change.
	Changed
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Changed:
		return "changed"
	default:
		return "unknown"
	}
}

// Flags qualify a Changed delta.
type Flags uint32

const (
	// FlagContent means the resource's contents changed.
	FlagContent Flags = 1 << iota
	// FlagOpen means a project was opened or closed.
	FlagOpen
	// FlagType means the resource was replaced by one of a different type,
	// for example a file replaced by a folder of the same name.
	FlagType
	// FlagMoved means the resource was moved from or to another path.
	FlagMoved
)

// Has reports whether all bits of other are set.
func (f Flags) Has(other Flags) bool {
	return f&other == other && other != 0
}

// Any reports whether at least one bit of other is set.
func (f Flags) Any(other Flags) bool {
	return f&other != 0
}

// String returns the flags joined by "|".
func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	if f.Has(FlagContent) {
		parts = append(parts, "content")
	}
	if f.Has(FlagOpen) {
		parts = append(parts, "open")
	}
	if f.Has(FlagType) {
		parts = append(parts, "type")
	}
	if f.Has(FlagMoved) {
		parts = append(parts, "moved")
	}
	return strings.Join(parts, "|")
}

// Delta is one node of a hierarchical change notification. Paths are slash
// separated and relative to the workspace root; the root is "".
type Delta struct {
	Path     string
	Type     Type
	Kind     Kind
	Flags    Flags
	Children []*Delta
}

// AffectedChildren returns the child deltas.
func (d *Delta) AffectedChildren() []*Delta {
	if d == nil {
		return nil
	}
	return d.Children
}

// Walk visits d and its descendants depth-first. When fn returns false the
// children of that node are skipped.
func (d *Delta) Walk(fn func(*Delta) bool) {
	if d == nil {
		return
	}
	if !fn(d) {
		return
	}
	for _, child := range d.Children {
		child.Walk(fn)
	}
}

// Find returns the node for path, or nil.
func (d *Delta) Find(path string) *Delta {
	var found *Delta
	d.Walk(func(n *Delta) bool {
		if found != nil {
			return false
		}
		if n.Path == path {
			found = n
			return false
		}
		return Contains(n.Path, path)
	})
	return found
}

// Len returns the number of nodes in the tree.
func (d *Delta) Len() int {
	n := 0
	d.Walk(func(*Delta) bool {
		n++
		return true
	})
	return n
}

// Listener receives delta trees from a Feed.
type Listener func(*Delta)

// Feed delivers resource deltas to subscribers.
type Feed interface {
	// Subscribe registers l and returns a function that removes it.
	Subscribe(l Listener) (cancel func())
}
