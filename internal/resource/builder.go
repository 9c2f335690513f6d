package resource

import (
	"sort"
)

// Record is a flat change observation for a single path.
type Record struct {
	Path  string
	Type  Type
	Kind  Kind
	Flags Flags
}

// Builder assembles delta trees from flat records. Records for the same
// path are merged; ancestors that have no record of their own appear as
// Changed nodes without flags.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	records map[string]*Record
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{records: make(map[string]*Record)}
}

// Add merges r into the builder.
func (b *Builder) Add(r Record) {
	r.Path = Clean(r.Path)
	if r.Type == Folder || r.Type == Project {
		r.Type = TypeFor(r.Path, true)
	}

	existing, ok := b.records[r.Path]
	if !ok {
		rec := r
		b.records[r.Path] = &rec
		return
	}

	switch {
	case existing.Kind == Added && r.Kind == Removed:
		// Created and deleted inside one window: never visible.
		delete(b.records, r.Path)

	case existing.Kind == Removed && r.Kind == Added:
		flags := existing.Flags | r.Flags | FlagContent
		if existing.Type != r.Type {
			flags |= FlagType
		}
		existing.Kind = Changed
		existing.Type = r.Type
		existing.Flags = flags

	case r.Kind == Removed:
		existing.Kind = Removed
		existing.Type = r.Type
		existing.Flags = r.Flags

	case existing.Kind == Added:
		// Changes to something that was just added stay an addition.
		existing.Type = r.Type

	default:
		existing.Flags |= r.Flags
		if existing.Type != r.Type {
			existing.Flags |= FlagType | FlagContent
			existing.Type = r.Type
		}
	}
}

// Empty reports whether no records are pending.
func (b *Builder) Empty() bool {
	return len(b.records) == 0
}

// Build returns the delta tree rooted at the workspace root, or nil when no
// records were added. The builder is reset afterwards.
func (b *Builder) Build() *Delta {
	if len(b.records) == 0 {
		return nil
	}

	root := &Delta{Path: "", Type: Root, Kind: Changed}
	index := map[string]*Delta{"": root}

	var ensure func(p string) *Delta
	ensure = func(p string) *Delta {
		if node, ok := index[p]; ok {
			return node
		}
		parent := ensure(Parent(p))
		node := &Delta{Path: p, Type: TypeFor(p, true), Kind: Changed}
		parent.Children = append(parent.Children, node)
		index[p] = node
		return node
	}

	paths := make([]string, 0, len(b.records))
	for p := range b.records {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		rec := b.records[p]
		node := ensure(p)
		node.Type = rec.Type
		node.Kind = rec.Kind
		node.Flags = rec.Flags
	}

	root.Walk(func(d *Delta) bool {
		sort.Slice(d.Children, func(i, j int) bool {
			return d.Children[i].Path < d.Children[j].Path
		})
		return true
	})

	b.records = make(map[string]*Record)
	return root
}
