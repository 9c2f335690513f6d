package formatting

import (
	"teamsync/internal/changeset"
	"teamsync/internal/resource"
	"teamsync/internal/syncset"
)

// EntryView is one rendered sync-set entry.
type EntryView struct {
	Path      string            `json:"path" yaml:"path"`
	Type      resource.Type     `json:"type" yaml:"type"`
	Direction syncset.Direction `json:"direction" yaml:"direction"`
	Change    syncset.Change    `json:"change" yaml:"change"`
	ChangeSet string            `json:"changeSet,omitempty" yaml:"changeSet,omitempty"`
}

// SyncSetView is the rendered form of a sync-set snapshot.
type SyncSetView struct {
	Name     string         `json:"name" yaml:"name"`
	Revision uint64         `json:"revision" yaml:"revision"`
	Counts   map[string]int `json:"counts" yaml:"counts"`
	Entries  []EntryView    `json:"entries" yaml:"entries"`
}

// NewSyncSetView builds the view of snap. When sets is not nil every entry
// names the change set holding it.
func NewSyncSetView(name string, snap *syncset.Snapshot, sets *changeset.Collector) SyncSetView {
	view := SyncSetView{
		Name:     name,
		Revision: snap.Revision(),
		Counts:   make(map[string]int),
		Entries:  []EntryView{},
	}
	for dir, n := range snap.CountByDirection() {
		view.Counts[dir.String()] = n
	}
	for _, info := range snap.All() {
		entry := EntryView{
			Path:      info.Path,
			Type:      info.Type,
			Direction: info.Direction,
			Change:    info.Change,
		}
		if sets != nil {
			if cs := sets.SetFor(info.Path); cs != nil {
				entry.ChangeSet = cs.Name()
			}
		}
		view.Entries = append(view.Entries, entry)
	}
	return view
}

// ChangeSetView is one rendered change set.
type ChangeSetView struct {
	Name    string   `json:"name" yaml:"name"`
	Comment string   `json:"comment,omitempty" yaml:"comment,omitempty"`
	Default bool     `json:"default" yaml:"default"`
	Paths   []string `json:"paths" yaml:"paths"`
}

// NewChangeSetViews builds the views of every set of c.
func NewChangeSetViews(c *changeset.Collector) []ChangeSetView {
	def := c.Default()
	views := []ChangeSetView{}
	for _, cs := range c.Sets() {
		views = append(views, ChangeSetView{
			Name:    cs.Name(),
			Comment: cs.Comment(),
			Default: cs == def,
			Paths:   cs.Paths(),
		})
	}
	return views
}
