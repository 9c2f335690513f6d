package resolution

import (
	"context"
	"fmt"

	"teamsync/internal/syncset"
)

// Resolver applies resolutions to single resources. The git subscriber
// implements it.
type Resolver interface {
	// Stage records the local change of path in the index.
	Stage(ctx context.Context, path string) error
	// Restore discards the local change of path.
	Restore(ctx context.Context, path string) error
}

// Action names a kind of resolution.
type Action string

const (
	ActionStage   Action = "stage"
	ActionRestore Action = "restore"
)

// ParseAction parses an action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionStage, ActionRestore:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q (valid: %s, %s)", s, ActionStage, ActionRestore)
}

// Resolution is one way of bringing an entry back in sync.
type Resolution struct {
	Action Action
	Label  string
	Run    Operation
}

// Generator offers the resolutions that apply to a sync-set entry.
type Generator struct {
	resolver Resolver
}

// NewGenerator creates a generator backed by r.
func NewGenerator(r Resolver) *Generator {
	return &Generator{resolver: r}
}

// Resolutions returns the resolutions for info. Outgoing changes can be
// staged or restored; conflicts can only be restored locally. Entries
// without a local change have none.
func (g *Generator) Resolutions(info syncset.SyncInfo) []Resolution {
	var out []Resolution
	switch info.Direction {
	case syncset.Outgoing:
		out = append(out, g.stage(info), g.restore(info))
	case syncset.Conflicting:
		out = append(out, g.restore(info))
	}
	return out
}

// Find returns the resolution for action, or false when it does not apply
// to info.
func (g *Generator) Find(info syncset.SyncInfo, action Action) (Resolution, bool) {
	for _, r := range g.Resolutions(info) {
		if r.Action == action {
			return r, true
		}
	}
	return Resolution{}, false
}

func (g *Generator) stage(info syncset.SyncInfo) Resolution {
	label := fmt.Sprintf("Stage %s %s", info.Change, info.Path)
	return Resolution{
		Action: ActionStage,
		Label:  label,
		Run:    g.single(label, info.Path, g.resolver.Stage),
	}
}

func (g *Generator) restore(info syncset.SyncInfo) Resolution {
	label := fmt.Sprintf("Restore %s", info.Path)
	return Resolution{
		Action: ActionRestore,
		Label:  label,
		Run:    g.single(label, info.Path, g.resolver.Restore),
	}
}

func (g *Generator) single(label, path string, fn func(context.Context, string) error) Operation {
	return func(ctx context.Context, progress Progress) error {
		progress.Begin(label, 1)
		defer progress.Done()
		if err := fn(ctx, path); err != nil {
			return err
		}
		progress.Worked(1)
		return nil
	}
}
