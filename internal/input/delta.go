package input

import (
	"teamsync/internal/resource"
	"teamsync/internal/subscriber"
	"teamsync/pkg/logging"
)

type requestKind int

const (
	requestChange requestKind = iota + 1
	requestRemoveAll
	requestCollect
	requestReset
)

func (k requestKind) String() string {
	switch k {
	case requestChange:
		return "change"
	case requestRemoveAll:
		return "remove-all"
	case requestCollect:
		return "collect"
	case requestReset:
		return "reset"
	default:
		return "unknown"
	}
}

// request is one reconciler operation on a path. Reset ignores the path.
type request struct {
	kind requestKind
	path string
}

// structural reports whether r replaces state below its path.
func (r request) structural() bool {
	return r.kind != requestChange
}

// covers reports whether the structural request r affects path.
func (r request) covers(path string) bool {
	return r.kind == requestReset || resource.Contains(r.path, path)
}

// supervisor is the part of a subscriber that delta translation consults.
type supervisor interface {
	IsSupervised(path string) (bool, error)
}

// translateDelta walks d depth-first and returns the requests that bring
// a sync set in line with it.
func translateDelta(d *resource.Delta, sup supervisor) []request {
	var out []request
	d.Walk(func(n *resource.Delta) bool {
		if n.Type == resource.Project {
			if n.Kind == resource.Removed {
				out = append(out, request{kind: requestRemoveAll, path: n.Path})
				return false
			}
			ok, err := sup.IsSupervised(n.Path)
			if err != nil {
				logging.Warn("SubscriberInput", "Cannot tell whether %s is supervised, skipping its changes: %v", n.Path, err)
				return false
			}
			if !ok {
				out = append(out, request{kind: requestRemoveAll, path: n.Path})
				return false
			}
		}

		if n.Flags.Has(resource.FlagType) {
			out = append(out,
				request{kind: requestRemoveAll, path: n.Path},
				request{kind: requestCollect, path: n.Path},
			)
			return false
		}

		// A container that appears or disappears without reported children
		// has to be listed to learn what it held.
		if n.Type != resource.Root && n.Type.IsContainer() &&
			(n.Kind == resource.Added || n.Kind == resource.Removed) && len(n.Children) == 0 {
			out = append(out, request{kind: requestCollect, path: n.Path})
			return false
		}

		if n.Flags.Any(resource.FlagContent|resource.FlagOpen) ||
			n.Kind == resource.Added || n.Kind == resource.Removed {
			out = append(out, request{kind: requestChange, path: n.Path})
		}
		return true
	})
	return out
}

// translateTeamDeltas maps team deltas to requests.
func translateTeamDeltas(deltas []subscriber.TeamDelta) []request {
	out := make([]request, 0, len(deltas))
	for _, d := range deltas {
		switch d.Flag {
		case subscriber.SyncChanged:
			out = append(out, request{kind: requestChange, path: d.Path})
		case subscriber.ProviderDeconfigured:
			out = append(out, request{kind: requestRemoveAll, path: d.Path})
		case subscriber.ProviderConfigured:
			out = append(out, request{kind: requestCollect, path: d.Path})
		case subscriber.IgnoresChanged:
			out = append(out, request{kind: requestReset})
		default:
			logging.Debug("SubscriberInput", "Ignoring team delta %s for %s", d.Flag, d.Path)
		}
	}
	return out
}

// compact drops change requests that repeat an earlier change of the same
// path, unless a structural request covering the path came in between.
func compact(requests []request) []request {
	out := make([]request, 0, len(requests))
	changed := make(map[string]struct{})
	for _, r := range requests {
		if r.structural() {
			for p := range changed {
				if r.covers(p) {
					delete(changed, p)
				}
			}
			out = append(out, r)
			continue
		}
		if _, ok := changed[r.path]; ok {
			continue
		}
		changed[r.path] = struct{}{}
		out = append(out, r)
	}
	return out
}
