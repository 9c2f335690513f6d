package syncset

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expectedFiltered computes {e in parent | filter(e)}.
func expectedFiltered(parent *Set, f Filter) []string {
	out := []string{}
	for _, info := range parent.Snapshot().All() {
		if f.Select(info) {
			out = append(out, info.Path)
		}
	}
	sort.Strings(out)
	return out
}

func TestFilteredSet_FollowsParent(t *testing.T) {
	base := NewSet("base")
	base.Update(func(b *Batch) {
		b.Put(outgoing("p/a"))
		b.Put(incoming("p/b"))
	})

	fs := NewFilteredSet("outgoing", base, DirectionFilter(Outgoing))
	assert.Equal(t, []string{"p/a"}, paths(fs.Snapshot().All()))

	rec := &eventRecorder{}
	fs.Subscribe(rec.listen)

	base.Update(func(b *Batch) {
		b.Put(outgoing("p/c"))
		b.Put(incoming("p/d"))
	})
	assert.Equal(t, []string{"p/a", "p/c"}, paths(fs.Snapshot().All()))

	// An entry changing direction leaves the filtered set.
	base.Update(func(b *Batch) { b.Put(incoming("p/a")) })
	assert.Equal(t, []string{"p/c"}, paths(fs.Snapshot().All()))

	// Changes the filter rejects do not produce events.
	base.Update(func(b *Batch) { b.Put(incoming("p/e")) })

	events := rec.all()
	require.Len(t, events, 2)
	assert.Equal(t, []string{"p/c"}, paths(events[0].Added))
	assert.Equal(t, []string{"p/a"}, paths(events[1].Removed))
}

func TestFilteredSet_RemoveAllChildren(t *testing.T) {
	base := NewSet("base")
	fs := NewFilteredSet("all", base, nil)

	base.Update(func(b *Batch) {
		b.Put(outgoing("p/a"))
		b.Put(outgoing("p/sub/b"))
		b.Put(outgoing("q/c"))
	})
	base.Update(func(b *Batch) { b.RemoveAllChildren("p") })

	assert.Empty(t, fs.Snapshot().Members("p"))
	assert.Equal(t, []string{"q/c"}, paths(fs.Snapshot().All()))
}

func TestFilteredSet_SetFilterRecomputes(t *testing.T) {
	base := NewSet("base")
	base.Update(func(b *Batch) {
		b.Put(outgoing("p/a"))
		b.Put(incoming("p/b"))
		b.Put(conflicting("p/c"))
	})

	fs := NewFilteredSet("view", base, DirectionFilter(Outgoing))
	rec := &eventRecorder{}
	fs.Subscribe(rec.listen)

	fs.SetFilter(DirectionFilter(Incoming, Conflicting))
	assert.Equal(t, []string{"p/b", "p/c"}, paths(fs.Snapshot().All()))

	events := rec.all()
	require.Len(t, events, 1)
	assert.True(t, events[0].Reset)
	assert.Equal(t, []string{"p/b", "p/c"}, paths(events[0].Added))
	assert.Equal(t, []string{"p/a"}, paths(events[0].Removed))

	fs.SetFilter(nil)
	assert.Equal(t, 3, fs.Snapshot().Len())
}

func TestFilteredSet_ParentReset(t *testing.T) {
	base := NewSet("base")
	base.Update(func(b *Batch) { b.Put(outgoing("p/a")) })
	fs := NewFilteredSet("view", base, nil)

	base.Update(func(b *Batch) {
		b.Clear()
		b.Put(outgoing("q/z"))
	})
	assert.Equal(t, []string{"q/z"}, paths(fs.Snapshot().All()))
}

func TestFilteredSet_Disconnect(t *testing.T) {
	base := NewSet("base")
	fs := NewFilteredSet("view", base, nil)
	fs.Disconnect()
	fs.Disconnect()

	base.Update(func(b *Batch) { b.Put(outgoing("p/a")) })
	assert.Equal(t, 0, fs.Snapshot().Len())
}

func TestFilteredSet_MatchesParentAfterRandomUpdates(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := NewSet("base")
	filter := Or(DirectionFilter(Conflicting), PathFilter([]string{"keep/**"}, nil))
	fs := NewFilteredSet("view", base, filter)

	directions := []Direction{InSync, Outgoing, Incoming, Conflicting}
	scopes := []string{"keep", "drop", "keep/deep", "drop/deep"}

	for round := 0; round < 300; round++ {
		base.Update(func(b *Batch) {
			for i := 0; i < 1+rng.Intn(4); i++ {
				scope := scopes[rng.Intn(len(scopes))]
				path := fmt.Sprintf("%s/f%d", scope, rng.Intn(6))
				switch rng.Intn(6) {
				case 0:
					b.Remove(path)
				case 1:
					b.RemoveAllChildren(scope)
				default:
					b.Put(SyncInfo{Path: path, Direction: directions[rng.Intn(len(directions))], Change: Modification})
				}
			}
		})
		if round%50 == 49 {
			filter = DirectionFilter(directions[rng.Intn(len(directions))])
			fs.SetFilter(filter)
		}

		require.Equal(t, expectedFiltered(base, filter), paths(fs.Snapshot().All()), "round %d", round)
	}
}
