package syncset

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSet_UpdatePublishesOneRevision(t *testing.T) {
	s := NewSet("base")
	rec := &eventRecorder{}
	s.Subscribe(rec.listen)

	assert.Equal(t, uint64(0), s.Snapshot().Revision())

	ev := s.Update(func(b *Batch) {
		b.Put(outgoing("p/a"))
		b.Put(outgoing("p/b"))
		b.Put(incoming("q/c"))
	})
	require.NotNil(t, ev)
	assert.Equal(t, uint64(1), ev.Revision)
	assert.Equal(t, []string{"p/a", "p/b", "q/c"}, paths(ev.Added))

	snap := s.Snapshot()
	assert.Equal(t, uint64(1), snap.Revision())
	assert.Equal(t, 3, snap.Len())
	require.Len(t, rec.all(), 1)
}

func TestSet_EmptyBatchPublishesNothing(t *testing.T) {
	s := NewSet("base")
	rec := &eventRecorder{}
	s.Subscribe(rec.listen)

	assert.Nil(t, s.Update(func(*Batch) {}))
	assert.Nil(t, s.Update(func(b *Batch) { b.Remove("missing") }))
	assert.Nil(t, s.Update(func(b *Batch) { b.Clear() }))

	s.Update(func(b *Batch) { b.Put(outgoing("p/a")) })
	// Re-putting an identical entry is not a change.
	assert.Nil(t, s.Update(func(b *Batch) { b.Put(outgoing("p/a")) }))

	assert.Len(t, rec.all(), 1)
	assert.Equal(t, uint64(1), s.Snapshot().Revision())
}

func TestSet_ChangedAndRemoved(t *testing.T) {
	s := NewSet("base")
	s.Update(func(b *Batch) {
		b.Put(outgoing("p/a"))
		b.Put(outgoing("p/b"))
	})

	ev := s.Update(func(b *Batch) {
		b.Put(conflicting("p/a"))
		b.Remove("p/b")
	})
	require.NotNil(t, ev)
	assert.Equal(t, []string{"p/a"}, paths(ev.Changed))
	assert.Equal(t, Conflicting, ev.Changed[0].Direction)
	require.Len(t, ev.Removed, 1)
	assert.Equal(t, Outgoing, ev.Removed[0].Direction, "removed entries carry their old value")
}

func TestSet_PutInSyncRemoves(t *testing.T) {
	s := NewSet("base")
	s.Update(func(b *Batch) { b.Put(outgoing("p/a")) })

	ev := s.Update(func(b *Batch) { b.Put(SyncInfo{Path: "p/a", Direction: InSync}) })
	require.NotNil(t, ev)
	assert.Equal(t, []string{"p/a"}, paths(ev.Removed))
	assert.Equal(t, 0, s.Snapshot().Len())
}

func TestSet_RemoveAllChildren(t *testing.T) {
	s := NewSet("base")
	s.Update(func(b *Batch) {
		b.Put(outgoing("p"))
		b.Put(outgoing("p/a"))
		b.Put(outgoing("p/sub/b"))
		b.Put(outgoing("p-other/c"))
		b.Put(outgoing("q/d"))
	})

	ev := s.Update(func(b *Batch) {
		b.Put(outgoing("p/staged"))
		b.RemoveAllChildren("p")
	})
	require.NotNil(t, ev)
	assert.Equal(t, []string{"p", "p/a", "p/sub/b"}, paths(ev.Removed))
	assert.Empty(t, ev.Added, "entries staged under the scope are dropped too")

	assert.Equal(t, []string{"p-other/c", "q/d"}, paths(s.Snapshot().All()))
	assert.False(t, s.Snapshot().HasOutOfSync("p"))
}

func TestSet_ClearThenPutIsReset(t *testing.T) {
	s := NewSet("base")
	s.Update(func(b *Batch) {
		b.Put(outgoing("p/a"))
		b.Put(outgoing("p/b"))
	})

	ev := s.Update(func(b *Batch) {
		b.Clear()
		b.Put(outgoing("p/b"))
		b.Put(outgoing("p/c"))
	})
	require.NotNil(t, ev)
	assert.True(t, ev.Reset)
	assert.Equal(t, []string{"p/c"}, paths(ev.Added))
	assert.Equal(t, []string{"p/a"}, paths(ev.Removed))
	assert.Empty(t, ev.Changed)
}

func TestBatch_GetSeesStagedChanges(t *testing.T) {
	s := NewSet("base")
	s.Update(func(b *Batch) { b.Put(outgoing("p/a")) })

	s.Update(func(b *Batch) {
		_, ok := b.Get("p/a")
		assert.True(t, ok)

		b.Remove("p/a")
		_, ok = b.Get("p/a")
		assert.False(t, ok)

		b.Put(incoming("p/n"))
		got, ok := b.Get("p/n")
		assert.True(t, ok)
		assert.Equal(t, Incoming, got.Direction)

		b.Clear()
		_, ok = b.Get("p/n")
		assert.False(t, ok)
	})
}

func TestSnapshot_Queries(t *testing.T) {
	s := NewSet("base")
	s.Update(func(b *Batch) {
		b.Put(outgoing("p/a"))
		b.Put(incoming("p/sub/b"))
		b.Put(conflicting("q/c"))
		b.Put(outgoing("p-x/d"))
	})
	snap := s.Snapshot()

	assert.Equal(t, []string{"p/a", "p/sub/b"}, paths(snap.Members("p")))
	assert.Equal(t, []string{"p/sub/b"}, paths(snap.Members("p/sub")))
	assert.Len(t, snap.Members(""), 4)
	assert.True(t, snap.HasOutOfSync("q"))
	assert.False(t, snap.HasOutOfSync("r"))
	assert.True(t, snap.Contains("q/c"))

	counts := snap.CountByDirection()
	assert.Equal(t, 2, counts[Outgoing])
	assert.Equal(t, 1, counts[Incoming])
	assert.Equal(t, 1, counts[Conflicting])
}

func TestSet_SnapshotsAreImmutable(t *testing.T) {
	s := NewSet("base")
	s.Update(func(b *Batch) { b.Put(outgoing("p/a")) })
	old := s.Snapshot()

	s.Update(func(b *Batch) { b.RemoveAllChildren("") })

	assert.Equal(t, 1, old.Len())
	assert.Equal(t, 0, s.Snapshot().Len())
	assert.Equal(t, uint64(2), s.Snapshot().Revision())
}

func TestSet_ConcurrentReadersSeeWholeRevisions(t *testing.T) {
	s := NewSet("base")
	stop := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := s.Snapshot()
				// Every revision holds either both entries or none.
				n := snap.Len()
				assert.True(t, n == 0 || n == 2, "partial revision with %d entries", n)
			}
		}()
	}

	for i := 0; i < 200; i++ {
		s.Update(func(b *Batch) {
			b.Put(outgoing("p/a"))
			b.Put(outgoing("p/b"))
		})
		s.Update(func(b *Batch) { b.Clear() })
	}
	close(stop)
	wg.Wait()
}

func TestSet_SubscribeCancel(t *testing.T) {
	s := NewSet("base")
	rec := &eventRecorder{}
	cancel := s.Subscribe(rec.listen)
	cancel()
	cancel()

	s.Update(func(b *Batch) { b.Put(outgoing("p/a")) })
	assert.Empty(t, rec.all())
}

func TestSyncInfo_Encoding(t *testing.T) {
	info := outgoing("p/a.go")
	assert.Equal(t, "outgoing modification", info.Label())
	assert.Equal(t, "p/a.go (outgoing modification)", info.String())

	data, err := json.Marshal(info)
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"p/a.go","type":"file","direction":"outgoing","change":"modification"}`, string(data))

	var decoded SyncInfo
	require.NoError(t, yaml.Unmarshal([]byte("path: x\ntype: folder\ndirection: conflicting\nchange: deletion\n"), &decoded))
	assert.Equal(t, Conflicting, decoded.Direction)
	assert.Equal(t, Deletion, decoded.Change)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}
