package coalescer

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"teamsync/internal/jobs"
)

const (
	kindRefresh EventKind = iota + 1
	kindGate
	kindFail
	kindPanic
)

// setProcessor unions string payloads into a set and records every
// dispatched aggregate.
type setProcessor struct {
	mu sync.Mutex

	toRefresh  map[string]struct{}
	processed  []Event
	dispatched [][]string

	// gate blocks ProcessEvent for kindGate events until closed
	gate chan struct{}
	// gateEntered is closed when a kindGate event starts processing
	gateEntered chan struct{}

	dispatchErr error
}

func newSetProcessor() *setProcessor {
	return &setProcessor{
		toRefresh:   make(map[string]struct{}),
		gate:        make(chan struct{}),
		gateEntered: make(chan struct{}),
	}
}

func (p *setProcessor) ProcessEvent(ctx context.Context, event Event) error {
	p.mu.Lock()
	p.processed = append(p.processed, event)
	p.mu.Unlock()

	switch event.Kind {
	case kindGate:
		close(p.gateEntered)
		select {
		case <-p.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	case kindFail:
		return errProcess
	case kindPanic:
		panic("processor exploded")
	}

	names, _ := event.Payload.([]string)
	p.mu.Lock()
	for _, n := range names {
		p.toRefresh[n] = struct{}{}
	}
	p.mu.Unlock()
	return nil
}

func (p *setProcessor) DispatchEvents(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	batch := make([]string, 0, len(p.toRefresh))
	for n := range p.toRefresh {
		batch = append(batch, n)
	}
	sort.Strings(batch)
	p.toRefresh = make(map[string]struct{})

	if len(batch) > 0 {
		p.dispatched = append(p.dispatched, batch)
	}
	if p.dispatchErr != nil {
		return false, p.dispatchErr
	}
	return len(batch) > 0, nil
}

func (p *setProcessor) Dispatched() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]string, len(p.dispatched))
	copy(out, p.dispatched)
	return out
}

func (p *setProcessor) setDispatchErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dispatchErr = err
}

type testFamily struct{ name string }

func newTestCoalescer(t *testing.T, p Processor) (*Coalescer, *Metrics) {
	t.Helper()

	m := jobs.NewManager(context.Background())
	t.Cleanup(m.Shutdown)

	metrics, err := NewMetrics(nil)
	require.NoError(t, err)

	c, err := New("test-handler", &testFamily{name: t.Name()}, p, WithJobManager(m), WithMetrics(metrics))
	require.NoError(t, err)
	t.Cleanup(c.Dispose)
	return c, metrics
}

func refresh(names ...string) Event {
	return Event{Kind: kindRefresh, Payload: names}
}
