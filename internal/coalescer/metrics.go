package coalescer

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"teamsync/pkg/logging"
)

// MeterName is the instrumentation scope used for coalescer metrics.
const MeterName = "teamsync/coalescer"

// Metrics tracks pass statistics per coalescer.
//
// Counters are always kept in memory so the CLI can print a summary. When
// created with a MeterProvider the same values are also exported as
// OpenTelemetry instruments.
type Metrics struct {
	mu sync.RWMutex

	handlers map[string]*handlerMetrics

	queued   metric.Int64Counter
	passes   metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

// handlerMetrics holds the counters of a single coalescer.
type handlerMetrics struct {
	EventsQueued  int64
	EventsDrained int64
	Passes        int64
	PassesWorked  int64
	Failures      int64
	LastPassAt    time.Time
	LastFailureAt time.Time
	LastDuration  time.Duration
}

// NewMetrics creates a Metrics instance. A nil provider keeps the metrics
// in memory only.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	m := &Metrics{
		handlers: make(map[string]*handlerMetrics),
	}
	if provider == nil {
		return m, nil
	}

	meter := provider.Meter(MeterName)

	var err error
	m.queued, err = meter.Int64Counter(
		"teamsync_coalescer_events_queued_total",
		metric.WithDescription("Number of events queued on a coalescer"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	m.passes, err = meter.Int64Counter(
		"teamsync_coalescer_passes_total",
		metric.WithDescription("Number of background passes run by a coalescer"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return nil, err
	}

	m.failures, err = meter.Int64Counter(
		"teamsync_coalescer_pass_failures_total",
		metric.WithDescription("Number of background passes that failed"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return nil, err
	}

	m.duration, err = meter.Float64Histogram(
		"teamsync_coalescer_pass_duration_seconds",
		metric.WithDescription("Duration of background passes in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) getOrCreate(handler string) *handlerMetrics {
	if hm, ok := m.handlers[handler]; ok {
		return hm
	}
	hm := &handlerMetrics{}
	m.handlers[handler] = hm
	return hm
}

// RecordQueued records one event queued on handler.
func (m *Metrics) RecordQueued(ctx context.Context, handler string) {
	m.mu.Lock()
	m.getOrCreate(handler).EventsQueued++
	m.mu.Unlock()

	if m.queued != nil {
		m.queued.Add(ctx, 1, metric.WithAttributes(attribute.String("handler", handler)))
	}
}

// RecordPass records a completed pass.
func (m *Metrics) RecordPass(ctx context.Context, handler string, drained int, worked bool, d time.Duration, err error) {
	now := time.Now()

	m.mu.Lock()
	hm := m.getOrCreate(handler)
	hm.Passes++
	hm.EventsDrained += int64(drained)
	hm.LastPassAt = now
	hm.LastDuration = d
	if worked {
		hm.PassesWorked++
	}
	if err != nil {
		hm.Failures++
		hm.LastFailureAt = now
	}
	failures := hm.Failures
	m.mu.Unlock()

	if err != nil {
		logging.Debug("CoalescerMetrics", "Pass failure for %s (failures: %d)", handler, failures)
	}

	if m.passes == nil {
		return
	}

	// The pass context may already be cancelled; metric export must not
	// depend on it.
	ctx = context.WithoutCancel(ctx)
	attrs := metric.WithAttributes(
		attribute.String("handler", handler),
		attribute.Bool("worked", worked),
	)
	m.passes.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("handler", handler)))
	if err != nil {
		m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("handler", handler)))
	}
}

// HandlerMetricView is a read-only view of one coalescer's metrics.
type HandlerMetricView struct {
	Handler       string        `json:"handler" yaml:"handler"`
	EventsQueued  int64         `json:"events_queued" yaml:"eventsQueued"`
	EventsDrained int64         `json:"events_drained" yaml:"eventsDrained"`
	Passes        int64         `json:"passes" yaml:"passes"`
	PassesWorked  int64         `json:"passes_worked" yaml:"passesWorked"`
	Failures      int64         `json:"failures" yaml:"failures"`
	LastPassAt    time.Time     `json:"last_pass_at,omitempty" yaml:"lastPassAt,omitempty"`
	LastFailureAt time.Time     `json:"last_failure_at,omitempty" yaml:"lastFailureAt,omitempty"`
	LastDuration  time.Duration `json:"last_duration" yaml:"lastDuration"`
}

// Snapshot returns the metrics of handler.
func (m *Metrics) Snapshot(handler string) (HandlerMetricView, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hm, ok := m.handlers[handler]
	if !ok {
		return HandlerMetricView{Handler: handler}, false
	}
	return HandlerMetricView{
		Handler:       handler,
		EventsQueued:  hm.EventsQueued,
		EventsDrained: hm.EventsDrained,
		Passes:        hm.Passes,
		PassesWorked:  hm.PassesWorked,
		Failures:      hm.Failures,
		LastPassAt:    hm.LastPassAt,
		LastFailureAt: hm.LastFailureAt,
		LastDuration:  hm.LastDuration,
	}, true
}

// All returns the metrics of every handler sorted by name.
func (m *Metrics) All() []HandlerMetricView {
	m.mu.RLock()
	names := make([]string, 0, len(m.handlers))
	for name := range m.handlers {
		names = append(names, name)
	}
	m.mu.RUnlock()
	sort.Strings(names)

	out := make([]HandlerMetricView, 0, len(names))
	for _, name := range names {
		if view, ok := m.Snapshot(name); ok {
			out = append(out, view)
		}
	}
	return out
}

// Global metrics instance used when a coalescer is created without
// WithMetrics. Access it through GetMetrics.
var (
	globalMetrics     *Metrics
	globalMetricsOnce sync.Once
)

// GetMetrics returns the global, in-memory only, metrics instance.
func GetMetrics() *Metrics {
	globalMetricsOnce.Do(func() {
		globalMetrics, _ = NewMetrics(nil)
	})
	return globalMetrics
}
