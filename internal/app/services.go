package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"teamsync/internal/changeset"
	"teamsync/internal/coalescer"
	"teamsync/internal/config"
	"teamsync/internal/input"
	"teamsync/internal/jobs"
	"teamsync/internal/resolution"
	"teamsync/internal/resource"
	"teamsync/internal/scope"
	"teamsync/internal/subscriber/gitsub"
	"teamsync/internal/syncset"
	"teamsync/internal/telemetry"
	"teamsync/internal/watcher"
	"teamsync/pkg/logging"
)

// Version is reported as the service version of exported metrics.
var Version = "dev"

// Services holds all initialized services used by the application.
type Services struct {
	Config config.Config

	Jobs      *jobs.Manager
	Telemetry *telemetry.Provider
	Metrics   *coalescer.Metrics
	Storage   *config.Storage

	Subscriber   *gitsub.Subscriber
	Watcher      *watcher.Watcher
	Input        *input.Input
	Scope        *scope.Manager
	ScopeHandler *scope.EventHandler
	ChangeSets   *changeset.Collector
	Resolutions  *resolution.Generator

	// configFilter is the filter of the configuration file. The filtered
	// set applies it together with the scope.
	configFilter syncset.Filter

	cancelsMu sync.Mutex
	cancels   []func()
}

// shutdownTelemetry is replaced in tests.
var shutdownTelemetry = func(ctx context.Context, p *telemetry.Provider) error {
	return p.Shutdown(ctx)
}

// InitializeServices creates every service of the application. Nothing
// runs until Prepare or Run.
func InitializeServices(cfg *Config) (*Services, error) {
	tc := *cfg.Teamsync

	configFilter, err := tc.Filter.Build()
	if err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}

	provider, err := telemetry.NewProvider(
		telemetry.WithEnabled(tc.Metrics.Enabled),
		telemetry.WithServiceVersion(Version),
	)
	if err != nil {
		return nil, err
	}

	// undo releases what was created so far when a later step fails.
	var undo []func()
	ready := false
	defer func() {
		if ready {
			return
		}
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}()
	undo = append(undo, func() {
		if err := shutdownTelemetry(context.Background(), provider); err != nil {
			logging.Warn("Services", "Failed to shut down telemetry: %v", err)
		}
	})

	// Coalescer metrics are always kept in memory; they are exported only
	// when metrics are enabled.
	var metrics *coalescer.Metrics
	if provider.Enabled() {
		metrics, err = coalescer.NewMetrics(provider.MeterProvider())
	} else {
		metrics, err = coalescer.NewMetrics(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create coalescer metrics: %w", err)
	}

	sub, err := gitsub.Open(tc.Root, gitsub.WithExtraIgnores(tc.Ignore...))
	if err != nil {
		return nil, err
	}

	s := &Services{
		Config:       tc,
		Jobs:         jobs.NewManager(context.Background()),
		Telemetry:    provider,
		Metrics:      metrics,
		Subscriber:   sub,
		Scope:        scope.NewManager(sub.Root()),
		Resolutions:  resolution.NewGenerator(sub),
		configFilter: configFilter,
	}
	undo = append(undo, s.Jobs.Shutdown)
	if cfg.ConfigPath != "" {
		s.Storage = config.NewStorageWithPath(cfg.ConfigPath)
	} else {
		s.Storage = config.NewStorage()
	}

	coalescerOpts := []coalescer.Option{
		coalescer.WithJobManager(s.Jobs),
		coalescer.WithMetrics(metrics),
	}

	s.Watcher = watcher.New(sub.Root(),
		watcher.WithDebounce(tc.Debounce),
		watcher.WithIgnore(func(path string, isDir bool) bool {
			supervised, err := sub.IsSupervised(path)
			return err == nil && !supervised
		}),
	)

	// The cached git status is stale once the working tree changed, so it
	// is dropped before the input sees the delta.
	feed := resource.NewBroadcaster()
	s.addCancel(s.Watcher.Subscribe(func(d *resource.Delta) {
		sub.Invalidate()
		feed.Publish(d)
	}))

	s.Input, err = input.New(sub,
		input.WithName(filepath.Base(sub.Root())),
		input.WithFeed(feed),
		input.WithFilter(s.filter()),
		input.WithCoalescerOptions(coalescerOpts...),
	)
	if err != nil {
		return nil, err
	}
	undo = append(undo, s.Input.Dispose)

	s.ScopeHandler, err = scope.NewEventHandler(s.Scope, coalescerOpts...)
	if err != nil {
		return nil, err
	}
	undo = append(undo, s.ScopeHandler.Dispose)

	s.ChangeSets, err = changeset.New(s.Input.SubscriberSyncSet(), changeset.WithDefaultName(tc.ChangeSets.Default))
	if err != nil {
		return nil, err
	}

	s.addCancel(s.Scope.Subscribe(s.scopeChanged))
	s.addCancel(feed.Subscribe(s.refreshMappings))

	ready = true
	logging.Info("Services", "Following %s (%s)", sub.Root(), sub.Name())
	return s, nil
}

func (s *Services) addCancel(cancel func()) {
	s.cancelsMu.Lock()
	defer s.cancelsMu.Unlock()
	s.cancels = append(s.cancels, cancel)
}

// filter selects the entries of the filtered set: inside the scope and
// accepted by the configured filter.
func (s *Services) filter() syncset.Filter {
	inScope := syncset.FilterFunc(func(info syncset.SyncInfo) bool {
		return s.Scope.Contains(info.Path)
	})
	return syncset.And(inScope, s.configFilter)
}

// mappingsFor returns one mapping per scope path, or a single mapping of
// the whole working tree.
func mappingsFor(paths []string) []scope.Mapping {
	if len(paths) == 0 {
		return []scope.Mapping{{ID: "workspace", Path: "", Depth: scope.DepthInfinite}}
	}
	out := make([]scope.Mapping, 0, len(paths))
	for _, p := range paths {
		p = resource.Clean(filepath.ToSlash(p))
		out = append(out, scope.Mapping{ID: p, Path: p, Depth: scope.DepthInfinite})
	}
	return out
}

// scopeChanged re-applies the filter after the scope changed so the
// filtered set follows the new traversals.
func (s *Services) scopeChanged(event scope.ChangeEvent) {
	logging.Debug("Services", "Scope changed (+%d -%d traversals)", len(event.Added), len(event.Removed))
	s.Input.SetFilter(s.filter())
}

// refreshMappings re-resolves mappings whose path was created or deleted.
func (s *Services) refreshMappings(d *resource.Delta) {
	var stale []scope.Mapping
	for _, m := range s.Scope.Mappings() {
		if m.Path == "" {
			continue
		}
		if found := d.Find(m.Path); found != nil && (found.Kind != resource.Changed || found.Flags.Has(resource.FlagType)) {
			stale = append(stale, m)
		}
	}
	if len(stale) == 0 {
		return
	}
	if err := s.ScopeHandler.Refresh(context.Background(), stale...); err != nil && !errors.Is(err, coalescer.ErrDisposed) {
		logging.Error("Services", err, "Failed to queue scope refresh")
	}
}

func (s *Services) prepare(ctx context.Context, scopes []string) error {
	if err := s.ScopeHandler.RefreshAndWait(ctx, mappingsFor(scopes)...); err != nil {
		return fmt.Errorf("failed to resolve scope: %w", err)
	}
	if err := s.Input.Prepare(ctx); err != nil {
		return fmt.Errorf("failed to collect %s: %w", s.Subscriber.Root(), err)
	}
	if err := s.ChangeSets.Load(s.Storage, s.Config.ChangeSets.Name); err != nil {
		logging.Warn("Services", "Ignoring persisted change sets: %v", err)
	}
	return nil
}

func (s *Services) close(ctx context.Context) error {
	var errs []error

	s.cancelsMu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	s.cancelsMu.Unlock()

	if err := s.Watcher.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stopping watcher: %w", err))
	}
	if err := s.ChangeSets.Save(s.Storage, s.Config.ChangeSets.Name); err != nil {
		errs = append(errs, err)
	}
	s.ChangeSets.Dispose()
	s.ScopeHandler.Dispose()
	s.Input.Dispose()
	s.Jobs.Shutdown()
	if err := s.Telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down telemetry: %w", err))
	}
	return errors.Join(errs...)
}
