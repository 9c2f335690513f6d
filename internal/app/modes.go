package app

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"teamsync/pkg/logging"
)

// runWatch keeps the sync sets current until ctx is done.
//
// Behavior:
//   - The filesystem watcher feeds resource deltas to the input
//   - The repository metadata watch reports commits, checkouts and
//     .gitignore edits
//   - The metrics endpoint is served when metrics are enabled
//
// The first failure of any of them stops the others.
func runWatch(ctx context.Context, s *Services) error {
	g, ctx := errgroup.WithContext(ctx)

	if err := s.Watcher.Start(ctx); err != nil {
		return err
	}

	// Changes made between the initial collect and Start produced no
	// filesystem events. A reset picks them up; it publishes nothing when
	// the working tree is unchanged.
	s.Subscriber.Invalidate()
	if err := s.Input.Reset(ctx, false); err != nil {
		_ = s.Watcher.Stop()
		return err
	}

	g.Go(func() error {
		<-ctx.Done()
		return s.Watcher.Stop()
	})

	g.Go(func() error {
		err := s.Subscriber.WatchMetadata(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if s.Telemetry.Enabled() {
		g.Go(func() error {
			return s.Telemetry.Serve(ctx, s.Config.Metrics.Address)
		})
	}

	logging.Info("Watch", "Watching %s. Press Ctrl+C to stop.", s.Subscriber.Root())
	return g.Wait()
}
