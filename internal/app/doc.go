// Package app wires the engine together and controls its lifecycle.
//
// # Bootstrap
//
// NewApplication configures logging, loads teamsync.yaml (unless the
// caller provides a configuration) and creates the services:
//
//  1. the git subscriber for the working tree
//  2. the filesystem watcher feeding resource deltas
//  3. the subscriber input with its base and filtered sync sets
//  4. the scope manager and its event handler, which narrow the filtered
//     set to the paths given on the command line
//  5. the change-set collector following the base set
//  6. the resolution generator
//  7. the telemetry provider and the coalescer metrics
//
// All coalescers share one jobs.Manager, so Close can cancel every
// background pass at once.
//
// # Lifecycle
//
//	application, err := app.NewApplication(app.NewConfig(debug, configPath))
//	if err != nil {
//	    return err
//	}
//	defer application.Close(ctx)
//	if err := application.Prepare(ctx); err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// Prepare performs the initial collect and restores the persisted change
// sets. Run starts the watcher, the repository metadata watch and the
// metrics endpoint and blocks until ctx is done. Close persists the change
// sets and releases everything.
package app
