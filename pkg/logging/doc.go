// Package logging provides the structured logging facade used across
// teamsync.
//
// It is a thin layer over the standard slog package. Every entry carries a
// subsystem identifier so output from the watcher, the coalescer passes and
// the git subscriber can be told apart:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Watcher", "Watching %s", root)
//	logging.Debug("Coalescer", "Pass drained %d events", n)
//	logging.Error("Input", err, "Reconcile pass failed")
//
// # Output modes
//
//   - InitForCLI: text handler for interactive use
//   - InitForJSON: JSON handler for long running daemons
//
// # Error sink
//
// Background workers never return their failures to the code that produced
// the triggering event. Those failures are logged at Error level instead.
// SetErrorSink installs a callback that receives every Error entry, which
// lets an embedding process forward them elsewhere and lets tests assert
// on them.
//
// # Thread Safety
//
// All functions are safe for concurrent use.
package logging
