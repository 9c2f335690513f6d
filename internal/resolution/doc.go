// Package resolution runs user-triggered operations on sync-set entries,
// such as staging or restoring a file, and reports their progress.
//
// An Operation receives a Progress to report work on. A Runner executes
// operations and separates three outcomes: success, failure (returned as
// an *InvocationError, panics included) and interruption through the
// context (ErrInterrupted).
//
// SpinnerRunner shows a terminal spinner while an operation runs;
// SyncRunner runs operations without any display.
package resolution
