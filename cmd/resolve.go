package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"teamsync/internal/events"
	"teamsync/internal/resolution"
	"teamsync/internal/resource"
)

var errNoResolution = errors.New("no such resolution")

var (
	resolveAction string
	resolveQuiet  bool
)

// resolveCmd applies a resolution to one out-of-sync resource.
var resolveCmd = &cobra.Command{
	Use:   "resolve <path>",
	Short: "Bring an out-of-sync resource back in sync",
	Long: `Applies a resolution to one out-of-sync resource and waits until the sync
set reflects its new state.

Actions:
  stage    record an outgoing change in the index
  restore  discard the local change of an outgoing or conflicting resource

Paths are relative to the root of the working tree.

Examples:
  teamsync resolve web/login.go --action stage
  teamsync resolve web/login.go --action restore --quiet`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	action, err := resolution.ParseAction(resolveAction)
	if err != nil {
		return err
	}
	path := cleanPath(args[0])

	ctx := commandContext(cmd)
	application, err := openApplication(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer closeApplication(application)

	s := application.Services()
	info, ok := s.Input.SubscriberSyncSet().Snapshot().Get(path)
	if !ok {
		return fmt.Errorf("%w: %s is in sync", errNoResolution, path)
	}
	res, ok := s.Resolutions.Find(info, action)
	if !ok {
		return fmt.Errorf("%w: cannot %s %s (%s)", errNoResolution, action, path, info.Label())
	}

	gen := eventsFor(cmd)
	runner := resolution.SpinnerRunner{Writer: cmd.ErrOrStderr(), Quiet: resolveQuiet}

	start := time.Now()
	if err := runner.Run(ctx, res.Run); err != nil {
		gen.Emit(events.ReasonResolutionFailed, events.EventData{Name: res.Label, Path: path, Error: err.Error()})
		return err
	}
	if err := s.Input.RefreshLocalState(ctx, []string{path}); err != nil {
		return err
	}
	gen.Emit(events.ReasonResolutionSucceeded, events.EventData{
		Name:     res.Label,
		Path:     path,
		Duration: time.Since(start).Round(time.Millisecond),
	})
	return nil
}

// cleanPath turns a command line path into a workspace relative path.
func cleanPath(p string) string {
	return resource.Clean(filepath.ToSlash(p))
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVarP(&resolveAction, "action", "a", string(resolution.ActionStage), "Resolution to apply (stage, restore)")
	resolveCmd.Flags().BoolVarP(&resolveQuiet, "quiet", "q", false, "Do not show progress")
}
