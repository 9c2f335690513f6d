package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"teamsync/internal/events"
	"teamsync/internal/syncset"
	"teamsync/pkg/logging"
)

var watchOutputFormat string

// watchCmd follows the working tree and streams sync-set events.
var watchCmd = &cobra.Command{
	Use:   "watch [path...]",
	Short: "Follow the working tree and print every sync state change",
	Long: `Collects the working tree, then follows filesystem and repository events
and prints one line per resource whose sync state changed. Failed background
passes are reported as warnings.

When run as a systemd service with Type=notify, readiness is reported after
the initial collect.

Examples:
  # Follow the whole working tree
  teamsync watch

  # Follow two folders and stream JSON
  teamsync watch api web --output json`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	asJSON := false
	switch watchOutputFormat {
	case "text":
	case "json":
		asJSON = true
	default:
		return fmt.Errorf("unsupported output format %q (valid: text, json)", watchOutputFormat)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := events.NewEventGenerator(events.NewWriterSink(cmd.OutOrStdout(), asJSON))
	logging.SetErrorSink(gen.ErrorLogged)
	defer logging.SetErrorSink(nil)

	application, err := openApplication(ctx, cmd, args)
	if err != nil {
		return err
	}
	defer closeApplication(application)

	filtered := application.Services().Input.FilteredSyncSet()
	cancel := filtered.Subscribe(func(change *syncset.ChangeEvent) {
		gen.SyncSetChanged(filtered.Name(), change)
	})
	defer cancel()

	snap := filtered.Snapshot()
	gen.Emit(events.ReasonWatchStarted, events.EventData{
		Name:     filtered.Name(),
		Count:    snap.Len(),
		Revision: snap.Revision(),
	})

	notifySystemd(daemon.SdNotifyReady)
	defer notifySystemd(daemon.SdNotifyStopping)

	err = application.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// notifySystemd reports state to the service manager. Outside systemd it
// does nothing.
func notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logging.Warn("CLI", "Failed to notify systemd: %v", err)
		return
	}
	if sent {
		logging.Debug("CLI", "Notified systemd: %s", state)
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "text", "Output format (text, json)")
}
