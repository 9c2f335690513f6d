package cmd

import (
	"github.com/spf13/cobra"

	"teamsync/internal/formatting"
)

var (
	statusOutputFormat string
	statusNoHeaders    bool
	statusStats        bool
	statusAll          bool
)

// statusCmd prints the sync set of the working tree once.
var statusCmd = &cobra.Command{
	Use:   "status [path...]",
	Short: "Show the out-of-sync resources of the working tree",
	Long: `Collects the working tree and prints its out-of-sync resources together
with the change set each outgoing change belongs to.

Paths narrow the output to those folders or files. Without paths the whole
working tree is shown. --all ignores both the paths and the configured
filter.

Examples:
  # Everything that differs from HEAD
  teamsync status

  # Only the api folder, as YAML
  teamsync status api --output yaml

  # Coalescer statistics of the collect
  teamsync status --stats`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := formatting.ParseOutputFormat(statusOutputFormat)
	if err != nil {
		return err
	}

	application, err := openApplication(commandContext(cmd), cmd, args)
	if err != nil {
		return err
	}
	defer closeApplication(application)

	s := application.Services()
	f := formatting.New(formatting.Options{Format: format, NoHeaders: statusNoHeaders})
	if statusStats {
		return f.FormatStats(cmd.OutOrStdout(), s.Metrics.All())
	}

	if statusAll {
		base := s.Input.SubscriberSyncSet()
		return f.FormatSyncSet(cmd.OutOrStdout(), formatting.NewSyncSetView(base.Name(), base.Snapshot(), s.ChangeSets))
	}
	filtered := s.Input.FilteredSyncSet()
	return f.FormatSyncSet(cmd.OutOrStdout(), formatting.NewSyncSetView(filtered.Name(), filtered.Snapshot(), s.ChangeSets))
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusOutputFormat, "output", "o", "table", "Output format (table, plain, json, yaml)")
	statusCmd.Flags().BoolVar(&statusNoHeaders, "no-headers", false, "Omit the header row of table and plain output")
	statusCmd.Flags().BoolVar(&statusStats, "stats", false, "Print coalescer statistics instead of the sync set")
	statusCmd.Flags().BoolVar(&statusAll, "all", false, "Show the unfiltered sync set")
}
