package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"teamsync/internal/app"
	"teamsync/internal/changeset"
	"teamsync/internal/coalescer"
	"teamsync/internal/resolution"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeInterrupted indicates the command was cancelled before it finished.
	ExitCodeInterrupted = 2
	// ExitCodeRejected indicates a change set or resolution request that
	// does not apply to the current state of the working tree.
	ExitCodeRejected = 3
)

var (
	rootConfigPath string
	rootWorkTree   string
	rootDebug      bool
)

// rootCmd represents the base command for the teamsync application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "teamsync",
	Short: "Follow the out-of-sync resources of a git working tree",
	Long: `teamsync keeps a live sync set of every resource in a git working tree
that differs from its base: outgoing edits, untracked files and conflicts.

Filesystem and repository events are coalesced into background passes, so
a burst of edits is reconciled once. Outgoing changes are grouped into
change sets that survive restarts.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
	app.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "teamsync version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	if errors.Is(err, resolution.ErrInterrupted) || errors.Is(err, coalescer.ErrInterrupted) {
		return ExitCodeInterrupted
	}

	switch {
	case errors.Is(err, changeset.ErrSetExists),
		errors.Is(err, changeset.ErrUnknownSet),
		errors.Is(err, changeset.ErrDefaultSet),
		errors.Is(err, changeset.ErrNoLocalChange),
		errors.Is(err, errNoResolution):
		return ExitCodeRejected
	}

	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config-path", "", "Configuration directory (default: user configuration directory)")
	rootCmd.PersistentFlags().StringVar(&rootWorkTree, "root", "", "Working tree to follow, overrides the configured root")
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
}
