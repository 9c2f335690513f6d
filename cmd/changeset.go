package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"teamsync/internal/events"
	"teamsync/internal/formatting"
)

var (
	changeSetOutputFormat string
	changeSetNoHeaders    bool
	changeSetComment      string
)

// changeSetCmd groups the change set subcommands. Every subcommand loads
// the persisted change sets, applies its edit and saves them again.
var changeSetCmd = &cobra.Command{
	Use:     "changeset",
	Aliases: []string{"cs"},
	Short:   "Manage the change sets outgoing changes are grouped into",
	Long: `Outgoing changes are grouped into named change sets. New outgoing changes
join the default set; a change leaves its set once it is back in sync.

Examples:
  teamsync changeset list
  teamsync changeset create login-fix --comment "Fix the login redirect"
  teamsync changeset assign login-fix web/login.go web/login_test.go
  teamsync changeset set-default login-fix
  teamsync changeset remove login-fix`,
}

var changeSetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the change sets and their resources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := formatting.ParseOutputFormat(changeSetOutputFormat)
		if err != nil {
			return err
		}
		application, err := openApplication(commandContext(cmd), cmd, nil)
		if err != nil {
			return err
		}
		defer closeApplication(application)

		f := formatting.New(formatting.Options{Format: format, NoHeaders: changeSetNoHeaders})
		return f.FormatChangeSets(cmd.OutOrStdout(), formatting.NewChangeSetViews(application.Services().ChangeSets))
	},
}

var changeSetCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty change set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApplication(commandContext(cmd), cmd, nil)
		if err != nil {
			return err
		}
		defer closeApplication(application)

		cs, err := application.Services().ChangeSets.CreateSet(args[0])
		if err != nil {
			return err
		}
		cs.SetComment(changeSetComment)
		eventsFor(cmd).Emit(events.ReasonChangeSetCreated, events.EventData{Name: cs.Name()})
		return nil
	},
}

var changeSetAssignCmd = &cobra.Command{
	Use:   "assign <name> <path>...",
	Short: "Move outgoing changes into a change set",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApplication(commandContext(cmd), cmd, nil)
		if err != nil {
			return err
		}
		defer closeApplication(application)

		sets := application.Services().ChangeSets
		for _, path := range args[1:] {
			if err := sets.Assign(cleanPath(path), args[0]); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Assigned %d resources to %s\n", len(args)-1, args[0])
		return nil
	},
}

var changeSetRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a change set, moving its resources to the default set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApplication(commandContext(cmd), cmd, nil)
		if err != nil {
			return err
		}
		defer closeApplication(application)

		sets := application.Services().ChangeSets
		moved := 0
		if cs, ok := sets.Get(args[0]); ok {
			moved = cs.Len()
		}
		if err := sets.Remove(args[0]); err != nil {
			return err
		}
		eventsFor(cmd).Emit(events.ReasonChangeSetRemoved, events.EventData{Name: args[0], Count: moved})
		return nil
	},
}

var changeSetSetDefaultCmd = &cobra.Command{
	Use:   "set-default <name>",
	Short: "Make a change set the target of new outgoing changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApplication(commandContext(cmd), cmd, nil)
		if err != nil {
			return err
		}
		defer closeApplication(application)

		if err := application.Services().ChangeSets.SetDefault(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default change set is now %s\n", args[0])
		return nil
	},
}

// eventsFor returns a generator printing to the command's output.
func eventsFor(cmd *cobra.Command) *events.EventGenerator {
	return events.NewEventGenerator(events.NewWriterSink(cmd.OutOrStdout(), false))
}

func init() {
	rootCmd.AddCommand(changeSetCmd)
	changeSetCmd.AddCommand(changeSetListCmd, changeSetCreateCmd, changeSetAssignCmd, changeSetRemoveCmd, changeSetSetDefaultCmd)

	changeSetListCmd.Flags().StringVarP(&changeSetOutputFormat, "output", "o", "table", "Output format (table, plain, json, yaml)")
	changeSetListCmd.Flags().BoolVar(&changeSetNoHeaders, "no-headers", false, "Omit the header row of table and plain output")
	changeSetCreateCmd.Flags().StringVar(&changeSetComment, "comment", "", "Comment describing the change set")
}
