package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"teamsync/internal/app"
	"teamsync/internal/config"
	"teamsync/pkg/logging"
)

// closeTimeout bounds how long a command waits for the services to shut
// down after it finished.
const closeTimeout = 10 * time.Second

// openApplication creates the application from the persistent flags and
// performs the initial collect. scopes narrows the filtered sync set.
// Configuration problems are explained on the command's error output.
func openApplication(ctx context.Context, cmd *cobra.Command, scopes []string) (*app.Application, error) {
	cfg := app.NewConfig(rootDebug, rootConfigPath)
	cfg.Root = rootWorkTree
	cfg.Scopes = scopes

	application, err := app.NewApplication(cfg)
	if err != nil {
		if report, ok := config.DetailedReport(err); ok {
			fmt.Fprintln(cmd.ErrOrStderr(), report)
		}
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	if err := application.Prepare(ctx); err != nil {
		closeApplication(application)
		return nil, err
	}
	return application, nil
}

// closeApplication persists the change sets and releases the services.
// Failures are logged since the command's own result matters more.
func closeApplication(application *app.Application) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := application.Close(ctx); err != nil {
		logging.Error("CLI", err, "Failed to shut down cleanly")
	}
}

// commandContext returns the command's context, or a background context
// when the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
