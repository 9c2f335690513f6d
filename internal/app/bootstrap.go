package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"teamsync/internal/config"
	"teamsync/pkg/logging"
)

// Application represents the main application structure that bootstraps
// and runs the engine.
type Application struct {
	config   *Config
	services *Services

	closeOnce sync.Once
	closeErr  error
}

// NewApplication creates and initializes a new application instance with
// the provided configuration.
//
// Configuration loading behavior:
//   - If cfg.Teamsync is set: it is used as is
//   - If cfg.ConfigPath is set: teamsync.yaml is loaded from that directory
//   - Otherwise: teamsync.yaml is loaded from the user configuration directory
//
// A missing file means defaults. cfg.Root overrides the configured root.
func NewApplication(cfg *Config) (*Application, error) {
	if cfg.Teamsync == nil {
		// Log the load itself at the requested verbosity.
		initLogging(cfg, config.GetDefaultConfig())

		configPath := cfg.ConfigPath
		if configPath == "" {
			dir, err := config.GetUserConfigDir()
			if err != nil {
				return nil, fmt.Errorf("failed to determine configuration directory: %w", err)
			}
			configPath = dir
		}

		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from %s", configPath)
			return nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
		}
		cfg.Teamsync = &loaded
	}
	if cfg.Root != "" {
		cfg.Teamsync.Root = cfg.Root
	}
	if verrs := cfg.Teamsync.Validate(); verrs.HasErrors() {
		return nil, fmt.Errorf("invalid configuration: %w", verrs)
	}

	initLogging(cfg, *cfg.Teamsync)

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

func initLogging(cfg *Config, tc config.Config) {
	level, ok := logging.ParseLevel(tc.LogLevel)
	if cfg.Debug {
		level = logging.LevelDebug
	}

	var output io.Writer = os.Stderr
	if cfg.LogOutput != nil {
		output = cfg.LogOutput
	}
	if cfg.Silent {
		output = io.Discard
	}

	if tc.LogFormat == "json" {
		logging.InitForJSON(level, output)
	} else {
		logging.InitForCLI(level, output)
	}
	if !ok {
		logging.Warn("Bootstrap", "Unknown log level %q, using info", tc.LogLevel)
	}
}

// Services returns the application's services.
func (a *Application) Services() *Services {
	return a.services
}

// Prepare performs the initial collect of the working tree and restores
// the persisted change sets.
func (a *Application) Prepare(ctx context.Context) error {
	return a.services.prepare(ctx, a.config.Scopes)
}

// Run watches the working tree until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	return runWatch(ctx, a.services)
}

// Close persists the change sets and releases every service. It is safe to
// call more than once.
func (a *Application) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		a.closeErr = a.services.close(ctx)
	})
	return a.closeErr
}
