package app

import (
	"io"

	"teamsync/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug forces debug logging regardless of the configured level.
	Debug bool

	// Silent suppresses log output.
	Silent bool

	// LogOutput receives log output. Nil means standard error.
	LogOutput io.Writer

	// ConfigPath is the configuration directory. Empty means the default
	// user configuration directory.
	ConfigPath string

	// Root overrides the configured working tree when set.
	Root string

	// Scopes limits the filtered sync set to these workspace relative
	// paths. Empty means the whole working tree.
	Scopes []string

	// Teamsync is the loaded configuration. When set before
	// NewApplication, loading is skipped.
	Teamsync *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
	}
}
