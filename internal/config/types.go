package config

import (
	"time"

	"teamsync/internal/syncset"
)

// Config is the top-level configuration structure for teamsync.
type Config struct {
	// Root is the working tree to follow. Relative paths are resolved
	// against the current directory.
	Root string `yaml:"root,omitempty"`

	// Debounce is how long the filesystem watcher collects events before
	// it reports them as one delta.
	Debounce time.Duration `yaml:"debounce,omitempty"`

	LogLevel  string `yaml:"logLevel,omitempty"`  // debug, info, warn or error (default: info)
	LogFormat string `yaml:"logFormat,omitempty"` // text or json (default: text)

	// Ignore lists gitignore style patterns excluded on top of the
	// repository's own ignore files.
	Ignore []string `yaml:"ignore,omitempty"`

	Filter     syncset.FilterSpec `yaml:"filter,omitempty"`
	ChangeSets ChangeSetsConfig   `yaml:"changeSets,omitempty"`
	Metrics    MetricsConfig      `yaml:"metrics,omitempty"`
}

// ChangeSetsConfig configures the active change sets.
type ChangeSetsConfig struct {
	// Name is the storage name the change sets are persisted under.
	Name string `yaml:"name,omitempty"`

	// Default is the change set new outgoing changes are assigned to.
	Default string `yaml:"default,omitempty"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Address string `yaml:"address,omitempty"` // listen address of the /metrics endpoint
}
