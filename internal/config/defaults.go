package config

import "time"

const (
	// DefaultDebounce is the default watcher debounce window.
	DefaultDebounce = 200 * time.Millisecond

	// DefaultMetricsAddress is where metrics are served when enabled.
	DefaultMetricsAddress = "localhost:9464"

	// DefaultChangeSetsName is the storage name of the persisted change sets.
	DefaultChangeSetsName = "active"

	// DefaultChangeSet is the name of the default change set.
	DefaultChangeSet = "Default"
)

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() Config {
	return Config{
		Root:      ".",
		Debounce:  DefaultDebounce,
		LogLevel:  "info",
		LogFormat: "text",
		ChangeSets: ChangeSetsConfig{
			Name:    DefaultChangeSetsName,
			Default: DefaultChangeSet,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: DefaultMetricsAddress,
		},
	}
}
