package formatting

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"teamsync/internal/coalescer"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{
		options: options,
	}
}

// FormatSyncSet implements Formatter.
func (f *YAMLFormatter) FormatSyncSet(w io.Writer, view SyncSetView) error {
	return f.encode(w, view)
}

// FormatChangeSets implements Formatter.
func (f *YAMLFormatter) FormatChangeSets(w io.Writer, views []ChangeSetView) error {
	return f.encode(w, views)
}

// FormatStats implements Formatter.
func (f *YAMLFormatter) FormatStats(w io.Writer, stats []coalescer.HandlerMetricView) error {
	if stats == nil {
		stats = []coalescer.HandlerMetricView{}
	}
	return f.encode(w, stats)
}

// GetOptions returns the current formatter options
func (f *YAMLFormatter) GetOptions() Options {
	return f.options
}

func (f *YAMLFormatter) encode(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}
