package formatting

import (
	"encoding/json"
	"fmt"
	"io"

	"teamsync/internal/coalescer"
)

// JSONFormatter provides structured JSON output formatting
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{
		options: options,
	}
}

// FormatSyncSet implements Formatter.
func (f *JSONFormatter) FormatSyncSet(w io.Writer, view SyncSetView) error {
	return f.encode(w, view)
}

// FormatChangeSets implements Formatter.
func (f *JSONFormatter) FormatChangeSets(w io.Writer, views []ChangeSetView) error {
	return f.encode(w, views)
}

// FormatStats implements Formatter.
func (f *JSONFormatter) FormatStats(w io.Writer, stats []coalescer.HandlerMetricView) error {
	if stats == nil {
		stats = []coalescer.HandlerMetricView{}
	}
	return f.encode(w, stats)
}

// GetOptions returns the current formatter options
func (f *JSONFormatter) GetOptions() Options {
	return f.options
}

func (f *JSONFormatter) encode(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
