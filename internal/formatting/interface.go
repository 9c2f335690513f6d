// Package formatting renders sync sets, change sets and coalescer
// statistics for the CLI.
//
// Every output format implements Formatter. Table output uses go-pretty,
// plain output is a kubectl-style column layout meant for piping, and
// JSON and YAML emit the view types of this package.
package formatting

import (
	"fmt"
	"io"
	"strings"

	"teamsync/internal/coalescer"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatPlain OutputFormat = "plain" // Aligned columns without borders
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatTable, FormatPlain, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unsupported output format %q (valid: table, plain, json, yaml)", s)
}

// Options configures the formatter behavior
type Options struct {
	Format    OutputFormat
	NoHeaders bool // Suppress the header row of table and plain output
}

// Formatter writes views in one output format.
type Formatter interface {
	FormatSyncSet(w io.Writer, view SyncSetView) error
	FormatChangeSets(w io.Writer, views []ChangeSetView) error
	FormatStats(w io.Writer, stats []coalescer.HandlerMetricView) error

	GetOptions() Options
}

// New creates the formatter for options.Format. Unknown formats fall back
// to table output.
func New(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatPlain:
		return NewPlainFormatter(options)
	default:
		return NewTableFormatter(options)
	}
}
