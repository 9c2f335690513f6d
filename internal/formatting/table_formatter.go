package formatting

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"teamsync/internal/coalescer"
	"teamsync/internal/syncset"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{
		options: options,
	}
}

// FormatSyncSet renders one row per entry followed by per-direction totals.
func (f *TableFormatter) FormatSyncSet(w io.Writer, view SyncSetView) error {
	if len(view.Entries) == 0 {
		fmt.Fprint(w, f.formatEmptyMessage("✓", fmt.Sprintf("%s is in sync (revision %d)", view.Name, view.Revision)))
		return nil
	}

	t := f.createTable(w)
	f.appendHeader(t, "PATH", "TYPE", "STATE", "CHANGE SET")
	for _, e := range view.Entries {
		t.AppendRow(table.Row{
			e.Path,
			e.Type.String(),
			colorDirection(e.Direction).Sprint(e.Direction.String() + " " + e.Change.String()),
			e.ChangeSet,
		})
	}
	t.Render()

	fmt.Fprintf(w, "\n%s %s %s\n",
		text.FgHiBlue.Sprint("Total:"),
		text.FgHiWhite.Sprint(len(view.Entries)),
		text.FgHiBlue.Sprint(summarizeCounts(view.Counts)))
	return nil
}

// FormatChangeSets renders one row per change set.
func (f *TableFormatter) FormatChangeSets(w io.Writer, views []ChangeSetView) error {
	t := f.createTable(w)
	f.appendHeader(t, "NAME", "DEFAULT", "FILES", "COMMENT")
	for _, v := range views {
		def := ""
		if v.Default {
			def = text.FgGreen.Sprint("*")
		}
		t.AppendRow(table.Row{text.FgHiCyan.Sprint(v.Name), def, len(v.Paths), truncate(v.Comment, 60)})
	}
	t.Render()
	return nil
}

// FormatStats renders the pass statistics of each coalescer.
func (f *TableFormatter) FormatStats(w io.Writer, stats []coalescer.HandlerMetricView) error {
	if len(stats) == 0 {
		fmt.Fprint(w, f.formatEmptyMessage("📋", "No passes recorded"))
		return nil
	}

	t := f.createTable(w)
	f.appendHeader(t, "HANDLER", "QUEUED", "DRAINED", "PASSES", "WORKED", "FAILURES", "LAST DURATION")
	for _, s := range stats {
		failures := fmt.Sprint(s.Failures)
		if s.Failures > 0 {
			failures = text.FgRed.Sprint(failures)
		}
		t.AppendRow(table.Row{s.Handler, s.EventsQueued, s.EventsDrained, s.Passes, s.PassesWorked, failures, s.LastDuration})
	}
	t.Render()
	return nil
}

// GetOptions returns the current formatter options
func (f *TableFormatter) GetOptions() Options {
	return f.options
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) appendHeader(t table.Writer, headers ...string) {
	if f.options.NoHeaders {
		return
	}
	row := make(table.Row, 0, len(headers))
	for _, h := range headers {
		row = append(row, text.FgHiCyan.Sprint(h))
	}
	t.AppendHeader(row)
}

// formatEmptyMessage formats empty result messages
func (f *TableFormatter) formatEmptyMessage(icon, message string) string {
	return fmt.Sprintf("%s %s\n", text.FgYellow.Sprint(icon), text.FgYellow.Sprint(message))
}

func colorDirection(d syncset.Direction) text.Colors {
	switch d {
	case syncset.Outgoing:
		return text.Colors{text.FgHiBlue}
	case syncset.Incoming:
		return text.Colors{text.FgHiGreen}
	case syncset.Conflicting:
		return text.Colors{text.FgHiRed, text.Bold}
	default:
		return text.Colors{}
	}
}

// summarizeCounts renders counts in direction order, e.g.
// "(2 outgoing, 1 conflicting)".
func summarizeCounts(counts map[string]int) string {
	var parts []string
	for _, d := range []syncset.Direction{syncset.Outgoing, syncset.Incoming, syncset.Conflicting} {
		if n := counts[d.String()]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, d))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
