package formatting

import (
	"fmt"
	"io"
	"strings"

	"teamsync/internal/coalescer"
)

// PlainFormatter writes kubectl-style columns without box-drawing
// characters, for grep, awk and cut.
type PlainFormatter struct {
	options Options
}

// NewPlainFormatter creates a new plain formatter
func NewPlainFormatter(options Options) Formatter {
	return &PlainFormatter{options: options}
}

// FormatSyncSet implements Formatter.
func (f *PlainFormatter) FormatSyncSet(w io.Writer, view SyncSetView) error {
	t := f.newWriter(w, "PATH", "TYPE", "DIRECTION", "CHANGE", "CHANGESET")
	for _, e := range view.Entries {
		t.AppendRow([]string{e.Path, e.Type.String(), e.Direction.String(), e.Change.String(), e.ChangeSet})
	}
	t.Render()
	return nil
}

// FormatChangeSets implements Formatter.
func (f *PlainFormatter) FormatChangeSets(w io.Writer, views []ChangeSetView) error {
	t := f.newWriter(w, "NAME", "DEFAULT", "FILES")
	for _, v := range views {
		t.AppendRow([]string{v.Name, fmt.Sprint(v.Default), fmt.Sprint(len(v.Paths))})
	}
	t.Render()
	return nil
}

// FormatStats implements Formatter.
func (f *PlainFormatter) FormatStats(w io.Writer, stats []coalescer.HandlerMetricView) error {
	t := f.newWriter(w, "HANDLER", "PASSES", "FAILURES")
	for _, s := range stats {
		t.AppendRow([]string{s.Handler, fmt.Sprint(s.Passes), fmt.Sprint(s.Failures)})
	}
	t.Render()
	return nil
}

// GetOptions returns the current formatter options
func (f *PlainFormatter) GetOptions() Options {
	return f.options
}

func (f *PlainFormatter) newWriter(w io.Writer, headers ...string) *plainTableWriter {
	t := newPlainTableWriter(w)
	t.SetHeaders(headers)
	t.showHeaders = !f.options.NoHeaders
	return t
}

// plainTableWriter aligns columns to the widest cell.
type plainTableWriter struct {
	headers      []string
	rows         [][]string
	columnWidths []int
	// minPadding is the minimum space between columns
	minPadding  int
	showHeaders bool
	output      io.Writer
}

func newPlainTableWriter(output io.Writer) *plainTableWriter {
	return &plainTableWriter{
		minPadding:  3,
		showHeaders: true,
		output:      output,
	}
}

// SetHeaders sets the column headers. Headers are upper-cased.
func (w *plainTableWriter) SetHeaders(headers []string) {
	w.headers = make([]string, len(headers))
	w.columnWidths = make([]int, len(headers))
	for i, h := range headers {
		upper := strings.ToUpper(h)
		w.headers[i] = upper
		w.columnWidths[i] = len(upper)
	}
}

// AppendRow adds a row, padding or cutting it to the header count.
func (w *plainTableWriter) AppendRow(row []string) {
	normalized := make([]string, len(w.headers))
	for i := range w.headers {
		if i < len(row) {
			normalized[i] = row[i]
			if len(row[i]) > w.columnWidths[i] {
				w.columnWidths[i] = len(row[i])
			}
		}
	}
	w.rows = append(w.rows, normalized)
}

// Render writes the table.
func (w *plainTableWriter) Render() {
	if len(w.headers) == 0 {
		return
	}
	if len(w.rows) == 0 && !w.showHeaders {
		return
	}
	if w.showHeaders {
		w.printRow(w.headers)
	}
	for _, row := range w.rows {
		w.printRow(row)
	}
}

func (w *plainTableWriter) printRow(row []string) {
	var sb strings.Builder
	for i, cell := range row {
		if i == len(row)-1 {
			sb.WriteString(cell)
		} else {
			fmt.Fprintf(&sb, "%-*s", w.columnWidths[i]+w.minPadding, cell)
		}
	}
	fmt.Fprintln(w.output, strings.TrimRight(sb.String(), " "))
}
