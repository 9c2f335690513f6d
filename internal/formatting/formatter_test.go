package formatting

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"teamsync/internal/changeset"
	"teamsync/internal/coalescer"
	"teamsync/internal/resource"
	"teamsync/internal/syncset"
)

func testSet(t *testing.T) (*syncset.Set, *changeset.Collector) {
	t.Helper()
	set := syncset.NewSet("base")
	set.Update(func(b *syncset.Batch) {
		b.Put(syncset.SyncInfo{Path: "p/a.go", Type: resource.File, Direction: syncset.Outgoing, Change: syncset.Modification})
		b.Put(syncset.SyncInfo{Path: "p/new", Type: resource.Folder, Direction: syncset.Outgoing, Change: syncset.Addition})
		b.Put(syncset.SyncInfo{Path: "q/b.go", Type: resource.File, Direction: syncset.Conflicting, Change: syncset.Deletion})
	})
	c, err := changeset.New(set)
	require.NoError(t, err)
	t.Cleanup(c.Dispose)
	return set, c
}

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseOutputFormat("xml")
	assert.Error(t, err)
}

func TestNew_SelectsFormatter(t *testing.T) {
	assert.IsType(t, &JSONFormatter{}, New(Options{Format: FormatJSON}))
	assert.IsType(t, &YAMLFormatter{}, New(Options{Format: FormatYAML}))
	assert.IsType(t, &PlainFormatter{}, New(Options{Format: FormatPlain}))
	assert.IsType(t, &TableFormatter{}, New(Options{}))
}

func TestNewSyncSetView(t *testing.T) {
	set, c := testSet(t)
	view := NewSyncSetView("base", set.Snapshot(), c)

	assert.Equal(t, uint64(1), view.Revision)
	assert.Equal(t, map[string]int{"outgoing": 2, "conflicting": 1}, view.Counts)
	require.Len(t, view.Entries, 3)
	assert.Equal(t, "p/a.go", view.Entries[0].Path)
	assert.Equal(t, c.Default().Name(), view.Entries[0].ChangeSet)

	bare := NewSyncSetView("base", set.Snapshot(), nil)
	assert.Empty(t, bare.Entries[0].ChangeSet)
}

func TestJSONFormatter_SyncSet(t *testing.T) {
	set, c := testSet(t)
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(Options{}).FormatSyncSet(&buf, NewSyncSetView("base", set.Snapshot(), c)))

	var decoded struct {
		Name    string `json:"name"`
		Entries []struct {
			Path      string `json:"path"`
			Type      string `json:"type"`
			Direction string `json:"direction"`
			Change    string `json:"change"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "base", decoded.Name)
	require.Len(t, decoded.Entries, 3)
	assert.Equal(t, "folder", decoded.Entries[1].Type)
	assert.Equal(t, "conflicting", decoded.Entries[2].Direction)
	assert.Equal(t, "deletion", decoded.Entries[2].Change)
}

func TestYAMLFormatter_ChangeSets(t *testing.T) {
	_, c := testSet(t)
	var buf bytes.Buffer
	require.NoError(t, NewYAMLFormatter(Options{}).FormatChangeSets(&buf, NewChangeSetViews(c)))

	var decoded []ChangeSetView
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.True(t, decoded[0].Default)
	assert.Equal(t, []string{"p/a.go", "p/new", "q/b.go"}, decoded[0].Paths)
}

func TestPlainFormatter_SyncSet(t *testing.T) {
	set, c := testSet(t)
	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(Options{}).FormatSyncSet(&buf, NewSyncSetView("base", set.Snapshot(), c)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"PATH", "TYPE", "DIRECTION", "CHANGE", "CHANGESET"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"q/b.go", "file", "conflicting", "deletion", "Default"}, strings.Fields(lines[3]))

	buf.Reset()
	require.NoError(t, NewPlainFormatter(Options{NoHeaders: true}).FormatSyncSet(&buf, NewSyncSetView("base", set.Snapshot(), nil)))
	assert.Len(t, strings.Split(strings.TrimSpace(buf.String()), "\n"), 3)
}

func TestTableFormatter(t *testing.T) {
	set, c := testSet(t)
	f := NewTableFormatter(Options{})

	var buf bytes.Buffer
	require.NoError(t, f.FormatSyncSet(&buf, NewSyncSetView("base", set.Snapshot(), c)))
	out := buf.String()
	assert.Contains(t, out, "p/a.go")
	assert.Contains(t, out, "2 outgoing, 1 conflicting")

	buf.Reset()
	require.NoError(t, f.FormatSyncSet(&buf, NewSyncSetView("empty", syncset.NewSet("empty").Snapshot(), nil)))
	assert.Contains(t, buf.String(), "empty is in sync")

	buf.Reset()
	require.NoError(t, f.FormatStats(&buf, []coalescer.HandlerMetricView{{Handler: "Updating Sync Set base", Passes: 3, Failures: 1}}))
	assert.Contains(t, buf.String(), "Updating Sync Set base")
}
