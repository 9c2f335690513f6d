package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	ds := NewStorageWithPath(dir)

	data := []byte("default: Default\nsets: []\n")
	require.NoError(t, ds.Save("changesets", "active", data))

	content, err := os.ReadFile(filepath.Join(dir, "changesets", "active.yaml"))
	require.NoError(t, err)
	assert.Equal(t, data, content)

	loaded, err := ds.Load("changesets", "active")
	require.NoError(t, err)
	assert.Equal(t, data, loaded)
}

func TestStorage_SaveReplacesDocument(t *testing.T) {
	dir := t.TempDir()
	ds := NewStorageWithPath(dir)

	require.NoError(t, ds.Save("changesets", "active", []byte("first")))
	require.NoError(t, ds.Save("changesets", "active", []byte("second")))

	loaded, err := ds.Load("changesets", "active")
	require.NoError(t, err)
	assert.Equal(t, "second", string(loaded))

	// No temporary files are left behind.
	entries, err := os.ReadDir(filepath.Join(dir, "changesets"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStorage_InvalidKeys(t *testing.T) {
	ds := NewStorageWithPath(t.TempDir())

	tests := []struct {
		name        string
		entityType  string
		itemName    string
		errContains string
	}{
		{"empty entity type", "", "active", "entity type cannot be empty"},
		{"empty name", "changesets", "", "name cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorContains(t, ds.Save(tt.entityType, tt.itemName, []byte("x")), tt.errContains)

			_, err := ds.Load(tt.entityType, tt.itemName)
			assert.ErrorContains(t, err, tt.errContains)

			assert.ErrorContains(t, ds.Delete(tt.entityType, tt.itemName), tt.errContains)
		})
	}

	_, err := ds.List("")
	assert.ErrorContains(t, err, "entity type cannot be empty")
}

func TestStorage_NotFound(t *testing.T) {
	ds := NewStorageWithPath(t.TempDir())

	_, err := ds.Load("changesets", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, ds.Delete("changesets", "missing"), ErrNotFound)
}

func TestStorage_Delete(t *testing.T) {
	dir := t.TempDir()
	ds := NewStorageWithPath(dir)

	require.NoError(t, ds.Save("changesets", "active", []byte("x")))
	require.NoError(t, ds.Delete("changesets", "active"))

	_, err := os.Stat(filepath.Join(dir, "changesets", "active.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestStorage_List(t *testing.T) {
	dir := t.TempDir()
	ds := NewStorageWithPath(dir)

	entityDir := filepath.Join(dir, "changesets")
	require.NoError(t, os.MkdirAll(filepath.Join(entityDir, "nested"), 0o755))
	for _, f := range []string{"b.yaml", "a.yaml", "c.yml", "notes.txt", ".b.yaml.123"} {
		require.NoError(t, os.WriteFile(filepath.Join(entityDir, f), []byte("x"), 0o644))
	}

	names, err := ds.List("changesets")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names)

	names, err = ds.List("snapshots")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestStorage_UserConfigDir(t *testing.T) {
	originalUserHomeDir := osUserHomeDir
	defer func() { osUserHomeDir = originalUserHomeDir }()

	home := t.TempDir()
	osUserHomeDir = func() (string, error) { return home, nil }

	ds := NewStorage()
	require.NoError(t, ds.Save("changesets", "active", []byte("x")))

	_, err := os.Stat(filepath.Join(home, userConfigDir, "changesets", "active.yaml"))
	assert.NoError(t, err)

	names, err := ds.List("changesets")
	require.NoError(t, err)
	assert.Equal(t, []string{"active"}, names)
}

func TestFileStem(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"clean-name", "clean-name"},
		{"feature/login:fix*now?", "feature_login_fix_now"},
		{"with spaces here", "with_spaces_here"},
		{" .dotted.name. ", "dotted_name"},
		{"a___b", "a_b"},
		{":::***", "unnamed"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, fileStem(tt.input))
		})
	}
}
