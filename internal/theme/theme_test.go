package theme

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastd/internal/model"
)

func writeTheme(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name+".toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestBundledThemesLoad(t *testing.T) {
	for _, name := range BundledThemes {
		t.Run(name, func(t *testing.T) {
			th, err := Load(name, "")
			require.NoError(t, err)
			assert.Equal(t, name, th.Name)
			assert.Empty(t, th.Path)
			assert.NotEmpty(t, th.Title)
			for _, k := range model.Kinds() {
				s := th.Style(k)
				assert.NotEmpty(t, s.Icon, "kind %s", k)
				assert.NotEmpty(t, s.Color, "kind %s", k)
			}
		})
	}
}

func TestListEmbeddedThemes(t *testing.T) {
	assert.ElementsMatch(t, BundledThemes, ListEmbeddedThemes())
	assert.True(t, IsEmbeddedTheme("minimal"))
	assert.False(t, IsEmbeddedTheme("missing"))
}

func TestLoad_MinimalExtendsDefault(t *testing.T) {
	th, err := Load("minimal", "")
	require.NoError(t, err)

	def := Default()
	// Icons come from the base theme, colours from minimal
	assert.Equal(t, def.Style(model.KindError).Icon, th.Style(model.KindError).Icon)
	assert.Equal(t, "15", th.Style(model.KindError).Color)
}

func TestLoad_UserThemeOverridesBundled(t *testing.T) {
	dir := t.TempDir()
	path := writeTheme(t, dir, "default", `
extends = "default"

[kinds.error]
color = "#ff0000"
`)

	th, err := Load("default", dir)
	require.NoError(t, err)
	assert.Equal(t, path, th.Path)
	assert.Equal(t, "#ff0000", th.Style(model.KindError).Color)
	assert.Equal(t, "✗", th.Style(model.KindError).Icon)
	assert.Equal(t, Default().Title, th.Title)
}

func TestLoad_ByPath(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "base", `
title = "1"

[kinds.info]
icon = "?"
color = "4"
`)
	path := writeTheme(t, dir, "mine", `
extends = "base"
muted = "2"
`)

	th, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "mine", th.Name)
	assert.Equal(t, "1", th.Title)
	assert.Equal(t, "2", th.Muted)
	// Unknown kinds fall back to info
	assert.Equal(t, KindStyle{Icon: "?", Color: "4"}, th.Style(model.Kind("other")))
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "a", `extends = "b"`)
	writeTheme(t, dir, "b", `extends = "a"`)
	writeTheme(t, dir, "broken", `title = `)

	_, err := Load("missing", dir)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Load("a", dir)
	assert.Error(t, err)

	_, err = Load("broken", dir)
	assert.Error(t, err)
}

func TestStyle_EmptyTheme(t *testing.T) {
	th := &Theme{}
	assert.Equal(t, fallbackStyle, th.Style(model.KindSuccess))
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "default", `title = "1"`)
	writeTheme(t, dir, "solar", `title = "3"`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644))

	themes, err := List(dir)
	require.NoError(t, err)

	byName := make(map[string]Info)
	for _, info := range themes {
		byName[info.Name] = info
	}
	assert.Len(t, byName, len(BundledThemes)+1)
	assert.True(t, byName["default"].IsDefault)
	assert.True(t, byName["default"].IsBundled)
	assert.Equal(t, filepath.Join(dir, "default.toml"), byName["default"].Path)
	assert.False(t, byName["solar"].IsBundled)

	themes, err = List(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Len(t, themes, len(BundledThemes))
}
