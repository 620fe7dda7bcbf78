package theme

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/toastd/internal/model"
)

// ErrNotFound is returned when no user or bundled theme has the name.
var ErrNotFound = errors.New("theme not found")

// KindStyle is the icon and accent colour for one toast kind. Colours are
// terminal palette indexes ("12") or hex ("#89b4fa").
type KindStyle struct {
	Icon  string `toml:"icon"`
	Color string `toml:"color"`
}

// Theme is a TUI palette. A theme may extend another and override only
// some of its fields.
type Theme struct {
	Name    string `toml:"-"`
	Path    string `toml:"-"` // Empty for bundled themes
	Extends string `toml:"extends"`

	Title string `toml:"title"` // List title and help heading
	Text  string `toml:"text"`  // Status line
	Muted string `toml:"muted"` // Hints and counts
	Error string `toml:"error"` // Failed actions

	Kinds map[string]KindStyle `toml:"kinds"`
}

var fallbackStyle = KindStyle{Icon: "•", Color: "7"}

// Style returns the style for kind. Unknown kinds use the info style.
func (t *Theme) Style(kind model.Kind) KindStyle {
	if s, ok := t.Kinds[string(kind)]; ok {
		return s
	}
	if s, ok := t.Kinds[string(model.KindInfo)]; ok {
		return s
	}
	return fallbackStyle
}

var defaultTheme = sync.OnceValue(func() *Theme {
	t, err := Load(DefaultThemeName, "")
	if err != nil {
		panic(fmt.Sprintf("bundled theme: %v", err))
	}
	return t
})

// Default returns the bundled default theme. Callers must not modify it.
func Default() *Theme {
	return defaultTheme()
}

// Load resolves a theme by name, or by path when name ends in ".toml".
// Resolution order:
//  1. dir/<name>.toml (skipped when dir is empty)
//  2. Bundled themes
//
// A user file may extend a bundled theme of the same name to override a few
// colours.
func Load(name, dir string) (*Theme, error) {
	if name == "" {
		name = DefaultThemeName
	}
	return load(name, dir, make(map[string]bool))
}

func load(name, dir string, seen map[string]bool) (*Theme, error) {
	data, path, err := source(name, dir, seen)
	if err != nil {
		return nil, err
	}

	key := path
	if key == "" {
		key = "bundled:" + name
	}
	if seen[key] {
		return nil, fmt.Errorf("theme %q: circular extends", name)
	}
	seen[key] = true

	t := &Theme{}
	if err := toml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("theme %q: %w", name, err)
	}
	t.Name = strings.TrimSuffix(filepath.Base(name), ".toml")
	t.Path = path

	if t.Extends == "" {
		return t, nil
	}

	baseDir := dir
	if path != "" {
		baseDir = filepath.Dir(path)
	}
	base, err := load(t.Extends, baseDir, seen)
	if err != nil {
		return nil, err
	}
	return merge(base, t), nil
}

// source finds the theme's file. A user file already on the extends chain
// is skipped so it can extend the bundled theme it shadows.
func source(name, dir string, seen map[string]bool) ([]byte, string, error) {
	var candidates []string
	switch {
	case strings.HasSuffix(name, ".toml"):
		candidates = append(candidates, expandHome(name))
	case dir != "":
		candidates = append(candidates, filepath.Join(dir, name+".toml"))
	}

	for _, path := range candidates {
		if seen[path] {
			continue
		}
		data, err := os.ReadFile(path)
		if err == nil {
			return data, path, nil
		}
		if !os.IsNotExist(err) {
			return nil, "", err
		}
	}

	if data, ok := GetEmbeddedTheme(name); ok {
		return data, "", nil
	}
	return nil, "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// merge returns base with the fields set in over applied on top.
func merge(base, over *Theme) *Theme {
	out := *base
	out.Name = over.Name
	out.Path = over.Path
	out.Extends = over.Extends

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&out.Title, over.Title)
	set(&out.Text, over.Text)
	set(&out.Muted, over.Muted)
	set(&out.Error, over.Error)

	out.Kinds = make(map[string]KindStyle, len(base.Kinds))
	for k, s := range base.Kinds {
		out.Kinds[k] = s
	}
	for k, s := range over.Kinds {
		merged := out.Kinds[k]
		set(&merged.Icon, s.Icon)
		set(&merged.Color, s.Color)
		out.Kinds[k] = merged
	}
	return &out
}

// Info describes an available theme.
type Info struct {
	Name      string
	Path      string
	IsDefault bool
	IsBundled bool
}

// List returns the bundled themes followed by user themes in dir. A user
// theme that shadows a bundled one is listed once, with its path.
func List(dir string) ([]Info, error) {
	var themes []Info
	index := make(map[string]int)

	for _, name := range ListEmbeddedThemes() {
		index[name] = len(themes)
		themes = append(themes, Info{
			Name:      name,
			IsDefault: name == DefaultThemeName,
			IsBundled: true,
		})
	}

	if dir == "" {
		return themes, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return themes, nil
		}
		return themes, err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".toml" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".toml")
		path := filepath.Join(dir, entry.Name())
		if i, ok := index[name]; ok {
			themes[i].Path = path
			continue
		}
		themes = append(themes, Info{Name: name, Path: path})
	}
	return themes, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
