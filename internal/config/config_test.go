package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastd/internal/model"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 5*time.Second, cfg.Notifications.DefaultDuration.Duration())
	assert.False(t, cfg.Notifications.StickyErrors)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, DefaultMaxHistory, cfg.History.MaxEntries)
	assert.False(t, cfg.Audio.Enabled)
	assert.Equal(t, DefaultVolume, cfg.Audio.Volume)
	assert.True(t, cfg.DBus.Enabled)
	assert.False(t, cfg.DBus.MirrorDesktop)
	assert.True(t, cfg.Internal.NotifyOnReload)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/toastd.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toastd.toml")

	content := `
[notifications]
default_duration = "3s"
sticky_errors = true

[history]
enabled = false
path = "/tmp/toasts.jsonl"
max_entries = 50

[audio]
enabled = true
volume = 40

[audio.sounds]
success = "/sounds/ok.wav"
error = "/sounds/err.ogg"

[dbus]
enabled = false
mirror_desktop = true

[internal]
notify_on_reload = false
min_interval = "2500"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Notifications.DefaultDuration.Duration())
	assert.True(t, cfg.Notifications.StickyErrors)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "/tmp/toasts.jsonl", cfg.HistoryPath())
	assert.Equal(t, 50, cfg.History.MaxEntries)
	assert.True(t, cfg.Audio.Enabled)
	assert.Equal(t, 40, cfg.Audio.Volume)
	assert.Equal(t, "/sounds/ok.wav", cfg.SoundForKind(model.KindSuccess))
	assert.Equal(t, "/sounds/err.ogg", cfg.SoundForKind(model.KindError))
	assert.Empty(t, cfg.SoundForKind(model.KindWarning))
	assert.False(t, cfg.DBus.Enabled)
	assert.True(t, cfg.DBus.MirrorDesktop)
	assert.False(t, cfg.Internal.NotifyOnReload)
	assert.Equal(t, 2500*time.Millisecond, cfg.Internal.MinInterval.Duration())
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toastd.toml")

	require.NoError(t, os.WriteFile(path, []byte("[audio]\nvolume = 10\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Audio.Volume)
	assert.Equal(t, model.DefaultDuration, cfg.Notifications.DefaultDuration.Duration())
	assert.True(t, cfg.History.Enabled)
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toastd.toml")

	require.NoError(t, os.WriteFile(path, []byte("[notifications\nbroken"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toastd.toml")

	require.NoError(t, os.WriteFile(path, []byte("[notifications]\ndefault_duration = \"soon\"\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero duration", func(c *Config) { c.Notifications.DefaultDuration = 0 }, true},
		{"negative max entries", func(c *Config) { c.History.MaxEntries = -1 }, true},
		{"unlimited history", func(c *Config) { c.History.MaxEntries = 0 }, false},
		{"volume too high", func(c *Config) { c.Audio.Volume = 101 }, true},
		{"volume negative", func(c *Config) { c.Audio.Volume = -5 }, true},
		{"negative min interval", func(c *Config) { c.Internal.MinInterval = Duration(-time.Second) }, true},
		{"zero refresh interval", func(c *Config) { c.TUI.RefreshInterval = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "toastd.toml")

	cfg := DefaultConfig()
	cfg.Notifications.DefaultDuration = Duration(7 * time.Second)
	cfg.Audio.Sounds.Info = "/sounds/info.wav"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, loaded.Notifications.DefaultDuration.Duration())
	assert.Equal(t, "/sounds/info.wav", loaded.Audio.Sounds.Info)
}

func TestStickyKinds(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.StickyKinds())

	cfg.Notifications.StickyErrors = true
	assert.Equal(t, []model.Kind{model.KindError}, cfg.StickyKinds())
}

func TestSoundForKind_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Audio.Sounds.Info = "~/sounds/info.wav"

	assert.Equal(t, filepath.Join(home, "sounds", "info.wav"), cfg.SoundForKind(model.KindInfo))
}

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"5s", 5 * time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"1500", 1500 * time.Millisecond, false},
		{"0", 0, false},
		{"later", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration())
		})
	}
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	var v struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
		C Duration `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 2500, "b": "3s", "c": null}`), &v))
	assert.Equal(t, 2500*time.Millisecond, v.A.Duration())
	assert.Equal(t, 3*time.Second, v.B.Duration())
	assert.Zero(t, v.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a": "soon"}`), &v))
}

func TestConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/toastd/toastd.toml", ConfigPath())
}

func TestDataPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	assert.Equal(t, "/custom/data/toastd", DataPath())
}

func TestHistoryPath_Default(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	assert.Equal(t, "/custom/data/toastd/history.jsonl", DefaultConfig().HistoryPath())
}

func TestEnsureDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	require.NoError(t, EnsureDataDir())

	info, err := os.Stat(filepath.Join(dir, "toastd"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
