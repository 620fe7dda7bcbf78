// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/toastd/internal/model"
)

// Default configuration values.
const (
	DefaultMaxHistory  = 1000
	DefaultVolume      = 80
	DefaultMinInterval = 5 * time.Second

	DefaultRefreshInterval = 250 * time.Millisecond
)

// Config is the configuration for toastd and the toast CLI.
// Loaded from ~/.config/toastd/toastd.toml
type Config struct {
	Notifications NotificationsConfig `toml:"notifications"`
	History       HistoryConfig       `toml:"history"`
	Audio         AudioConfig         `toml:"audio"`
	DBus          DBusConfig          `toml:"dbus"`
	Internal      InternalConfig      `toml:"internal"`
	TUI           TUIConfig           `toml:"tui"`
	Templates     TemplatesConfig     `toml:"templates"`
}

// NotificationsConfig controls toast lifetimes.
type NotificationsConfig struct {
	DefaultDuration Duration `toml:"default_duration"` // e.g. "5s" or 5000
	StickyErrors    bool     `toml:"sticky_errors"`    // Error toasts stay until dismissed
}

// HistoryConfig controls the closed-toast history.
type HistoryConfig struct {
	Enabled    bool   `toml:"enabled"`
	Path       string `toml:"path"`        // Empty = XDG data dir
	MaxEntries int    `toml:"max_entries"` // 0 = unlimited
}

// AudioConfig contains audio settings.
type AudioConfig struct {
	Enabled bool        `toml:"enabled"`
	Volume  int         `toml:"volume"` // 0-100
	Sounds  SoundConfig `toml:"sounds"`
}

// SoundConfig contains per-kind sound file paths.
type SoundConfig struct {
	Success string `toml:"success"`
	Error   string `toml:"error"`
	Info    string `toml:"info"`
	Warning string `toml:"warning"`
}

// DBusConfig contains session bus settings.
type DBusConfig struct {
	Enabled       bool `toml:"enabled"`
	MirrorDesktop bool `toml:"mirror_desktop"` // Forward toasts to org.freedesktop.Notifications
}

// InternalConfig controls toasts toastd posts about itself.
type InternalConfig struct {
	NotifyOnReload bool     `toml:"notify_on_reload"`
	MinInterval    Duration `toml:"min_interval"` // Rate limit per internal event key
}

// TUIConfig holds terminal UI settings.
type TUIConfig struct {
	ClipboardCommand string   `toml:"clipboard_command"` // Empty = auto-detect wl-copy, xclip, xsel
	RefreshInterval  Duration `toml:"refresh_interval"`
	Theme            string   `toml:"theme"` // Bundled name or a file under the themes directory
}

// TemplatesConfig holds default Go templates for CLI output. Empty uses the
// built-in layout.
type TemplatesConfig struct {
	Dmenu string `toml:"dmenu"`
	Plain string `toml:"plain"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Notifications: NotificationsConfig{
			DefaultDuration: Duration(model.DefaultDuration),
			StickyErrors:    false,
		},
		History: HistoryConfig{
			Enabled:    true,
			Path:       "",
			MaxEntries: DefaultMaxHistory,
		},
		Audio: AudioConfig{
			Enabled: false,
			Volume:  DefaultVolume,
		},
		DBus: DBusConfig{
			Enabled:       true,
			MirrorDesktop: false,
		},
		Internal: InternalConfig{
			NotifyOnReload: true,
			MinInterval:    Duration(DefaultMinInterval),
		},
		TUI: TUIConfig{
			RefreshInterval: Duration(DefaultRefreshInterval),
			Theme:           "default",
		},
	}
}

// ThemesDir returns the directory searched for user TUI themes.
func ThemesDir() string {
	path := ConfigPath()
	if path == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(path), "themes")
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "toastd", "toastd.toml")
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "toastd")
}

// HistoryPath returns the configured history file, or the default one.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return expandPath(c.History.Path)
	}
	return filepath.Join(DataPath(), "history.jsonl")
}

// Load loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if the file doesn't exist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	// Start with defaults, then overlay with file contents
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path atomically.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Notifications.DefaultDuration.Duration() <= 0 {
		return fmt.Errorf("default_duration must be positive, got %s", c.Notifications.DefaultDuration.Duration())
	}
	if c.History.MaxEntries < 0 {
		return fmt.Errorf("max_entries must not be negative, got %d", c.History.MaxEntries)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}
	if c.Internal.MinInterval.Duration() < 0 {
		return fmt.Errorf("min_interval must not be negative, got %s", c.Internal.MinInterval.Duration())
	}
	if c.TUI.RefreshInterval.Duration() <= 0 {
		return fmt.Errorf("refresh_interval must be positive, got %s", c.TUI.RefreshInterval.Duration())
	}
	return nil
}

// StickyKinds returns the kinds that should never auto-expire.
func (c *Config) StickyKinds() []model.Kind {
	if c.Notifications.StickyErrors {
		return []model.Kind{model.KindError}
	}
	return nil
}

// SoundForKind returns the sound file path for the given kind.
// Expands ~ to home directory.
func (c *Config) SoundForKind(kind model.Kind) string {
	var path string
	switch kind {
	case model.KindSuccess:
		path = c.Audio.Sounds.Success
	case model.KindError:
		path = c.Audio.Sounds.Error
	case model.KindWarning:
		path = c.Audio.Sounds.Warning
	default:
		path = c.Audio.Sounds.Info
	}
	return expandPath(path)
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	path := DataPath()
	if path == "" {
		return errors.New("unable to determine data directory")
	}
	return os.MkdirAll(path, 0755)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
