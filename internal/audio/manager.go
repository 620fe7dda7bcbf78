package audio

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/jmylchreest/toastd/internal/center"
	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/model"
)

// Manager plays the configured sound for each new toast's kind.
type Manager struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	player  *Player
	watcher *Watcher

	enabled bool
	sounds  map[model.Kind]string

	onError func(err error)
}

// NewManager creates a manager configured from cfg.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	return newManager(cfg, NewPlayer(logger), logger)
}

func newManager(cfg *config.Config, player *Player, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		logger: logger,
		player: player,
		sounds: make(map[model.Kind]string),
	}
	m.applyConfig(cfg)
	return m
}

// applyConfig picks up volume, the enabled flag and the per-kind sound files.
// Files that do not exist are logged and skipped.
func (m *Manager) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}

	sounds := make(map[model.Kind]string)
	for _, kind := range model.Kinds() {
		path := cfg.SoundForKind(kind)
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			m.logger.Warn("sound file not found", "kind", kind, "path", path)
			continue
		}
		sounds[kind] = path
	}

	m.player.SetVolume(float64(cfg.Audio.Volume) / 100.0)

	m.mu.Lock()
	m.enabled = cfg.Audio.Enabled
	m.sounds = sounds
	m.mu.Unlock()
}

// SetErrorCallback sets a function called when playback fails.
func (m *Manager) SetErrorCallback(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = fn
}

// Start preloads the configured sounds and watches them for changes.
func (m *Manager) Start(ctx context.Context) error {
	w, err := NewWatcher(m.player, m.logger)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.watcher = w
	m.mu.Unlock()

	m.preloadAndWatch()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	m.logger.Info("audio manager started", "sounds", len(m.soundPaths()))
	return nil
}

func (m *Manager) preloadAndWatch() {
	m.mu.RLock()
	w := m.watcher
	m.mu.RUnlock()

	for _, path := range m.soundPaths() {
		if err := m.player.Preload(path); err != nil {
			m.logger.Warn("failed to preload sound", "path", path, "error", err)
		}
		if w != nil {
			if err := w.Watch(path); err != nil {
				m.logger.Debug("failed to watch sound file", "path", path, "error", err)
			}
		}
	}
}

func (m *Manager) soundPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := make([]string, 0, len(m.sounds))
	for _, p := range m.sounds {
		paths = append(paths, p)
	}
	return paths
}

// Stop shuts down playback and the watcher.
func (m *Manager) Stop() {
	m.mu.RLock()
	w := m.watcher
	m.mu.RUnlock()

	if w != nil {
		w.Stop()
	}
	m.player.Close()
	m.logger.Debug("audio manager stopped")
}

// Handle is a center subscriber. New toasts play their kind's sound in the
// background so event delivery is never held up by decoding. Failures on
// toastd's own toasts are only logged, since reporting them would post
// another internal toast.
func (m *Manager) Handle(ev center.Event) {
	if ev.Type != center.EventCreated {
		return
	}

	kind := ev.Notification.Kind
	internal := ev.Notification.Source == model.SourceInternal
	go func() {
		if err := m.PlayForKind(kind); err != nil {
			m.logger.Debug("failed to play sound", "kind", kind, "error", err)
			if internal {
				return
			}

			m.mu.RLock()
			onError := m.onError
			m.mu.RUnlock()
			if onError != nil {
				onError(err)
			}
		}
	}()
}

// PlayForKind plays the sound configured for kind, if audio is enabled.
func (m *Manager) PlayForKind(kind model.Kind) error {
	path, ok := m.SoundFor(kind)
	if !ok {
		return nil
	}
	return m.player.Play(path)
}

// SoundFor returns the sound that would play for kind.
func (m *Manager) SoundFor(kind model.Kind) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.enabled {
		return "", false
	}
	path, ok := m.sounds[kind]
	return path, ok
}

// UpdateConfig applies a hot-reloaded configuration.
func (m *Manager) UpdateConfig(cfg *config.Config) {
	m.player.ClearCache()

	m.mu.RLock()
	w := m.watcher
	m.mu.RUnlock()
	if w != nil {
		w.Reset()
	}

	m.applyConfig(cfg)
	m.preloadAndWatch()
	m.logger.Debug("audio manager config updated")
}
