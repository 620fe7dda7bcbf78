package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmylchreest/toastd/internal/audio"
	"github.com/jmylchreest/toastd/internal/center"
	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/dbus"
	"github.com/jmylchreest/toastd/internal/store"
)

// Options configures a Daemon.
type Options struct {
	ConfigPath string // Empty = default config path
	Version    string
	NoDBus     bool // Run without claiming the bus name
	Logger     *slog.Logger
}

// Daemon hosts the session's notification center and everything around it.
type Daemon struct {
	opts   Options
	logger *slog.Logger

	mu  sync.RWMutex
	cfg *config.Config

	center         *center.Center
	history        *store.Store
	historyWatcher *store.FileWatcher
	recorder       *Recorder
	notifier       *InternalNotifier
	audio          *audio.Manager
	server         *dbus.Server
	mirror         *dbus.DesktopMirror
	configWatcher  *ConfigWatcher
	unsubscribe    []func()

	ready chan struct{}
}

// New loads the configuration and prepares a Daemon. Nothing is started
// until Run.
func New(opts Options) (*Daemon, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	return &Daemon{
		opts:   opts,
		logger: opts.Logger,
		cfg:    cfg,
		ready:  make(chan struct{}),
	}, nil
}

// Ready is closed once Run has started every component.
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

// Center returns the notification center. It is nil before Run.
func (d *Daemon) Center() *center.Center {
	return d.center
}

// Config returns the active configuration.
func (d *Daemon) Config() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// Run starts every component, blocks until ctx is done, then shuts down.
func (d *Daemon) Run(ctx context.Context) error {
	cfg := d.Config()
	d.logger.Info("starting toastd", "version", d.opts.Version)

	d.center = center.New(d.logger,
		center.WithDefaultDuration(cfg.Notifications.DefaultDuration.Duration()),
		center.WithStickyKinds(cfg.StickyKinds()...),
	)

	if err := d.startHistory(cfg); err != nil {
		d.shutdown()
		return err
	}

	d.notifier = NewInternalNotifier(d.center, d.logger)
	d.notifier.SetMinInterval(cfg.Internal.MinInterval.Duration())

	d.audio = audio.NewManager(cfg, d.logger)
	d.audio.SetErrorCallback(d.notifier.NotifyAudioError)
	if err := d.audio.Start(ctx); err != nil {
		d.logger.Warn("failed to start audio manager", "error", err)
	}
	d.subscribe(d.audio.Handle)

	if err := d.startDBus(cfg); err != nil {
		d.shutdown()
		return err
	}

	d.configWatcher = NewConfigWatcher(d.opts.ConfigPath, d.logger)
	d.configWatcher.SetReloadCallback(d.applyConfig)
	d.configWatcher.SetErrorCallback(func(err error) {
		if d.Config().Internal.NotifyOnReload {
			d.notifier.NotifyConfigError(err)
		}
	})
	if err := d.configWatcher.Start(ctx, cfg); err != nil {
		d.logger.Warn("failed to start config watcher", "error", err)
	}

	d.notifier.NotifyStartup(d.opts.Version)
	d.logger.Info("toastd ready")
	close(d.ready)

	<-ctx.Done()
	d.logger.Info("shutting down", "reason", context.Cause(ctx))
	d.shutdown()
	return nil
}

func (d *Daemon) startHistory(cfg *config.Config) error {
	path := cfg.HistoryPath()

	persistence, err := store.NewJSONLPersistence(path)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}

	d.history = store.NewStore(persistence)
	if err := d.history.Hydrate(); err != nil {
		d.logger.Warn("failed to hydrate history", "error", err)
	}
	d.logger.Info("history store initialized", "path", path, "count", d.history.Count())

	d.recorder = NewRecorder(d.history, cfg.History.MaxEntries, d.logger)
	d.recorder.SetEnabled(cfg.History.Enabled)
	d.subscribe(d.recorder.Handle)

	// Picks up prune and clear done by the CLI
	d.historyWatcher, err = store.NewFileWatcher(d.history, path, d.logger)
	if err != nil {
		d.logger.Warn("failed to create history watcher", "error", err)
		return nil
	}
	if err := d.historyWatcher.Start(); err != nil {
		d.logger.Warn("failed to start history watcher", "error", err)
	}
	return nil
}

func (d *Daemon) startDBus(cfg *config.Config) error {
	if d.opts.NoDBus || !cfg.DBus.Enabled {
		d.logger.Info("D-Bus disabled")
		return nil
	}

	d.server = dbus.NewServer(d.center, d.logger)
	d.server.SetServerInfo(dbus.ServerInfo{
		Name:    dbus.AppName,
		Vendor:  "toastd",
		Version: d.opts.Version,
	})
	if err := d.server.Start(); err != nil {
		d.server = nil
		if errors.Is(err, dbus.ErrAlreadyRunning) {
			return err
		}
		return fmt.Errorf("failed to start D-Bus server: %w", err)
	}

	if cfg.DBus.MirrorDesktop {
		d.mirror = dbus.NewDesktopMirror(d.center, d.logger)
		if err := d.mirror.Start(); err != nil {
			d.logger.Warn("failed to start desktop mirror", "error", err)
			d.mirror = nil
		}
	}
	return nil
}

func (d *Daemon) subscribe(fn center.Subscriber) {
	d.unsubscribe = append(d.unsubscribe, d.center.Subscribe(fn))
}

// applyConfig is the hot reload callback.
func (d *Daemon) applyConfig(cfg *config.Config) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()

	d.center.SetDefaultDuration(cfg.Notifications.DefaultDuration.Duration())
	d.center.SetStickyKinds(cfg.StickyKinds()...)

	if d.recorder != nil {
		d.recorder.SetEnabled(cfg.History.Enabled)
		d.recorder.SetMaxEntries(cfg.History.MaxEntries)
	}
	if d.audio != nil {
		d.audio.UpdateConfig(cfg)
	}
	d.notifier.SetMinInterval(cfg.Internal.MinInterval.Duration())

	if cfg.Internal.NotifyOnReload {
		d.notifier.NotifyConfigReloaded()
	}
}

// shutdown stops components in reverse order. The center closes before the
// history so toasts still up are recorded with reason shutdown.
func (d *Daemon) shutdown() {
	if d.configWatcher != nil {
		d.configWatcher.Stop()
	}

	if d.center != nil {
		if err := d.center.Close(); err != nil {
			d.logger.Warn("error closing center", "error", err)
		}
	}
	for _, unsubscribe := range d.unsubscribe {
		unsubscribe()
	}
	d.unsubscribe = nil

	if d.mirror != nil {
		if err := d.mirror.Stop(); err != nil {
			d.logger.Warn("error stopping desktop mirror", "error", err)
		}
	}
	if d.server != nil {
		if err := d.server.Stop(); err != nil {
			d.logger.Warn("error stopping D-Bus server", "error", err)
		}
	}
	if d.audio != nil {
		d.audio.Stop()
	}
	if d.historyWatcher != nil {
		if err := d.historyWatcher.Stop(); err != nil {
			d.logger.Warn("error stopping history watcher", "error", err)
		}
	}
	if d.history != nil {
		if err := d.history.Close(); err != nil {
			d.logger.Warn("error closing history", "error", err)
		}
	}

	d.logger.Info("toastd stopped")
}
