package audio

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher drops cached sounds when their files change on disk.
type Watcher struct {
	mu      sync.Mutex
	logger  *slog.Logger
	player  *Player
	watcher *fsnotify.Watcher

	paths map[string]bool // watched sound files
	dirs  map[string]bool // directories registered with fsnotify

	done chan struct{}
}

// NewWatcher creates a sound file watcher for player.
func NewWatcher(player *Player, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		logger:  logger,
		player:  player,
		watcher: fw,
		paths:   make(map[string]bool),
		dirs:    make(map[string]bool),
		done:    make(chan struct{}),
	}
	go w.watch()
	return w, nil
}

// Watch adds a sound file. Its directory is watched so replacing the file
// is noticed too.
func (w *Watcher) Watch(path string) error {
	if path == "" {
		return nil
	}
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.paths[path] = true

	dir := filepath.Dir(path)
	if w.dirs[dir] {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

// Reset forgets every watched file.
func (w *Watcher) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for dir := range w.dirs {
		_ = w.watcher.Remove(dir)
	}
	w.paths = make(map[string]bool)
	w.dirs = make(map[string]bool)
}

func (w *Watcher) watch() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			path := filepath.Clean(event.Name)
			w.mu.Lock()
			watched := w.paths[path]
			w.mu.Unlock()

			if watched {
				w.logger.Debug("sound file changed, invalidating cache", "path", path)
				w.player.InvalidateCache(path)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("sound watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}
	close(w.done)
	_ = w.watcher.Close()
}
