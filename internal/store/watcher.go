package store

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long the history file must be quiet before a rehydrate.
// Rewrite and Clear rename the file to .bak, recreate it and write it again,
// so rehydrating on the first event would load a header-only file.
const settleDelay = 100 * time.Millisecond

// historyOps are the operations that change what Load returns.
const historyOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

// FileWatcher rehydrates a store whenever another process changes its history
// file: the daemon appending, or the CLI pruning and clearing.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	store    *Store
	filePath string
	logger   *slog.Logger
	settle   time.Duration

	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// NewFileWatcher creates a watcher for filePath backing store.
func NewFileWatcher(store *Store, filePath string, logger *slog.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		watcher:  watcher,
		store:    store,
		filePath: filePath,
		logger:   logger,
		settle:   settleDelay,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. The parent directory is watched because the file
// itself is replaced on rewrite.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.running {
		return nil
	}

	if err := fw.watcher.Add(filepath.Dir(fw.filePath)); err != nil {
		return err
	}
	fw.running = true

	go fw.watch()
	return nil
}

// watch collects history file events and rehydrates once they settle.
// Siblings such as the .bak and .corrupted.* files are ignored.
func (fw *FileWatcher) watch() {
	filename := filepath.Base(fw.filePath)

	var (
		timer   *time.Timer
		settled <-chan time.Time
		pending int
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename || event.Op&historyOps == 0 {
				continue
			}
			pending++
			if timer == nil {
				timer = time.NewTimer(fw.settle)
			} else {
				timer.Reset(fw.settle)
			}
			settled = timer.C

		case <-settled:
			settled = nil
			fw.logger.Debug("history file changed, rehydrating", "file", fw.filePath, "events", pending)
			pending = 0
			if err := fw.store.Hydrate(); err != nil {
				fw.logger.Warn("failed to rehydrate history", "error", err)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("history watcher error", "error", err)

		case <-fw.done:
			return
		}
	}
}

// Stop stops the watcher. It is safe to call more than once.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	select {
	case <-fw.done:
		return nil
	default:
	}

	fw.running = false
	close(fw.done)
	return fw.watcher.Close()
}
