package daemon

import (
	"log/slog"
	"sync"

	"github.com/jmylchreest/toastd/internal/center"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/store"
)

// Recorder writes a history entry for every toast that leaves the center.
type Recorder struct {
	store  *store.Store
	logger *slog.Logger

	mu         sync.Mutex
	maxEntries int
	enabled    bool
}

// NewRecorder creates a Recorder writing to s. maxEntries of 0 keeps
// everything.
func NewRecorder(s *store.Store, maxEntries int, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:      s,
		logger:     logger,
		maxEntries: maxEntries,
		enabled:    true,
	}
}

// SetEnabled turns recording on or off.
func (r *Recorder) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

// SetMaxEntries changes the history cap. The next recorded toast trims to it.
func (r *Recorder) SetMaxEntries(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxEntries = n
}

// Handle is a center subscriber.
func (r *Recorder) Handle(ev center.Event) {
	if ev.Type != center.EventClosed {
		return
	}

	r.mu.Lock()
	enabled, maxEntries := r.enabled, r.maxEntries
	r.mu.Unlock()
	if !enabled {
		return
	}

	entry := model.NewHistoryEntry(ev.Notification, ev.Reason, ev.ActionKey, ev.At)
	if err := r.store.Add(entry); err != nil {
		r.logger.Error("failed to record notification", "notification_id", entry.ID, "error", err)
		return
	}

	if maxEntries > 0 && r.store.Count() > maxEntries {
		removed, err := r.store.Prune(0, maxEntries)
		if err != nil {
			r.logger.Error("failed to trim history", "error", err)
			return
		}
		r.logger.Debug("trimmed history", "removed", removed, "max_entries", maxEntries)
	}
}
