package daemon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/model"
)

// SourceInternal marks toasts toastd posts about itself.
const SourceInternal = model.SourceInternal

// internalDuration is how long internal toasts stay up.
const internalDuration = 5 * time.Second

// audioErrorInterval is the least time between audio error toasts, whatever
// min_interval says. A broken sound fails on every toast.
const audioErrorInterval = config.DefaultMinInterval

// Poster posts toasts. *center.Center satisfies it.
type Poster interface {
	Notify(message string, kind model.Kind, opts model.Options) (string, error)
}

// InternalNotifier posts toasts about toastd's own events.
// The same key is not posted again within minInterval.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger
	poster Poster
	now    func() time.Time

	// Rate limiting
	lastNotifyTime map[string]time.Time
	minInterval    time.Duration

	enabled bool
}

// NewInternalNotifier creates an InternalNotifier posting through p.
func NewInternalNotifier(p Poster, logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:         logger,
		poster:         p,
		now:            time.Now,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    config.DefaultMinInterval,
		enabled:        true,
	}
}

// SetEnabled enables or disables internal notifications.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between toasts with the same key.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify posts message unless key was posted within minInterval. It reports
// whether a toast was posted.
func (n *InternalNotifier) Notify(key, message string, kind model.Kind) bool {
	return n.notify(key, message, kind, 0)
}

// notify is Notify with a lower bound on the key's interval.
func (n *InternalNotifier) notify(key, message string, kind model.Kind, floor time.Duration) bool {
	n.mu.Lock()
	if !n.enabled || n.poster == nil {
		n.mu.Unlock()
		return false
	}

	interval := max(n.minInterval, floor)
	now := n.now()
	if last, ok := n.lastNotifyTime[key]; ok && now.Sub(last) < interval {
		n.mu.Unlock()
		n.logger.Debug("internal notification rate-limited", "key", key)
		return false
	}
	n.lastNotifyTime[key] = now
	n.mu.Unlock()

	id, err := n.poster.Notify(message, kind, model.Options{
		Duration: internalDuration,
		Source:   SourceInternal,
	})
	if err != nil {
		n.logger.Debug("internal notification dropped", "key", key, "error", err)
		return false
	}

	n.logger.Debug("sent internal notification", "key", key, "notification_id", id, "kind", kind)
	return true
}

// NotifyStartup announces that the daemon is running.
func (n *InternalNotifier) NotifyStartup(version string) {
	n.Notify("startup", "toastd "+version+" is running", model.KindInfo)
}

// NotifyConfigReloaded announces a successful config reload.
func (n *InternalNotifier) NotifyConfigReloaded() {
	n.Notify("config-reload", "Configuration reloaded", model.KindInfo)
}

// NotifyConfigError reports a config file that failed to load.
func (n *InternalNotifier) NotifyConfigError(err error) {
	n.Notify("config-error", "Configuration not reloaded: "+err.Error(), model.KindWarning)
}

// NotifyAudioError reports a sound that failed to play.
func (n *InternalNotifier) NotifyAudioError(err error) {
	n.notify("audio-error", "Failed to play notification sound: "+err.Error(), model.KindWarning, audioErrorInterval)
}
