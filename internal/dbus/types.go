package dbus

import (
	"fmt"
	"math"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/toastd/internal/model"
)

// MaxDuration is the longest duration an int32 millisecond field can carry,
// a little under 25 days.
const MaxDuration = math.MaxInt32 * time.Millisecond

// durationMillis converts d for an int32 millisecond field, saturating at
// MaxDuration instead of wrapping negative.
func durationMillis(d time.Duration) int32 {
	if d >= MaxDuration {
		return math.MaxInt32
	}
	if d <= 0 {
		return 0
	}
	return int32(d.Milliseconds())
}

// Urgency levels used by org.freedesktop.Notifications.
const (
	UrgencyLow      byte = 0
	UrgencyNormal   byte = 1
	UrgencyCritical byte = 2
)

// ToastInfo is the wire form of an active toast returned by List.
// D-Bus signature: (sssxxas)
type ToastInfo struct {
	ID        string
	Message   string
	Kind      string
	CreatedAt int64    // Unix milliseconds
	ExpiresAt int64    // Unix milliseconds, 0 = never
	Actions   []string // Alternating key, label pairs
}

// toToastInfo converts an active notification to its wire form.
func toToastInfo(n model.Notification) ToastInfo {
	info := ToastInfo{
		ID:        n.ID,
		Message:   n.Message,
		Kind:      string(n.Kind),
		CreatedAt: n.CreatedAt.UnixMilli(),
		Actions:   FormatActions(n.Actions, n.ActionKey),
	}
	if !n.ExpiresAt.IsZero() {
		info.ExpiresAt = n.ExpiresAt.UnixMilli()
	}
	return info
}

// Notification converts the wire form back into a model.Notification.
// Action effects are not transferable and stay nil.
func (t ToastInfo) Notification() model.Notification {
	n := model.Notification{
		ID:        t.ID,
		Message:   t.Message,
		Kind:      model.Kind(t.Kind),
		CreatedAt: time.UnixMilli(t.CreatedAt),
	}
	n.Actions, _ = ParseActions(t.Actions)
	if t.ExpiresAt > 0 {
		n.ExpiresAt = time.UnixMilli(t.ExpiresAt)
		n.Duration = n.ExpiresAt.Sub(n.CreatedAt)
	} else {
		n.Sticky = true
	}
	return n
}

// ParseActions converts alternating key/label pairs into actions. The first
// action is primary, the rest secondary.
func ParseActions(pairs []string) ([]model.Action, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("actions must be key/label pairs, got %d values", len(pairs))
	}
	if len(pairs) == 0 {
		return nil, nil
	}

	actions := make([]model.Action, 0, len(pairs)/2)
	seen := make(map[string]bool, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		key, label := pairs[i], pairs[i+1]
		if key == "" {
			return nil, fmt.Errorf("action %d has an empty key", i/2)
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate action key %q", key)
		}
		seen[key] = true

		variant := model.VariantSecondary
		if i == 0 {
			variant = model.VariantPrimary
		}
		actions = append(actions, model.Action{Key: key, Label: label, Variant: variant})
	}
	return actions, nil
}

// FormatActions flattens actions into alternating key/label pairs. keyOf
// supplies the effective key for each index.
func FormatActions(actions []model.Action, keyOf func(int) string) []string {
	if len(actions) == 0 {
		return []string{}
	}
	pairs := make([]string, 0, len(actions)*2)
	for i, a := range actions {
		pairs = append(pairs, keyOf(i), a.Label)
	}
	return pairs
}

// UrgencyForKind maps a toast kind to a freedesktop urgency level.
func UrgencyForKind(kind model.Kind) byte {
	switch kind {
	case model.KindError:
		return UrgencyCritical
	case model.KindInfo:
		return UrgencyLow
	default:
		return UrgencyNormal
	}
}

// IconForKind returns the freedesktop icon name for a toast kind.
func IconForKind(kind model.Kind) string {
	switch kind {
	case model.KindError:
		return "dialog-error"
	case model.KindWarning:
		return "dialog-warning"
	case model.KindInfo:
		return "dialog-information"
	default:
		return "emblem-ok-symbolic"
	}
}

// desktopNotification is an outgoing org.freedesktop.Notifications.Notify call.
type desktopNotification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // Alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// newDesktopNotification builds the desktop request mirroring n.
func newDesktopNotification(n model.Notification) desktopNotification {
	expire := int32(0)
	if !n.Sticky {
		expire = durationMillis(n.Duration)
	}

	return desktopNotification{
		AppName: AppName,
		AppIcon: IconForKind(n.Kind),
		Summary: kindTitle(n.Kind),
		Body:    n.Message,
		Actions: FormatActions(n.Actions, n.ActionKey),
		Hints: map[string]dbus.Variant{
			"urgency":       dbus.MakeVariant(UrgencyForKind(n.Kind)),
			"desktop-entry": dbus.MakeVariant(AppName),
			"transient":     dbus.MakeVariant(true),
		},
		ExpireTimeout: expire,
	}
}

func kindTitle(kind model.Kind) string {
	switch kind {
	case model.KindError:
		return "Error"
	case model.KindWarning:
		return "Warning"
	case model.KindInfo:
		return "Info"
	default:
		return "Success"
	}
}

// ServerInfo describes the running daemon.
type ServerInfo struct {
	Name    string
	Vendor  string
	Version string
}

// DefaultServerInfo returns the server information with a development version.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		Name:    AppName,
		Vendor:  "toastd",
		Version: "dev",
	}
}
