// Package model defines the core data structures for toastd.
package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the severity of a toast. It drives presentation only, never behavior.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
)

// DefaultKind is used when a caller does not pick a kind.
const DefaultKind = KindSuccess

// DefaultDuration is how long a toast stays visible unless configured otherwise.
const DefaultDuration = 5 * time.Second

// Kinds returns all valid kinds in display order.
func Kinds() []Kind {
	return []Kind{KindSuccess, KindError, KindInfo, KindWarning}
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSuccess, KindError, KindInfo, KindWarning:
		return true
	}
	return false
}

// ErrInvalidKind is returned by ParseKind for unknown kind names.
var ErrInvalidKind = errors.New("kind must be one of success, error, info, warning")

// ParseKind parses a kind name. An empty string yields DefaultKind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultKind, nil
	}
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: got %q", ErrInvalidKind, s)
	}
	return k, nil
}

// Variant is the visual weight of an action button.
type Variant string

const (
	VariantPrimary   Variant = "primary"
	VariantSecondary Variant = "secondary"
)

// Action is a button attached to a toast. Effect is supplied by the requester
// and is opaque to toastd.
type Action struct {
	Key     string  `json:"key" yaml:"key"`
	Label   string  `json:"label" yaml:"label"`
	Variant Variant `json:"variant" yaml:"variant"`
	Effect  func()  `json:"-" yaml:"-"`
}

// SourceInternal marks toasts toastd posts about itself.
const SourceInternal = "toastd"

// Options carries the optional parts of a notify request.
type Options struct {
	Actions []Action
	// Duration <= 0 means unspecified; the center's default applies.
	Duration time.Duration
	// Sticky toasts never expire on their own.
	Sticky bool
	// Source names the requester (e.g. "cli", "dbus", "toastd").
	Source string
}

// Notification is a single toast. It is never mutated after creation.
type Notification struct {
	ID        string        `json:"id" yaml:"id"`
	Message   string        `json:"message" yaml:"message"`
	Kind      Kind          `json:"kind" yaml:"kind"`
	Actions   []Action      `json:"actions,omitempty" yaml:"actions,omitempty"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Sticky    bool          `json:"sticky,omitempty" yaml:"sticky,omitempty"`
	Source    string        `json:"source,omitempty" yaml:"source,omitempty"`
	CreatedAt time.Time     `json:"created_at" yaml:"created_at"`
	ExpiresAt time.Time     `json:"expires_at,omitzero" yaml:"expires_at,omitempty"` // Zero means never
}

// Clone returns a copy that shares nothing mutable with n.
func (n Notification) Clone() Notification {
	clone := n
	if n.Actions != nil {
		clone.Actions = make([]Action, len(n.Actions))
		copy(clone.Actions, n.Actions)
	}
	return clone
}

// ActionKey returns the key of the action at index i. Actions without an
// explicit key are addressed by their index.
func (n Notification) ActionKey(i int) string {
	if i < 0 || i >= len(n.Actions) {
		return ""
	}
	if n.Actions[i].Key != "" {
		return n.Actions[i].Key
	}
	return strconv.Itoa(i)
}

// ActionIndex resolves an action key to its index, or -1.
func (n Notification) ActionIndex(key string) int {
	for i := range n.Actions {
		if n.ActionKey(i) == key {
			return i
		}
	}
	return -1
}

// Remaining returns the time left before expiry, or 0 for sticky toasts.
func (n Notification) Remaining(now time.Time) time.Duration {
	if n.ExpiresAt.IsZero() {
		return 0
	}
	if d := n.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// CloseReason explains why a toast left the active set.
type CloseReason string

const (
	CloseReasonExpired   CloseReason = "expired"
	CloseReasonDismissed CloseReason = "dismissed"
	CloseReasonAction    CloseReason = "action"
	CloseReasonShutdown  CloseReason = "shutdown"
)

// FreedesktopCode maps the reason onto the NotificationClosed reason codes of
// the freedesktop notification specification.
func (r CloseReason) FreedesktopCode() uint32 {
	switch r {
	case CloseReasonExpired:
		return 1
	case CloseReasonDismissed, CloseReasonAction:
		return 2
	case CloseReasonShutdown:
		return 3
	default:
		return 4
	}
}

// ParseCloseReason parses a close reason name.
func ParseCloseReason(s string) (CloseReason, error) {
	r := CloseReason(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case CloseReasonExpired, CloseReasonDismissed, CloseReasonAction, CloseReasonShutdown:
		return r, nil
	}
	return "", fmt.Errorf("invalid close reason %q", s)
}
