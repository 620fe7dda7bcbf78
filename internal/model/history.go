package model

import (
	"errors"
	"fmt"
	"time"
)

// HistoryEntry is the persisted record of a closed toast.
type HistoryEntry struct {
	ID        string      `json:"id" yaml:"id"`
	Message   string      `json:"message" yaml:"message"`
	Kind      Kind        `json:"kind" yaml:"kind"`
	Source    string      `json:"source,omitempty" yaml:"source,omitempty"`
	Actions   []Action    `json:"actions,omitempty" yaml:"actions,omitempty"`
	CreatedAt int64       `json:"created_at" yaml:"created_at"` // Unix milliseconds
	ClosedAt  int64       `json:"closed_at" yaml:"closed_at"`   // Unix milliseconds
	Reason    CloseReason `json:"reason" yaml:"reason"`
	ActionKey string      `json:"action_key,omitempty" yaml:"action_key,omitempty"` // Set when Reason is action
}

// Validation errors.
var (
	ErrEmptyID          = errors.New("id cannot be empty")
	ErrInvalidTimestamp = errors.New("created_at must be greater than 0")
	ErrInvalidReason    = errors.New("reason must be set")
)

// NewHistoryEntry builds the record for a toast that closed at closedAt.
func NewHistoryEntry(n Notification, reason CloseReason, actionKey string, closedAt time.Time) HistoryEntry {
	entry := HistoryEntry{
		ID:        n.ID,
		Message:   n.Message,
		Kind:      n.Kind,
		Source:    n.Source,
		CreatedAt: n.CreatedAt.UnixMilli(),
		ClosedAt:  closedAt.UnixMilli(),
		Reason:    reason,
		ActionKey: actionKey,
	}
	// Effects are not serializable; keep only what describes the buttons.
	for i, a := range n.Actions {
		entry.Actions = append(entry.Actions, Action{Key: n.ActionKey(i), Label: a.Label, Variant: a.Variant})
	}
	return entry
}

// Validate checks that the entry has all required fields.
func (e *HistoryEntry) Validate() error {
	if e.ID == "" {
		return ErrEmptyID
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: got %q", ErrInvalidKind, e.Kind)
	}
	if e.CreatedAt <= 0 {
		return ErrInvalidTimestamp
	}
	if e.Reason == "" {
		return ErrInvalidReason
	}
	return nil
}

// CreatedTime returns the creation time.
func (e *HistoryEntry) CreatedTime() time.Time {
	return time.UnixMilli(e.CreatedAt)
}

// ClosedTime returns the close time.
func (e *HistoryEntry) ClosedTime() time.Time {
	return time.UnixMilli(e.ClosedAt)
}

// Lifetime returns how long the toast was on screen.
func (e *HistoryEntry) Lifetime() time.Duration {
	if e.ClosedAt < e.CreatedAt {
		return 0
	}
	return time.Duration(e.ClosedAt-e.CreatedAt) * time.Millisecond
}
