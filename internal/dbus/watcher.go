package dbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/toastd/internal/model"
)

// Closed is how a watched toast left the screen.
type Closed struct {
	Reason    model.CloseReason
	ActionKey string // Set when Reason is action
}

// Watcher follows the daemon's signals for a single client.
type Watcher struct {
	conn    *dbus.Conn
	signals chan *dbus.Signal
	match   []dbus.MatchOption

	actions map[string]string // toast id -> invoked action key
}

// Watch subscribes to the daemon's signals. Create the watcher before
// posting the toast so that a short-lived one cannot be missed.
func (c *Client) Watch() (*Watcher, error) {
	match := []dbus.MatchOption{
		dbus.WithMatchObjectPath(Path),
		dbus.WithMatchInterface(Interface),
	}
	if err := c.conn.AddMatchSignal(match...); err != nil {
		return nil, fmt.Errorf("failed to add match rule: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	c.conn.Signal(signals)

	return &Watcher{
		conn:    c.conn,
		signals: signals,
		match:   match,
		actions: make(map[string]string),
	}, nil
}

// Wait blocks until the toast id closes or ctx is done.
func (w *Watcher) Wait(ctx context.Context, id string) (Closed, error) {
	for {
		select {
		case <-ctx.Done():
			return Closed{}, ctx.Err()
		case sig, ok := <-w.signals:
			if !ok {
				return Closed{}, errors.New("session bus connection closed")
			}
			if closed, done := w.handle(sig, id); done {
				return closed, nil
			}
		}
	}
}

// handle folds one signal into the watcher's state and reports whether id
// has closed. ActionInvoked precedes NotificationClosed for the same toast.
func (w *Watcher) handle(sig *dbus.Signal, id string) (Closed, bool) {
	if len(sig.Body) < 2 {
		return Closed{}, false
	}
	toastID, ok := sig.Body[0].(string)
	if !ok || toastID != id {
		return Closed{}, false
	}

	switch sig.Name {
	case Interface + ".ActionInvoked":
		if key, ok := sig.Body[1].(string); ok {
			w.actions[toastID] = key
		}
	case Interface + ".NotificationClosed":
		code, _ := sig.Body[1].(uint32)
		key := w.actions[toastID]
		delete(w.actions, toastID)
		return Closed{Reason: closeReasonFromCode(code, key), ActionKey: key}, true
	}
	return Closed{}, false
}

// Close stops following signals. The client connection stays open.
func (w *Watcher) Close() error {
	w.conn.RemoveSignal(w.signals)
	return w.conn.RemoveMatchSignal(w.match...)
}

// closeReasonFromCode maps a NotificationClosed code back to a reason.
// Dismissal and action share a code; an invoked action decides.
func closeReasonFromCode(code uint32, actionKey string) model.CloseReason {
	switch {
	case actionKey != "":
		return model.CloseReasonAction
	case code == model.CloseReasonExpired.FreedesktopCode():
		return model.CloseReasonExpired
	case code == model.CloseReasonShutdown.FreedesktopCode():
		return model.CloseReasonShutdown
	default:
		return model.CloseReasonDismissed
	}
}
