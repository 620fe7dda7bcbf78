package dbus

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/toastd/internal/model"
)

func toastdSignal(member string, body ...any) *dbus.Signal {
	return &dbus.Signal{Path: Path, Name: Interface + "." + member, Body: body}
}

func TestWatcher_ActionThenClose(t *testing.T) {
	w := &Watcher{actions: make(map[string]string)}

	_, done := w.handle(toastdSignal("ActionInvoked", "t1", "undo"), "t1")
	assert.False(t, done)

	closed, done := w.handle(toastdSignal("NotificationClosed", "t1", uint32(2)), "t1")
	assert.True(t, done)
	assert.Equal(t, Closed{Reason: model.CloseReasonAction, ActionKey: "undo"}, closed)
	assert.Empty(t, w.actions)
}

func TestWatcher_IgnoresOtherToasts(t *testing.T) {
	w := &Watcher{actions: make(map[string]string)}

	_, done := w.handle(toastdSignal("NotificationClosed", "other", uint32(1)), "t1")
	assert.False(t, done)
	_, done = w.handle(toastdSignal("NotificationCreated", "t1"), "t1")
	assert.False(t, done)
	_, done = w.handle(toastdSignal("NotificationClosed", uint32(7), uint32(1)), "t1")
	assert.False(t, done)
}

func TestCloseReasonFromCode(t *testing.T) {
	tests := []struct {
		code uint32
		key  string
		want model.CloseReason
	}{
		{1, "", model.CloseReasonExpired},
		{2, "", model.CloseReasonDismissed},
		{2, "open", model.CloseReasonAction},
		{3, "", model.CloseReasonShutdown},
		{4, "", model.CloseReasonDismissed},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, closeReasonFromCode(tt.code, tt.key))
		})
	}
}
