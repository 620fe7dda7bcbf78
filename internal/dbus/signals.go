package dbus

import (
	"fmt"

	"github.com/jmylchreest/toastd/internal/center"
	"github.com/jmylchreest/toastd/internal/model"
)

// handleEvent turns a center event into the matching signal.
func (s *Server) handleEvent(ev center.Event) {
	var err error
	switch ev.Type {
	case center.EventCreated:
		err = s.EmitNotificationCreated(ev.Notification.ID)
	case center.EventClosed:
		err = s.EmitNotificationClosed(ev.Notification.ID, ev.Reason)
	case center.EventAction:
		err = s.EmitActionInvoked(ev.Notification.ID, ev.ActionKey)
	}
	if err != nil {
		s.logger.Warn("failed to emit signal", "event", ev.Type, "notification_id", ev.Notification.ID, "error", err)
	}
}

func (s *Server) emit(member string, values ...any) error {
	s.mu.Lock()
	em := s.emitter
	s.mu.Unlock()

	if em == nil {
		return fmt.Errorf("not connected to D-Bus")
	}
	if err := em.Emit(Path, Interface+"."+member, values...); err != nil {
		return fmt.Errorf("failed to emit %s signal: %w", member, err)
	}
	return nil
}

// EmitNotificationCreated emits NotificationCreated(s id).
func (s *Server) EmitNotificationCreated(id string) error {
	if err := s.emit("NotificationCreated", id); err != nil {
		return err
	}
	s.logger.Debug("emitted NotificationCreated signal", "notification_id", id)
	return nil
}

// EmitNotificationClosed emits NotificationClosed(s id, u reason) using the
// freedesktop close reason codes.
func (s *Server) EmitNotificationClosed(id string, reason model.CloseReason) error {
	if err := s.emit("NotificationClosed", id, reason.FreedesktopCode()); err != nil {
		return err
	}
	s.logger.Debug("emitted NotificationClosed signal", "notification_id", id, "reason", reason)
	return nil
}

// EmitActionInvoked emits ActionInvoked(s id, s action_key).
func (s *Server) EmitActionInvoked(id, actionKey string) error {
	if err := s.emit("ActionInvoked", id, actionKey); err != nil {
		return err
	}
	s.logger.Debug("emitted ActionInvoked signal", "notification_id", id, "action_key", actionKey)
	return nil
}
