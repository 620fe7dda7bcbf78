package dbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/toastd/internal/center"
)

// org.freedesktop.Notifications endpoint used by the desktop mirror.
const (
	FreedesktopBusName   = "org.freedesktop.Notifications"
	FreedesktopInterface = "org.freedesktop.Notifications"
	FreedesktopPath      = dbus.ObjectPath("/org/freedesktop/Notifications")
)

// Freedesktop close reason for a notification the user dismissed.
const freedesktopDismissed uint32 = 2

// desktop is the desktop notification service.
type desktop interface {
	Notify(n desktopNotification) (uint32, error)
	Close(id uint32) error
}

// busDesktop calls org.freedesktop.Notifications over a bus connection.
type busDesktop struct {
	obj dbus.BusObject
}

func (b busDesktop) Notify(n desktopNotification) (uint32, error) {
	var id uint32
	err := b.obj.Call(FreedesktopInterface+".Notify", 0,
		n.AppName, n.ReplacesID, n.AppIcon, n.Summary, n.Body, n.Actions, n.Hints, n.ExpireTimeout,
	).Store(&id)
	return id, err
}

func (b busDesktop) Close(id uint32) error {
	return b.obj.Call(FreedesktopInterface+".CloseNotification", 0, id).Err
}

// DesktopMirror shows every toast as a desktop notification as well.
// Clicking an action or dismissing the desktop popup acts on the toast.
type DesktopMirror struct {
	center Center
	logger *slog.Logger
	state  *mirrorState

	mu          sync.Mutex
	desktop     desktop
	conn        *dbus.Conn
	signals     chan *dbus.Signal
	unsubscribe func()
	done        chan struct{}
}

// NewDesktopMirror creates a mirror for c.
func NewDesktopMirror(c Center, logger *slog.Logger) *DesktopMirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &DesktopMirror{
		center: c,
		logger: logger,
		state:  newMirrorState(),
	}
}

// Start connects to the session bus and begins mirroring.
func (m *DesktopMirror) Start() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(FreedesktopPath),
		dbus.WithMatchInterface(FreedesktopInterface),
	); err != nil {
		conn.Close()
		return fmt.Errorf("failed to add match rule: %w", err)
	}

	signals := make(chan *dbus.Signal, 32)
	conn.Signal(signals)

	m.mu.Lock()
	m.conn = conn
	m.signals = signals
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.processSignals(signals, m.done)
	m.attach(busDesktop{obj: conn.Object(FreedesktopBusName, FreedesktopPath)})

	m.logger.Info("desktop mirror started", "service", FreedesktopBusName)
	return nil
}

// attach subscribes to the center and sends toasts to d.
func (m *DesktopMirror) attach(d desktop) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.desktop = d
	m.unsubscribe = m.center.Subscribe(m.Handle)
}

// Stop stops mirroring and closes the connection.
func (m *DesktopMirror) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.desktop = nil

	if m.conn == nil {
		return nil
	}
	m.conn.RemoveSignal(m.signals)
	close(m.done)
	err := m.conn.Close()
	m.conn = nil
	return err
}

// Handle is a center subscriber.
func (m *DesktopMirror) Handle(ev center.Event) {
	m.mu.Lock()
	d := m.desktop
	m.mu.Unlock()
	if d == nil {
		return
	}

	switch ev.Type {
	case center.EventCreated:
		desktopID, err := d.Notify(newDesktopNotification(ev.Notification))
		if err != nil {
			m.logger.Warn("failed to mirror notification", "notification_id", ev.Notification.ID, "error", err)
			return
		}
		m.state.Register(ev.Notification.ID, desktopID)
		m.logger.Debug("mirrored notification", "notification_id", ev.Notification.ID, "desktop_id", desktopID)

	case center.EventClosed:
		// Already gone when the desktop side closed it first
		desktopID, ok := m.state.Remove(ev.Notification.ID)
		if !ok {
			return
		}
		if err := d.Close(desktopID); err != nil {
			m.logger.Debug("failed to close mirrored notification", "desktop_id", desktopID, "error", err)
		}
	}
}

func (m *DesktopMirror) processSignals(signals <-chan *dbus.Signal, done <-chan struct{}) {
	for {
		select {
		case sig, ok := <-signals:
			if !ok {
				return
			}
			m.handleSignal(sig)
		case <-done:
			return
		}
	}
}

// handleSignal maps desktop ActionInvoked and NotificationClosed back onto
// the toast.
func (m *DesktopMirror) handleSignal(sig *dbus.Signal) {
	if sig == nil || len(sig.Body) < 2 {
		return
	}
	desktopID, ok := sig.Body[0].(uint32)
	if !ok {
		return
	}

	switch sig.Name {
	case FreedesktopInterface + ".ActionInvoked":
		key, ok := sig.Body[1].(string)
		if !ok {
			return
		}
		toastID, ok := m.state.ToastID(desktopID)
		if !ok {
			return
		}
		m.logger.Debug("desktop action invoked", "notification_id", toastID, "action_key", key)
		m.center.InvokeActionKey(toastID, key)

	case FreedesktopInterface + ".NotificationClosed":
		reason, _ := sig.Body[1].(uint32)
		toastID, ok := m.state.RemoveByDesktopID(desktopID)
		if !ok {
			return
		}
		// Desktop expiry and programmatic closes leave the toast to its own timer
		if reason == freedesktopDismissed {
			m.logger.Debug("desktop notification dismissed", "notification_id", toastID)
			m.center.Dismiss(toastID)
		}
	}
}
