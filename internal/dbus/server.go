package dbus

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/toastd/internal/center"
	"github.com/jmylchreest/toastd/internal/model"
)

const (
	// AppName is the application name used on the bus and in desktop notifications.
	AppName = "toastd"
	// BusName is the well-known name claimed by the daemon.
	BusName = "io.github.jmylchreest.Toastd"
	// Interface is the toastd D-Bus interface.
	Interface = "io.github.jmylchreest.Toastd"
	// Path is the toastd object path.
	Path = dbus.ObjectPath("/io/github/jmylchreest/Toastd")
)

// SourceDBus marks toasts posted over the bus.
const SourceDBus = "dbus"

// ErrAlreadyRunning is returned by Start when another daemon owns BusName.
var ErrAlreadyRunning = errors.New("another toastd instance owns the bus name")

// Center is the part of the notification center the bus needs.
type Center interface {
	Notify(message string, kind model.Kind, opts model.Options) (string, error)
	Dismiss(id string) bool
	DismissAll() int
	InvokeActionKey(id, key string) bool
	Active() []model.Notification
	Subscribe(fn center.Subscriber) (unsubscribe func())
}

// emitter sends D-Bus signals. *dbus.Conn satisfies it.
type emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...any) error
}

// Server exports a Center on the session bus.
type Server struct {
	center Center
	logger *slog.Logger
	info   ServerInfo

	mu          sync.Mutex
	conn        *dbus.Conn
	emitter     emitter
	unsubscribe func()
	running     bool
}

// NewServer creates a Server for c.
func NewServer(c Center, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		center: c,
		logger: logger,
		info:   DefaultServerInfo(),
	}
}

// SetServerInfo sets the information returned by GetServerInformation.
func (s *Server) SetServerInfo(info ServerInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = info
}

// Start connects to the session bus, exports the object and claims BusName.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if err := conn.Export(s, Path, Interface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: string(Path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: toastdMethods(),
				Signals: toastdSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), Path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		_ = conn.Export(nil, Path, Interface)
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, BusName)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.attach(conn)

	s.logger.Info("D-Bus server started", "bus_name", BusName, "path", Path)
	return nil
}

// attach starts forwarding center events as signals through em.
func (s *Server) attach(em emitter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.emitter = em
	s.running = true
	s.unsubscribe = s.center.Subscribe(s.handleEvent)
}

// Stop releases the bus name and stops emitting signals.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.emitter = nil

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(BusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		_ = s.conn.Export(nil, Path, Interface)
		// SessionBus is shared; leave the connection open
	}

	s.logger.Info("D-Bus server stopped")
	return nil
}

// Notify posts a toast.
// D-Bus method: Notify(s message, s kind, i duration_ms, b sticky, as actions) -> s
func (s *Server) Notify(message, kind string, durationMs int32, sticky bool, actions []string) (string, *dbus.Error) {
	k, err := model.ParseKind(kind)
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}

	parsed, err := ParseActions(actions)
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}

	id, err := s.center.Notify(message, k, model.Options{
		Actions:  parsed,
		Duration: time.Duration(durationMs) * time.Millisecond,
		Sticky:   sticky,
		Source:   SourceDBus,
	})
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}

	s.logger.Debug("Notify called", "notification_id", id, "kind", k, "duration_ms", durationMs, "actions", len(parsed))
	return id, nil
}

// Dismiss removes a toast. Unknown ids return false.
// D-Bus method: Dismiss(s id) -> b
func (s *Server) Dismiss(id string) (bool, *dbus.Error) {
	removed := s.center.Dismiss(id)
	s.logger.Debug("Dismiss called", "notification_id", id, "removed", removed)
	return removed, nil
}

// InvokeAction runs a toast's action by key.
// D-Bus method: InvokeAction(s id, s key) -> b
func (s *Server) InvokeAction(id, key string) (bool, *dbus.Error) {
	invoked := s.center.InvokeActionKey(id, key)
	s.logger.Debug("InvokeAction called", "notification_id", id, "action_key", key, "invoked", invoked)
	return invoked, nil
}

// DismissAll removes every toast.
// D-Bus method: DismissAll() -> u
func (s *Server) DismissAll() (uint32, *dbus.Error) {
	return uint32(s.center.DismissAll()), nil
}

// List returns the active toasts, newest first.
// D-Bus method: List() -> a(sssxxas)
func (s *Server) List() ([]ToastInfo, *dbus.Error) {
	active := s.center.Active()
	out := make([]ToastInfo, 0, len(active))
	for _, n := range active {
		out = append(out, toToastInfo(n))
	}
	return out, nil
}

// GetServerInformation describes the daemon.
// D-Bus method: GetServerInformation() -> (sss)
func (s *Server) GetServerInformation() (string, string, string, *dbus.Error) {
	s.mu.Lock()
	info := s.info
	s.mu.Unlock()
	return info.Name, info.Vendor, info.Version, nil
}

// toastdMethods returns the D-Bus method introspection data.
func toastdMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "Notify",
			Args: []introspect.Arg{
				{Name: "message", Type: "s", Direction: "in"},
				{Name: "kind", Type: "s", Direction: "in"},
				{Name: "duration_ms", Type: "i", Direction: "in"},
				{Name: "sticky", Type: "b", Direction: "in"},
				{Name: "actions", Type: "as", Direction: "in"},
				{Name: "id", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "Dismiss",
			Args: []introspect.Arg{
				{Name: "id", Type: "s", Direction: "in"},
				{Name: "removed", Type: "b", Direction: "out"},
			},
		},
		{
			Name: "InvokeAction",
			Args: []introspect.Arg{
				{Name: "id", Type: "s", Direction: "in"},
				{Name: "action_key", Type: "s", Direction: "in"},
				{Name: "invoked", Type: "b", Direction: "out"},
			},
		},
		{
			Name: "DismissAll",
			Args: []introspect.Arg{
				{Name: "count", Type: "u", Direction: "out"},
			},
		},
		{
			Name: "List",
			Args: []introspect.Arg{
				{Name: "toasts", Type: "a(sssxxas)", Direction: "out"},
			},
		},
		{
			Name: "GetServerInformation",
			Args: []introspect.Arg{
				{Name: "name", Type: "s", Direction: "out"},
				{Name: "vendor", Type: "s", Direction: "out"},
				{Name: "version", Type: "s", Direction: "out"},
			},
		},
	}
}

// toastdSignals returns the D-Bus signal introspection data.
func toastdSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "NotificationCreated",
			Args: []introspect.Arg{
				{Name: "id", Type: "s"},
			},
		},
		{
			Name: "NotificationClosed",
			Args: []introspect.Arg{
				{Name: "id", Type: "s"},
				{Name: "reason", Type: "u"},
			},
		},
		{
			Name: "ActionInvoked",
			Args: []introspect.Arg{
				{Name: "id", Type: "s"},
				{Name: "action_key", Type: "s"},
			},
		},
	}
}
