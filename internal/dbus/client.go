package dbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/toastd/internal/model"
)

// ErrDaemonNotRunning is returned when nothing owns BusName.
var ErrDaemonNotRunning = errors.New("toastd is not running")

// Client calls a running daemon over the session bus.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Connect opens a private session bus connection and checks that the
// daemon is running.
func Connect(ctx context.Context) (*Client, error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	var owned bool
	if err := conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, BusName).Store(&owned); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to query bus name: %w", err)
	}
	if !owned {
		conn.Close()
		return nil, ErrDaemonNotRunning
	}

	return &Client{
		conn: conn,
		obj:  conn.Object(BusName, Path),
	}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(ctx context.Context, method string, args ...any) *dbus.Call {
	return c.obj.CallWithContext(ctx, Interface+"."+method, 0, args...)
}

// Notify posts a toast and returns its id. actions are key/label pairs.
// Durations beyond MaxDuration are sent as MaxDuration.
func (c *Client) Notify(ctx context.Context, message string, kind model.Kind, duration time.Duration, sticky bool, actions []string) (string, error) {
	if actions == nil {
		actions = []string{}
	}

	var id string
	err := c.call(ctx, "Notify", message, string(kind), durationMillis(duration), sticky, actions).Store(&id)
	if err != nil {
		return "", fmt.Errorf("notify: %w", err)
	}
	return id, nil
}

// Dismiss removes a toast and reports whether it existed.
func (c *Client) Dismiss(ctx context.Context, id string) (bool, error) {
	var removed bool
	if err := c.call(ctx, "Dismiss", id).Store(&removed); err != nil {
		return false, fmt.Errorf("dismiss: %w", err)
	}
	return removed, nil
}

// DismissAll removes every toast and returns how many were removed.
func (c *Client) DismissAll(ctx context.Context) (int, error) {
	var count uint32
	if err := c.call(ctx, "DismissAll").Store(&count); err != nil {
		return 0, fmt.Errorf("dismiss all: %w", err)
	}
	return int(count), nil
}

// InvokeAction runs a toast's action by key.
func (c *Client) InvokeAction(ctx context.Context, id, key string) (bool, error) {
	var invoked bool
	if err := c.call(ctx, "InvokeAction", id, key).Store(&invoked); err != nil {
		return false, fmt.Errorf("invoke action: %w", err)
	}
	return invoked, nil
}

// List returns the active toasts, newest first.
func (c *Client) List(ctx context.Context) ([]model.Notification, error) {
	var infos []ToastInfo
	if err := c.call(ctx, "List").Store(&infos); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	out := make([]model.Notification, 0, len(infos))
	for _, info := range infos {
		out = append(out, info.Notification())
	}
	return out, nil
}

// ServerInformation describes the running daemon.
func (c *Client) ServerInformation(ctx context.Context) (ServerInfo, error) {
	var info ServerInfo
	err := c.call(ctx, "GetServerInformation").Store(&info.Name, &info.Vendor, &info.Version)
	if err != nil {
		return ServerInfo{}, fmt.Errorf("server information: %w", err)
	}
	return info, nil
}
