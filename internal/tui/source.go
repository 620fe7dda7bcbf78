package tui

import (
	"context"

	"github.com/jmylchreest/toastd/internal/center"
	"github.com/jmylchreest/toastd/internal/dbus"
	"github.com/jmylchreest/toastd/internal/model"
)

// Source is where the TUI reads and acts on the active toasts.
type Source interface {
	List(ctx context.Context) ([]model.Notification, error)
	Dismiss(ctx context.Context, id string) (bool, error)
	DismissAll(ctx context.Context) (int, error)
	InvokeAction(ctx context.Context, id, key string) (bool, error)
}

var (
	_ Source = (*dbus.Client)(nil)
	_ Source = CenterSource{}
)

// CenterSource drives an in-process center.
type CenterSource struct {
	Center *center.Center
}

// NewCenterSource wraps c as a Source.
func NewCenterSource(c *center.Center) CenterSource {
	return CenterSource{Center: c}
}

func (s CenterSource) List(context.Context) ([]model.Notification, error) {
	return s.Center.Active(), nil
}

func (s CenterSource) Dismiss(_ context.Context, id string) (bool, error) {
	return s.Center.Dismiss(id), nil
}

func (s CenterSource) DismissAll(context.Context) (int, error) {
	return s.Center.DismissAll(), nil
}

func (s CenterSource) InvokeAction(_ context.Context, id, key string) (bool, error) {
	return s.Center.InvokeActionKey(id, key), nil
}
