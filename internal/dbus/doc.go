// Package dbus exposes the notification center on the session bus as
// io.github.jmylchreest.Toastd and provides the client used by the toast CLI.
//
// The daemon can also mirror toasts to org.freedesktop.Notifications so that
// they appear in the desktop's own notification popups. Actions clicked and
// popups dismissed there are routed back to the center.
package dbus
