// Package daemon wires the notification center to history, audio, D-Bus and
// config hot reload for toastd.
package daemon
