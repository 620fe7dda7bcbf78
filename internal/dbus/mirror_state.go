package dbus

import (
	"sync"
	"time"
)

// mirrorEntry links a toast to the desktop notification showing it.
type mirrorEntry struct {
	ToastID    string    // The toast ULID
	DesktopID  uint32    // The org.freedesktop.Notifications id
	MirroredAt time.Time // When the desktop notification was created
}

// mirrorState maps toast ids to desktop notification ids and back.
type mirrorState struct {
	mu sync.RWMutex

	byToastID   map[string]*mirrorEntry
	byDesktopID map[uint32]string
}

func newMirrorState() *mirrorState {
	return &mirrorState{
		byToastID:   make(map[string]*mirrorEntry),
		byDesktopID: make(map[uint32]string),
	}
}

// Register records that toastID is shown as desktopID, replacing any
// earlier mapping for the toast.
func (m *mirrorState) Register(toastID string, desktopID uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, exists := m.byToastID[toastID]; exists {
		delete(m.byDesktopID, old.DesktopID)
	}

	m.byToastID[toastID] = &mirrorEntry{
		ToastID:    toastID,
		DesktopID:  desktopID,
		MirroredAt: time.Now(),
	}
	m.byDesktopID[desktopID] = toastID
}

// DesktopID returns the desktop id for a toast.
func (m *mirrorState) DesktopID(toastID string) (uint32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.byToastID[toastID]
	if !ok {
		return 0, false
	}
	return e.DesktopID, true
}

// ToastID returns the toast shown as desktopID.
func (m *mirrorState) ToastID(desktopID uint32) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byDesktopID[desktopID]
	return id, ok
}

// Remove forgets a toast and returns the desktop id it had.
func (m *mirrorState) Remove(toastID string) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.byToastID[toastID]
	if !ok {
		return 0, false
	}
	delete(m.byDesktopID, e.DesktopID)
	delete(m.byToastID, toastID)
	return e.DesktopID, true
}

// RemoveByDesktopID forgets a desktop notification and returns its toast id.
func (m *mirrorState) RemoveByDesktopID(desktopID uint32) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	toastID, ok := m.byDesktopID[desktopID]
	if !ok {
		return "", false
	}
	delete(m.byDesktopID, desktopID)
	delete(m.byToastID, toastID)
	return toastID, true
}

// Count returns the number of mirrored toasts.
func (m *mirrorState) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byToastID)
}
