package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastd/internal/center"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/theme"
)

var testNow = time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu        sync.Mutex
	toasts    []model.Notification
	dismissed []string
	invoked   []string
	err       error
}

func (f *fakeSource) List(context.Context) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.toasts, f.err
}

func (f *fakeSource) Dismiss(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dismissed = append(f.dismissed, id)
	return true, f.err
}

func (f *fakeSource) DismissAll(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.toasts)
	f.toasts = nil
	return n, f.err
}

func (f *fakeSource) InvokeAction(_ context.Context, id, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoked = append(f.invoked, id+":"+key)
	return true, f.err
}

func testToasts() []model.Notification {
	return []model.Notification{
		{
			ID:        "newest",
			Message:   "Saved report.pdf",
			Kind:      model.KindSuccess,
			CreatedAt: testNow.Add(-time.Second),
			ExpiresAt: testNow.Add(4 * time.Second),
			Actions:   []model.Action{{Key: "open", Label: "Open"}, {Key: "folder", Label: "Show folder"}},
		},
		{
			ID:        "older",
			Message:   "Disk almost full",
			Kind:      model.KindError,
			Sticky:    true,
			CreatedAt: testNow.Add(-time.Minute),
		},
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T, src *fakeSource) Model {
	t.Helper()
	m := New(Options{Source: src, Now: func() time.Time { return testNow }})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m, _ = update(t, m, toastsMsg{toasts: src.toasts})
	return m
}

func selectedID(m Model) string {
	toast, _ := m.selected()
	return toast.ID
}

func TestModel_RendersNewestFirst(t *testing.T) {
	m := newTestModel(t, &fakeSource{toasts: testToasts()})

	items := m.list.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "newest", items[0].(toastItem).toast.ID)
	assert.Equal(t, "newest", selectedID(m))

	view := m.View()
	assert.Contains(t, view, "✓ Saved report.pdf")
	assert.Contains(t, view, "[1] Open [2] Show folder")
	assert.Contains(t, view, "4 seconds left")
	assert.Contains(t, view, "sticky")
	assert.Less(t, strings.Index(view, "Saved report.pdf"), strings.Index(view, "Disk almost full"))
}

func TestModel_NotReady(t *testing.T) {
	m := New(Options{Source: &fakeSource{}})
	assert.Equal(t, "Initializing...", m.View())
}

func TestModel_Dismiss(t *testing.T) {
	src := &fakeSource{toasts: testToasts()}
	m := newTestModel(t, src)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "older", selectedID(m))

	m, cmd := update(t, m, keyRunes("d"))
	require.NotNil(t, cmd)
	result := cmd()
	assert.Equal(t, []string{"older"}, src.dismissed)

	m, _ = update(t, m, result)
	assert.Equal(t, "Toast dismissed", m.statusMsg)
	assert.False(t, m.statusErr)
}

func TestModel_InvokeActions(t *testing.T) {
	src := &fakeSource{toasts: testToasts()}
	m := newTestModel(t, src)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, actionResultMsg{text: "Invoked Open"}, msg)

	_, cmd = update(t, m, keyRunes("2"))
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, []string{"newest:open", "newest:folder"}, src.invoked)
}

func TestModel_InvokeMissingAction(t *testing.T) {
	src := &fakeSource{toasts: testToasts()}
	m := newTestModel(t, src)

	m, _ = update(t, m, keyRunes("5"))
	assert.Equal(t, "No action 5", m.statusMsg)
	assert.True(t, m.statusErr)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "Toast has no actions", m.statusMsg)
	assert.Empty(t, src.invoked)
}

func TestModel_DismissAll(t *testing.T) {
	src := &fakeSource{toasts: testToasts()}
	m := newTestModel(t, src)

	_, cmd := update(t, m, keyRunes("D"))
	require.NotNil(t, cmd)
	assert.Equal(t, actionResultMsg{text: "Dismissed 2 toasts"}, cmd())
	assert.Empty(t, src.toasts)
}

func TestModel_ActionError(t *testing.T) {
	src := &fakeSource{toasts: testToasts()}
	m := newTestModel(t, src)

	m, _ = update(t, m, actionResultMsg{err: errors.New("bus gone")})
	assert.Equal(t, "bus gone", m.statusMsg)
	assert.True(t, m.statusErr)

	m, _ = update(t, m, toastsMsg{err: errors.New("no daemon")})
	assert.Contains(t, m.statusMsg, "no daemon")
	assert.Len(t, m.list.Items(), 2, "last known toasts stay on screen")
}

func TestModel_StatusClearsOnlyLatest(t *testing.T) {
	m := newTestModel(t, &fakeSource{toasts: testToasts()})

	m, _ = update(t, m, copyResultMsg{})
	first := m.statusSeq
	m, _ = update(t, m, copyResultMsg{err: errors.New("no clipboard")})

	m, _ = update(t, m, clearStatusMsg{seq: first})
	assert.Contains(t, m.statusMsg, "no clipboard")

	m, _ = update(t, m, clearStatusMsg{seq: m.statusSeq})
	assert.Empty(t, m.statusMsg)
}

func TestModel_RefreshKeepsSelection(t *testing.T) {
	src := &fakeSource{toasts: testToasts()}
	m := newTestModel(t, src)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, "older", selectedID(m))

	incoming := model.Notification{ID: "brand-new", Message: "Uploaded", Kind: model.KindInfo, Sticky: true, CreatedAt: testNow}
	m, _ = update(t, m, toastsMsg{toasts: append([]model.Notification{incoming}, testToasts()...)})
	assert.Equal(t, "older", selectedID(m))

	m, _ = update(t, m, toastsMsg{toasts: testToasts()[:1]})
	assert.Equal(t, "newest", selectedID(m))
}

func TestModel_Search(t *testing.T) {
	m := newTestModel(t, &fakeSource{toasts: testToasts()})

	m, _ = update(t, m, keyRunes("/"))
	assert.Equal(t, ModeSearch, m.mode)

	for _, r := range "disk" {
		m, _ = update(t, m, keyRunes(string(r)))
	}
	require.Len(t, m.list.Items(), 1)
	assert.Equal(t, "older", selectedID(m))
	assert.Contains(t, m.View(), "(1 matches)")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ModeList, m.mode)
	assert.Len(t, m.list.Items(), 1, "enter keeps the filter")

	m, _ = update(t, m, keyRunes("/"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeList, m.mode)
	assert.Len(t, m.list.Items(), 2)
}

func TestModel_SearchByKind(t *testing.T) {
	m := newTestModel(t, &fakeSource{toasts: testToasts()})
	m.searchQuery = "SUCCESS"
	m.setItems()

	require.Len(t, m.list.Items(), 1)
	assert.Equal(t, "newest", selectedID(m))
}

func TestModel_HelpAndQuit(t *testing.T) {
	m := newTestModel(t, &fakeSource{toasts: testToasts()})

	m, _ = update(t, m, keyRunes("?"))
	assert.Equal(t, ModeHelp, m.mode)
	assert.Contains(t, m.View(), "Keyboard Shortcuts")
	assert.Contains(t, m.View(), "dismiss all")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeList, m.mode)

	_, cmd := update(t, m, keyRunes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_TickRefreshesCountdown(t *testing.T) {
	now := testNow
	src := &fakeSource{toasts: testToasts()}
	m := New(Options{Source: src, Now: func() time.Time { return now }})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m, _ = update(t, m, toastsMsg{toasts: src.toasts})
	assert.Contains(t, m.View(), "4 seconds left")

	now = now.Add(3500 * time.Millisecond)
	m, cmd := update(t, m, tickMsg(now))
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "expiring")
}

func TestRemainingText(t *testing.T) {
	base := model.Notification{CreatedAt: testNow}

	sticky := base
	assert.Equal(t, "sticky", remainingText(sticky, testNow))

	timed := base
	timed.ExpiresAt = testNow.Add(90 * time.Second)
	assert.Equal(t, "1 minute left", remainingText(timed, testNow))
	assert.Equal(t, "expiring", remainingText(timed, testNow.Add(2*time.Minute)))
}

func TestActionLabels(t *testing.T) {
	n := model.Notification{Actions: []model.Action{{Key: "undo", Label: "Undo"}, {Key: "keep"}}}
	assert.Equal(t, "[1] Undo [2] keep", actionLabels(n))
	assert.Empty(t, actionLabels(model.Notification{}))
}

func TestTruncateWidth(t *testing.T) {
	assert.Equal(t, "short", truncateWidth("short", 10))
	assert.Equal(t, "abcd…", truncateWidth("abcdefgh", 5))
	assert.Equal(t, "✓ ab…", truncateWidth("✓ abcdef", 5))
	assert.Equal(t, "anything", truncateWidth("anything", 0))
}

func TestCenterSource(t *testing.T) {
	c := center.New(nil)
	defer c.Close()

	runs := 0
	id, err := c.Notify("Deleted 3 files", model.KindInfo, model.Options{
		Sticky:  true,
		Actions: []model.Action{{Key: "undo", Label: "Undo", Effect: func() { runs++ }}},
	})
	require.NoError(t, err)

	src := NewCenterSource(c)
	ctx := context.Background()

	toasts, err := src.List(ctx)
	require.NoError(t, err)
	require.Len(t, toasts, 1)
	assert.Equal(t, id, toasts[0].ID)

	ok, err := src.InvokeAction(ctx, id, "undo")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = src.InvokeAction(ctx, id, "undo")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, runs)

	ok, err = src.Dismiss(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _ = c.Notify("a", model.KindInfo, model.Options{Sticky: true})
	_, _ = c.Notify("b", model.KindInfo, model.Options{Sticky: true})
	n, err := src.DismissAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestModel_UsesThemeIcons(t *testing.T) {
	src := &fakeSource{toasts: testToasts()}
	th := &theme.Theme{
		Kinds: map[string]theme.KindStyle{
			"success": {Icon: "OK", Color: "2"},
			"info":    {Icon: "--", Color: "4"},
		},
	}

	m := New(Options{Source: src, Theme: th, Now: func() time.Time { return testNow }})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m, _ = update(t, m, toastsMsg{toasts: src.toasts})

	view := m.View()
	assert.Contains(t, view, "OK Saved report.pdf")
	// Kinds the theme leaves out use its info style
	assert.Contains(t, view, "-- Disk almost full")
}
