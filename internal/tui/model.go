// Package tui provides the BubbleTea-based terminal user interface for the
// active toasts.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/theme"
)

// Mode represents the current UI mode.
type Mode int

const (
	ModeList Mode = iota
	ModeSearch
	ModeHelp
)

const (
	requestTimeout  = 2 * time.Second
	statusLifetime  = 3 * time.Second
	footerHeight    = 2
	searchBarHeight = 1
)

// Options configures the TUI.
type Options struct {
	Source           Source
	ClipboardCommand string        // Empty = auto-detect
	RefreshInterval  time.Duration // <= 0 uses the config default
	Theme            *theme.Theme  // nil uses the bundled default
	Now              func() time.Time
}

// Model is the main TUI model.
type Model struct {
	source           Source
	clipboardCommand string
	refreshInterval  time.Duration
	now              func() time.Time
	theme            *theme.Theme

	mode Mode

	// Components
	list        list.Model
	searchInput textinput.Model
	help        help.Model
	keys        KeyMap

	// State
	toasts      []model.Notification
	searchQuery string
	width       int
	height      int
	ready       bool

	// Status message; statusSeq discards clears meant for older messages
	statusMsg string
	statusErr bool
	statusSeq int
}

// New creates a TUI model reading from opts.Source.
func New(opts Options) Model {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = config.DefaultRefreshInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Theme == nil {
		opts.Theme = theme.Default()
	}

	l := list.New(nil, newToastDelegate(), 0, 0)
	l.Title = "Toasts"
	l.Styles.Title = l.Styles.Title.Background(lipgloss.Color(opts.Theme.Title))
	l.SetStatusBarItemName("toast", "toasts")
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	searchInput := textinput.New()
	searchInput.Placeholder = "Search..."
	searchInput.CharLimit = 100

	return Model{
		source:           opts.Source,
		clipboardCommand: opts.ClipboardCommand,
		refreshInterval:  opts.RefreshInterval,
		now:              opts.Now,
		theme:            opts.Theme,
		mode:             ModeList,
		list:             l,
		searchInput:      searchInput,
		help:             help.New(),
		keys:             DefaultKeyMap(),
	}
}

// Messages

type tickMsg time.Time

type toastsMsg struct {
	toasts []model.Notification
	err    error
}

type actionResultMsg struct {
	text string
	err  error
}

type copyResultMsg struct {
	err error
}

type clearStatusMsg struct {
	seq int
}

// Init loads the toasts and starts the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetch lists the active toasts from the source.
func (m Model) fetch() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		toasts, err := source.List(ctx)
		return toastsMsg{toasts: toasts, err: err}
	}
}

// act runs fn against the source off the UI goroutine.
func (m Model) act(fn func(ctx context.Context, s Source) (string, error)) tea.Cmd {
	source := m.source
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		text, err := fn(ctx, source)
		return actionResultMsg{text: text, err: err}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.help.Width = msg.Width
		m.resizeList()
		return m, nil

	case tickMsg:
		m.setItems()
		return m, tea.Batch(m.fetch(), m.tick())

	case toastsMsg:
		if msg.err != nil {
			cmd := m.setStatus("Source unavailable: "+msg.err.Error(), true)
			return m, cmd
		}
		m.toasts = msg.toasts
		m.setItems()
		return m, nil

	case actionResultMsg:
		var status tea.Cmd
		if msg.err != nil {
			status = m.setStatus(msg.err.Error(), true)
		} else {
			status = m.setStatus(msg.text, false)
		}
		return m, tea.Batch(status, m.fetch())

	case copyResultMsg:
		if msg.err != nil {
			cmd := m.setStatus("Copy failed: "+msg.err.Error(), true)
			return m, cmd
		}
		cmd := m.setStatus("Copied to clipboard", false)
		return m, cmd

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.statusMsg = ""
			m.statusErr = false
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.mode {
	case ModeList:
		m.list, cmd = m.list.Update(msg)
	case ModeSearch:
		m.searchInput, cmd = m.searchInput.Update(msg)
	}
	return m, cmd
}

// setStatus shows text in the footer until statusLifetime passes.
func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.statusMsg = text
	m.statusErr = isErr
	seq := m.statusSeq
	return tea.Tick(statusLifetime, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == ModeSearch {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = ModeList
		} else {
			m.mode = ModeHelp
		}
		return m, nil
	}

	if m.mode == ModeHelp {
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeList
		}
		return m, nil
	}
	return m.handleListKey(msg)
}

// handleListKey handles keys in list mode.
func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Invoke):
		return m.invoke(0)

	case key.Matches(msg, m.keys.Action):
		return m.invoke(int(msg.String()[0] - '1'))

	case key.Matches(msg, m.keys.Dismiss):
		toast, ok := m.selected()
		if !ok {
			return m, nil
		}
		id := toast.ID
		return m, m.act(func(ctx context.Context, s Source) (string, error) {
			ok, err := s.Dismiss(ctx, id)
			if err != nil {
				return "", err
			}
			if !ok {
				return "Toast already closed", nil
			}
			return "Toast dismissed", nil
		})

	case key.Matches(msg, m.keys.DismissAll):
		return m, m.act(func(ctx context.Context, s Source) (string, error) {
			n, err := s.DismissAll(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Dismissed %d toasts", n), nil
		})

	case key.Matches(msg, m.keys.Copy):
		toast, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.copyToClipboard(toast.Message)

	case key.Matches(msg, m.keys.Search):
		m.searchInput.SetValue("")
		m.searchQuery = ""
		m.mode = ModeSearch
		m.searchInput.Focus()
		m.resizeList()
		m.setItems()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetch()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// invoke triggers the action at index on the selected toast.
func (m Model) invoke(index int) (tea.Model, tea.Cmd) {
	toast, ok := m.selected()
	if !ok {
		return m, nil
	}
	if index < 0 || index >= len(toast.Actions) {
		if len(toast.Actions) == 0 {
			cmd := m.setStatus("Toast has no actions", true)
			return m, cmd
		}
		cmd := m.setStatus(fmt.Sprintf("No action %d", index+1), true)
		return m, cmd
	}

	id, actionKey := toast.ID, toast.ActionKey(index)
	label := toast.Actions[index].Label
	return m, m.act(func(ctx context.Context, s Source) (string, error) {
		ok, err := s.InvokeAction(ctx, id, actionKey)
		if err != nil {
			return "", err
		}
		if !ok {
			return "Toast already closed", nil
		}
		return "Invoked " + label, nil
	})
}

// handleSearchKey handles keys in search mode. The list filters live as the
// query changes.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEsc:
		m.mode = ModeList
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.searchQuery = ""
		m.resizeList()
		m.setItems()
		return m, nil

	case tea.KeyEnter:
		// Keep the filter, return to the list
		m.mode = ModeList
		m.searchInput.Blur()
		m.resizeList()
		return m, nil

	case tea.KeyUp, tea.KeyDown:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.searchQuery = m.searchInput.Value()
	m.setItems()
	return m, cmd
}

func (m Model) selected() (model.Notification, bool) {
	item, ok := m.list.SelectedItem().(toastItem)
	if !ok {
		return model.Notification{}, false
	}
	return item.toast, true
}

func (m *Model) resizeList() {
	height := m.height - footerHeight
	if m.mode == ModeSearch {
		height -= searchBarHeight
	}
	m.list.SetSize(m.width, max(height, 0))
}

// setItems rebuilds the list, keeping the selection on the same toast when
// it is still present.
func (m *Model) setItems() {
	selectedID := ""
	if toast, ok := m.selected(); ok {
		selectedID = toast.ID
	}

	items := m.buildListItems()
	m.list.SetItems(items)

	for i, item := range items {
		if item.(toastItem).toast.ID == selectedID {
			m.list.Select(i)
			return
		}
	}
	if len(items) > 0 && m.list.Index() >= len(items) {
		m.list.Select(len(items) - 1)
	}
}

// buildListItems creates list items from the current toasts, newest first,
// filtered by the search query.
func (m Model) buildListItems() []list.Item {
	now := m.now()
	query := strings.ToLower(m.searchQuery)

	items := make([]list.Item, 0, len(m.toasts))
	for _, n := range m.toasts {
		item := toastItem{toast: n, now: now, style: m.theme.Style(n.Kind)}
		if query != "" && !strings.Contains(strings.ToLower(item.FilterValue()), query) {
			continue
		}
		items = append(items, item)
	}
	return items
}

// copyToClipboard copies text to the system clipboard.
func (m Model) copyToClipboard(text string) tea.Cmd {
	command := m.clipboardCommand
	return func() tea.Msg {
		return copyResultMsg{err: copyText(context.Background(), text, command)}
	}
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.mode {
	case ModeSearch:
		return m.viewSearch()
	case ModeHelp:
		return m.viewHelp()
	default:
		return m.list.View() + "\n" + m.footer()
	}
}

func (m Model) footer() string {
	if m.statusMsg != "" {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Text))
		if m.statusErr {
			style = style.Foreground(lipgloss.Color(m.theme.Error))
		}
		return style.Render(m.statusMsg)
	}
	return m.help.ShortHelpView(m.keys.ShortHelp())
}

func (m Model) viewSearch() string {
	count := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Muted)).
		Render(fmt.Sprintf("(%d matches)", len(m.list.Items())))
	searchBar := "Search: " + m.searchInput.View() + " " + count

	hint := m.help.ShortHelpView([]key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "keep filter")),
		key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "navigate")),
	})
	return searchBar + "\n" + m.list.View() + "\n" + hint
}

func (m Model) viewHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(m.theme.Title)).
		MarginBottom(1)

	s := titleStyle.Render("Keyboard Shortcuts") + "\n\n"
	s += m.help.FullHelpView(m.keys.FullHelp()) + "\n\n"
	s += lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Muted)).Render("Press ? or esc to return")
	return s
}

// Run starts the TUI and blocks until the user quits or ctx is done.
func Run(ctx context.Context, opts Options) error {
	if opts.Source == nil {
		return errors.New("tui: no source")
	}
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
