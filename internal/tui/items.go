package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/theme"
)

// toastItem wraps a toast for the list component. now is the render time
// used for the countdown.
type toastItem struct {
	toast model.Notification
	now   time.Time
	style theme.KindStyle
}

func (i toastItem) Title() string {
	return i.style.Icon + " " + strings.Join(strings.Fields(i.toast.Message), " ")
}

func (i toastItem) Description() string {
	parts := []string{string(i.toast.Kind), remainingText(i.toast, i.now)}
	if labels := actionLabels(i.toast); labels != "" {
		parts = append(parts, labels)
	}
	return strings.Join(parts, " · ")
}

func (i toastItem) FilterValue() string {
	return i.toast.Message + " " + string(i.toast.Kind) + " " + i.toast.Source
}

// remainingText renders the countdown of a toast.
func remainingText(n model.Notification, now time.Time) string {
	if n.ExpiresAt.IsZero() {
		return "sticky"
	}
	if n.Remaining(now) < time.Second {
		return "expiring"
	}
	return humanize.RelTime(now, n.ExpiresAt, "left", "")
}

// actionLabels renders the buttons as "[1] Open [2] Later".
func actionLabels(n model.Notification) string {
	var b strings.Builder
	for i, a := range n.Actions {
		if i > 0 {
			b.WriteByte(' ')
		}
		label := a.Label
		if label == "" {
			label = n.ActionKey(i)
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, label)
	}
	return b.String()
}

// toastDelegate renders a toast with its kind's accent colour.
type toastDelegate struct {
	list.DefaultDelegate
}

func newToastDelegate() toastDelegate {
	return toastDelegate{DefaultDelegate: list.NewDefaultDelegate()}
}

func (d toastDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(toastItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	accent := lipgloss.Color(ti.style.Color)
	titleStyle := d.Styles.NormalTitle.Foreground(accent)
	descStyle := d.Styles.NormalDesc
	if index == m.Index() {
		titleStyle = d.Styles.SelectedTitle.Foreground(accent).BorderForeground(accent)
		descStyle = d.Styles.SelectedDesc.BorderForeground(accent)
	}

	width := m.Width() - titleStyle.GetHorizontalFrameSize()
	fmt.Fprint(w, titleStyle.Render(truncateWidth(ti.Title(), width)))
	fmt.Fprint(w, "\n")
	fmt.Fprint(w, descStyle.Render(truncateWidth(ti.Description(), width)))
}

// truncateWidth cuts s to at most width terminal cells, marking the cut
// with an ellipsis.
func truncateWidth(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	var b strings.Builder
	used := 0
	for _, r := range s {
		w := lipgloss.Width(string(r))
		if used+w > width-1 {
			break
		}
		b.WriteRune(r)
		used += w
	}
	return b.String() + "…"
}
