package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/toastd/internal/model"
)

// DmenuFormatter formats rows one per line for dmenu/rofi/fuzzel. The id is
// the last field so a picked line can be cut back to it.
type DmenuFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewDmenuFormatter creates a new dmenu formatter.
func NewDmenuFormatter(opts FormatterOptions) *DmenuFormatter {
	f := &DmenuFormatter{opts: opts}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("dmenu").Funcs(templateFuncs(opts)).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes rows in dmenu format (one per line).
func (f *DmenuFormatter) Format(w io.Writer, rows []Row) error {
	for i := range rows {
		line := f.formatLine(i+1, &rows[i])
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// formatLine formats a single row.
func (f *DmenuFormatter) formatLine(index int, r *Row) string {
	if f.template != nil {
		var buf strings.Builder
		if err := f.template.Execute(&buf, newTemplateData(index, r, f.opts)); err == nil {
			return buf.String()
		}
	}

	// Default format: [index] [icon] [time] message | id
	var parts []string
	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}

	if f.opts.ShowIndex {
		parts = append(parts, fmt.Sprintf("%d", index))
	}

	parts = append(parts, kindIcon(r.Kind))

	if f.opts.ShowTime {
		parts = append(parts, relativeTime(rowTime(r), f.opts.now()))
	}

	parts = append(parts, sanitizeMessage(r.Message, f.opts.MessageMaxLen, f.opts.IncludeNewline))
	parts = append(parts, r.ID)

	return strings.Join(parts, sep)
}

// templateData provides data for custom templates.
type templateData struct {
	Index        int
	Row          *Row
	RelativeTime string
	Remaining    string
}

func newTemplateData(index int, r *Row, opts FormatterOptions) templateData {
	now := opts.now()
	return templateData{
		Index:        index,
		Row:          r,
		RelativeTime: relativeTime(rowTime(r), now),
		Remaining:    remaining(r, now),
	}
}

// templateFuncs returns template helper functions.
func templateFuncs(opts FormatterOptions) template.FuncMap {
	return template.FuncMap{
		"truncate": truncate,
		"reltime": func(t time.Time) string {
			return relativeTime(t, opts.now())
		},
		"kindIcon": kindIcon,
	}
}

// rowTime is when the row was closed, or created if still active.
func rowTime(r *Row) time.Time {
	if r.Closed() {
		return r.ClosedAt
	}
	return r.CreatedAt
}

// relativeTime returns a human-readable time relative to now.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	if now.Sub(t) < time.Second {
		return "now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// remaining describes an active toast's time left.
func remaining(r *Row, now time.Time) string {
	switch {
	case r.Closed():
		return ""
	case r.Sticky || r.ExpiresAt.IsZero():
		return "sticky"
	case !r.ExpiresAt.After(now):
		return "expiring"
	default:
		return "expires " + humanize.RelTime(r.ExpiresAt, now, "ago", "from now")
	}
}

// kindIcon returns a single-character marker for a kind.
func kindIcon(kind model.Kind) string {
	switch kind {
	case model.KindSuccess:
		return "✓"
	case model.KindError:
		return "✗"
	case model.KindWarning:
		return "!"
	default:
		return "i"
	}
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if maxLen <= 0 || len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// sanitizeMessage cleans up message text for single-line display.
func sanitizeMessage(msg string, maxLen int, includeNewline bool) string {
	if !includeNewline {
		msg = strings.ReplaceAll(msg, "\n", " ")
		msg = strings.ReplaceAll(msg, "\r", "")
	}

	// Collapse multiple spaces
	for strings.Contains(msg, "  ") {
		msg = strings.ReplaceAll(msg, "  ", " ")
	}

	return truncate(strings.TrimSpace(msg), maxLen)
}
