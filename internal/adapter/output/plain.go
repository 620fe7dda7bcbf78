package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/jmylchreest/toastd/internal/model"
)

// PlainFormatter formats rows as plain text, two lines per row.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(templateFuncs(opts)).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes rows as plain text.
func (f *PlainFormatter) Format(w io.Writer, rows []Row) error {
	for i := range rows {
		if err := f.formatRow(w, i+1, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}

// formatRow formats a single row.
func (f *PlainFormatter) formatRow(w io.Writer, index int, r *Row) error {
	if f.template != nil {
		return f.template.Execute(w, newTemplateData(index, r, f.opts))
	}

	now := f.opts.now()
	var sb strings.Builder

	if f.opts.ShowIndex {
		sb.WriteString(fmt.Sprintf("[%d] ", index))
	}
	sb.WriteString(fmt.Sprintf("%s %-7s ", kindIcon(r.Kind), r.Kind))

	msg := r.Message
	if !f.opts.IncludeNewline {
		msg = strings.ReplaceAll(msg, "\n", " ")
	}
	sb.WriteString(truncate(msg, f.opts.MessageMaxLen))
	sb.WriteString("\n")

	details := []string{r.ID}
	if f.opts.ShowTime {
		details = append(details, relativeTime(rowTime(r), now))
	}
	if r.Closed() {
		details = append(details, string(r.Reason))
		if r.ActionKey != "" {
			details = append(details, "action "+r.ActionKey)
		}
	} else {
		details = append(details, remaining(r, now))
	}
	if len(r.Actions) > 0 {
		details = append(details, "actions: "+formatActions(r.Actions))
	}
	sb.WriteString("    " + strings.Join(details, " · ") + "\n")

	_, err := w.Write([]byte(sb.String()))
	return err
}

func formatActions(actions []model.Action) string {
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = a.Key + "=" + a.Label
	}
	return strings.Join(parts, ", ")
}

// FormatField outputs a specific field from a row.
func FormatField(r Row, field string) string {
	switch strings.ToLower(field) {
	case "id":
		return r.ID
	case "kind":
		return string(r.Kind)
	case "message", "msg":
		return r.Message
	case "source":
		return r.Source
	case "created", "created_at":
		return r.CreatedAt.Local().Format(timeLayout)
	case "expires", "expires_at":
		if r.ExpiresAt.IsZero() {
			return ""
		}
		return r.ExpiresAt.Local().Format(timeLayout)
	case "closed", "closed_at":
		if r.ClosedAt.IsZero() {
			return ""
		}
		return r.ClosedAt.Local().Format(timeLayout)
	case "reason":
		return string(r.Reason)
	case "action", "action_key":
		return r.ActionKey
	case "actions":
		return formatActions(r.Actions)
	default:
		return r.Message
	}
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"
