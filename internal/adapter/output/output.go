// Package output provides output formatters for toasts and history.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jmylchreest/toastd/internal/model"
)

// Row is one active toast or history entry as the CLI prints it.
type Row struct {
	ID        string            `json:"id" yaml:"id"`
	Kind      model.Kind        `json:"kind" yaml:"kind"`
	Message   string            `json:"message" yaml:"message"`
	Source    string            `json:"source,omitempty" yaml:"source,omitempty"`
	Actions   []model.Action    `json:"actions,omitempty" yaml:"actions,omitempty"`
	Sticky    bool              `json:"sticky,omitempty" yaml:"sticky,omitempty"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
	ExpiresAt time.Time         `json:"expires_at,omitzero" yaml:"expires_at,omitempty"`
	ClosedAt  time.Time         `json:"closed_at,omitzero" yaml:"closed_at,omitempty"`
	Reason    model.CloseReason `json:"reason,omitempty" yaml:"reason,omitempty"`
	ActionKey string            `json:"action_key,omitempty" yaml:"action_key,omitempty"`
}

// Closed reports whether the row comes from history.
func (r Row) Closed() bool {
	return !r.ClosedAt.IsZero()
}

// ActiveRows converts active toasts to rows.
func ActiveRows(ns []model.Notification) []Row {
	rows := make([]Row, 0, len(ns))
	for _, n := range ns {
		row := Row{
			ID:        n.ID,
			Kind:      n.Kind,
			Message:   n.Message,
			Source:    n.Source,
			Sticky:    n.Sticky,
			CreatedAt: n.CreatedAt,
			ExpiresAt: n.ExpiresAt,
		}
		for i, a := range n.Actions {
			row.Actions = append(row.Actions, model.Action{Key: n.ActionKey(i), Label: a.Label, Variant: a.Variant})
		}
		rows = append(rows, row)
	}
	return rows
}

// HistoryRows converts history entries to rows.
func HistoryRows(es []model.HistoryEntry) []Row {
	rows := make([]Row, 0, len(es))
	for _, e := range es {
		rows = append(rows, Row{
			ID:        e.ID,
			Kind:      e.Kind,
			Message:   e.Message,
			Source:    e.Source,
			Actions:   e.Actions,
			CreatedAt: e.CreatedTime(),
			ClosedAt:  e.ClosedTime(),
			Reason:    e.Reason,
			ActionKey: e.ActionKey,
		})
	}
	return rows
}

// Formatter writes rows.
type Formatter interface {
	// Format writes formatted rows to the writer.
	Format(w io.Writer, rows []Row) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatDmenu FormatType = "dmenu"
	FormatIDs   FormatType = "ids"
)

// FormatTypes lists every supported format.
func FormatTypes() []FormatType {
	return []FormatType{FormatPlain, FormatJSON, FormatYAML, FormatDmenu, FormatIDs}
}

// ParseFormatType parses a format name.
func ParseFormatType(s string) (FormatType, error) {
	f := FormatType(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatPlain, nil
	}
	for _, known := range FormatTypes() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want plain, json, yaml, dmenu or ids)", s)
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	case FormatDmenu:
		return NewDmenuFormatter(opts)
	case FormatIDs:
		return NewIDsFormatter()
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template       string           // Custom template for dmenu/plain format
	ShowIndex      bool             // Show 1-based index prefix
	ShowTime       bool             // Show relative times
	MessageMaxLen  int              // Maximum message length (0 = unlimited)
	Separator      string           // Field separator for dmenu format
	IncludeNewline bool             // Include newlines in messages (default: replace with space)
	Now            func() time.Time // Reference time for relative times (default: time.Now)
}

// DefaultFormatterOptions returns sensible defaults.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex:     true,
		ShowTime:      true,
		MessageMaxLen: 80,
		Separator:     " | ",
	}
}

func (o FormatterOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
