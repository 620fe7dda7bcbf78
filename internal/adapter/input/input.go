// Package input reads notify requests from outside sources.
package input

import (
	"fmt"
	"strings"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/model"
)

// Request is one toast to post.
type Request struct {
	Message  string          `json:"message"`
	Kind     string          `json:"kind,omitempty"`
	Duration config.Duration `json:"duration,omitempty"` // "3s" or milliseconds
	Sticky   bool            `json:"sticky,omitempty"`
	Actions  []ActionSpec    `json:"actions,omitempty"`
}

// ActionSpec describes an action button. Effects cannot cross a process
// boundary; invoking the action only closes the toast and signals listeners.
type ActionSpec struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ParseActionSpec parses a "key=label" command line value. A bare label is
// its own key.
func ParseActionSpec(s string) (ActionSpec, error) {
	key, label, found := strings.Cut(s, "=")
	key, label = strings.TrimSpace(key), strings.TrimSpace(label)
	if !found {
		label = key
	}
	if key == "" || label == "" {
		return ActionSpec{}, fmt.Errorf("invalid action %q: want key=label", s)
	}
	return ActionSpec{Key: key, Label: label}, nil
}

// ParsedKind returns the request's kind, defaulting to success.
func (r Request) ParsedKind() (model.Kind, error) {
	return model.ParseKind(r.Kind)
}

// ActionPairs flattens the actions into alternating key/label pairs.
// A missing key falls back to the label.
func (r Request) ActionPairs() []string {
	pairs := make([]string, 0, len(r.Actions)*2)
	for _, a := range r.Actions {
		key := a.Key
		if key == "" {
			key = a.Label
		}
		pairs = append(pairs, key, a.Label)
	}
	return pairs
}

// InputError describes a request that could not be read.
type InputError struct {
	Source  string
	Line    int // 1-based, 0 when not line oriented
	Message string
	Err     error
}

func (e *InputError) Error() string {
	msg := e.Source + ": " + e.Message
	if e.Line > 0 {
		msg = fmt.Sprintf("%s: line %d: %s", e.Source, e.Line, e.Message)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *InputError) Unwrap() error {
	return e.Err
}
