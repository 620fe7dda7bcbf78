// Package core provides filtering, sorting, and lookup over toast history.
package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/toastd/internal/model"
)

// FilterOp represents a comparison operator.
type FilterOp string

const (
	FilterOpEqual     FilterOp = "="  // Exact match
	FilterOpNotEqual  FilterOp = "!=" // Not equal
	FilterOpContains  FilterOp = "~"  // Contains substring
	FilterOpRegex     FilterOp = "~=" // Regex match
	FilterOpGreater   FilterOp = ">"  // Greater than
	FilterOpLess      FilterOp = "<"  // Less than
	FilterOpGreaterEq FilterOp = ">=" // Greater than or equal
	FilterOpLessEq    FilterOp = "<=" // Less than or equal
)

// FilterCondition represents a single filter condition.
type FilterCondition struct {
	Field    string   // kind, reason, message, source, action, closed, created, lifetime
	Operator FilterOp // Comparison operator
	Value    string   // Value to compare against

	// Parsed values
	regex    *regexp.Regexp
	cutoff   time.Time     // closed, created: now minus the given age
	duration time.Duration // lifetime
}

// FilterExpr is a compound filter expression. Conditions are ANDed.
type FilterExpr struct {
	Conditions []FilterCondition
}

// ParseDuration parses a duration string with day and week suffixes.
// Supports: 48h, 7d, 1w, 0 (all time)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if s == "0" || s == "" {
		return 0, nil
	}

	if daysStr, found := strings.CutSuffix(s, "d"); found {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	if weeksStr, found := strings.CutSuffix(s, "w"); found {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}

// ParseFilter parses a filter expression relative to now.
// Format: "field=value,field2~value2,field3>value3"
//
// Fields: kind, reason, message, source, action, closed, created, lifetime
// Operators: = (equal), != (not equal), ~ (contains), ~= (regex), >, <, >=, <=
//
// Examples:
//   - "kind=error" - error toasts
//   - "reason=action,action=undo" - toasts closed by their undo button
//   - "message~=(?i)upload" - message matches regex
//   - "closed>1h" - closed within the last hour
//   - "lifetime<2s" - closed less than two seconds after showing
func ParseFilter(expr string, now time.Time) (*FilterExpr, error) {
	filter := &FilterExpr{}

	for part := range strings.SplitSeq(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		cond, err := parseCondition(part, now)
		if err != nil {
			return nil, err
		}
		filter.Conditions = append(filter.Conditions, cond)
	}

	return filter, nil
}

// parseCondition parses a single condition like "kind=error".
func parseCondition(s string, now time.Time) (FilterCondition, error) {
	// Longest operators first so "!=" is not read as "="
	operators := []FilterOp{
		FilterOpNotEqual,
		FilterOpGreaterEq,
		FilterOpLessEq,
		FilterOpRegex,
		FilterOpEqual,
		FilterOpContains,
		FilterOpGreater,
		FilterOpLess,
	}

	for _, op := range operators {
		idx := strings.Index(s, string(op))
		if idx > 0 {
			cond := FilterCondition{
				Field:    strings.ToLower(strings.TrimSpace(s[:idx])),
				Operator: op,
				Value:    strings.TrimSpace(s[idx+len(op):]),
			}
			if err := cond.init(now); err != nil {
				return FilterCondition{}, err
			}
			return cond, nil
		}
	}

	return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
}

func (c *FilterCondition) init(now time.Time) error {
	switch c.Field {
	case "kind", "type":
		c.Field = "kind"
		kind, err := model.ParseKind(c.Value)
		if err != nil {
			return err
		}
		c.Value = string(kind)
	case "reason":
		reason, err := model.ParseCloseReason(c.Value)
		if err != nil {
			return err
		}
		c.Value = string(reason)
	case "message", "msg", "body":
		c.Field = "message"
	case "source", "src":
		c.Field = "source"
	case "action", "action_key":
		c.Field = "action"
	case "closed", "created", "time":
		if c.Field == "time" {
			c.Field = "closed"
		}
		age, err := ParseDuration(c.Value)
		if err != nil {
			return fmt.Errorf("invalid %s value: %w", c.Field, err)
		}
		c.cutoff = now.Add(-age)
	case "lifetime":
		d, err := ParseDuration(c.Value)
		if err != nil {
			return fmt.Errorf("invalid lifetime value: %w", err)
		}
		c.duration = d
	default:
		return fmt.Errorf("unknown filter field: %s", c.Field)
	}

	if c.Operator == FilterOpRegex {
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		c.regex = re
	}

	return nil
}

// Match tests if an entry matches every condition.
func (f *FilterExpr) Match(e model.HistoryEntry) bool {
	for _, cond := range f.Conditions {
		if !cond.Match(e) {
			return false
		}
	}
	return true
}

// Match tests if an entry matches this single condition.
func (c *FilterCondition) Match(e model.HistoryEntry) bool {
	switch c.Field {
	case "kind":
		return c.matchString(string(e.Kind))
	case "reason":
		return c.matchString(string(e.Reason))
	case "message":
		return c.matchString(e.Message)
	case "source":
		return c.matchString(e.Source)
	case "action":
		return c.matchString(e.ActionKey)
	case "closed":
		return c.matchAge(e.ClosedTime())
	case "created":
		return c.matchAge(e.CreatedTime())
	case "lifetime":
		return c.matchDuration(e.Lifetime())
	default:
		return false
	}
}

func (c *FilterCondition) matchString(fieldValue string) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.Value
	case FilterOpNotEqual:
		return fieldValue != c.Value
	case FilterOpContains:
		return strings.Contains(strings.ToLower(fieldValue), strings.ToLower(c.Value))
	case FilterOpRegex:
		return c.regex != nil && c.regex.MatchString(fieldValue)
	default:
		return false
	}
}

// matchAge reads ">" as newer than the cutoff: "closed>1h" is the last hour.
func (c *FilterCondition) matchAge(t time.Time) bool {
	switch c.Operator {
	case FilterOpGreater:
		return t.After(c.cutoff)
	case FilterOpLess:
		return t.Before(c.cutoff)
	case FilterOpGreaterEq:
		return !t.Before(c.cutoff)
	case FilterOpLessEq:
		return !t.After(c.cutoff)
	default:
		return false
	}
}

func (c *FilterCondition) matchDuration(d time.Duration) bool {
	switch c.Operator {
	case FilterOpEqual:
		return d == c.duration
	case FilterOpNotEqual:
		return d != c.duration
	case FilterOpGreater:
		return d > c.duration
	case FilterOpLess:
		return d < c.duration
	case FilterOpGreaterEq:
		return d >= c.duration
	case FilterOpLessEq:
		return d <= c.duration
	default:
		return false
	}
}

// FilterWithExpr returns the entries matching expr.
func FilterWithExpr(entries []model.HistoryEntry, expr *FilterExpr) []model.HistoryEntry {
	if expr == nil || len(expr.Conditions) == 0 {
		return entries
	}

	result := make([]model.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if expr.Match(e) {
			result = append(result, e)
		}
	}
	return result
}
