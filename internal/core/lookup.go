package core

import (
	"strconv"
	"strings"

	"github.com/jmylchreest/toastd/internal/model"
)

// LookupByID finds an entry by id. Returns nil if not found.
func LookupByID(entries []model.HistoryEntry, id string) *model.HistoryEntry {
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i]
		}
	}
	return nil
}

// LookupByIndex finds an entry by its 1-based index. Returns nil if the
// index is out of bounds.
func LookupByIndex(entries []model.HistoryEntry, index int) *model.HistoryEntry {
	idx := index - 1
	if idx < 0 || idx >= len(entries) {
		return nil
	}
	return &entries[idx]
}

// Lookup resolves a selection that is an id, a 1-based index, or a line of
// dmenu output.
func Lookup(entries []model.HistoryEntry, selection string) *model.HistoryEntry {
	sel := ParseSelection(selection)
	if e := LookupByID(entries, sel); e != nil {
		return e
	}
	if idx, err := strconv.Atoi(sel); err == nil {
		return LookupByIndex(entries, idx)
	}
	return nil
}

// ParseSelection extracts the id from a dmenu line such as
// "1 | ✓ | 5 minutes ago | Saved report.pdf | 01J...". Anything without a
// separator is returned trimmed.
func ParseSelection(selection string) string {
	selection = strings.TrimSpace(selection)
	if !strings.Contains(selection, "|") {
		return selection
	}
	parts := strings.Split(selection, "|")
	return strings.TrimSpace(parts[len(parts)-1])
}

// Search finds entries whose message or action key contains term,
// case-insensitively.
func Search(entries []model.HistoryEntry, term string) []model.HistoryEntry {
	if term == "" {
		return entries
	}

	term = strings.ToLower(term)
	var result []model.HistoryEntry

	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Message), term) ||
			strings.Contains(strings.ToLower(e.ActionKey), term) {
			result = append(result, e)
		}
	}

	return result
}
