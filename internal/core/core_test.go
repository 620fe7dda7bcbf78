package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastd/internal/model"
)

var now = time.Date(2026, 4, 20, 18, 0, 0, 0, time.UTC)

func entry(id string, kind model.Kind, reason model.CloseReason, closedAgo, lifetime time.Duration) model.HistoryEntry {
	closed := now.Add(-closedAgo)
	return model.HistoryEntry{
		ID:        id,
		Message:   "message " + id,
		Kind:      kind,
		Source:    "cli",
		CreatedAt: closed.Add(-lifetime).UnixMilli(),
		ClosedAt:  closed.UnixMilli(),
		Reason:    reason,
	}
}

func testEntries() []model.HistoryEntry {
	undone := entry("undone", model.KindInfo, model.CloseReasonAction, 10*time.Minute, 2*time.Second)
	undone.ActionKey = "undo"
	undone.Message = "Deleted 3 files"

	return []model.HistoryEntry{
		entry("expired", model.KindSuccess, model.CloseReasonExpired, 2*time.Hour, 5*time.Second),
		undone,
		entry("dismissed", model.KindError, model.CloseReasonDismissed, 30*time.Second, time.Minute),
		entry("shutdown", model.KindWarning, model.CloseReasonShutdown, 3*24*time.Hour, time.Hour),
	}
}

func ids(entries []model.HistoryEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"48h", 48 * time.Hour, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"90s", 90 * time.Second, false},
		{"xd", 0, true},
		{"soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{"", []string{"expired", "undone", "dismissed", "shutdown"}},
		{"kind=error", []string{"dismissed"}},
		{"kind!=error", []string{"expired", "undone", "shutdown"}},
		{"reason=action,action=undo", []string{"undone"}},
		{"message~DELETED", []string{"undone"}},
		{"message~=^message (ex|sh)", []string{"expired", "shutdown"}},
		{"closed>1h", []string{"undone", "dismissed"}},
		{"closed<1d", []string{"shutdown"}},
		{"lifetime>=1m", []string{"dismissed", "shutdown"}},
		{"lifetime<5s", []string{"undone"}},
		{"source=cli, kind=warning", []string{"shutdown"}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expr, err := ParseFilter(tt.expr, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(FilterWithExpr(testEntries(), expr)))
		})
	}
}

func TestParseFilter_Errors(t *testing.T) {
	for _, expr := range []string{
		"kind=fatal",
		"reason=crashed",
		"colour=red",
		"message~=(",
		"closed>soon",
		"noop",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseFilter(expr, now)
			assert.Error(t, err)
		})
	}
}

func TestParseFilter_NormalizesKindCase(t *testing.T) {
	expr, err := ParseFilter("type=ERROR", now)
	require.NoError(t, err)
	require.Len(t, expr.Conditions, 1)
	assert.Equal(t, "kind", expr.Conditions[0].Field)
	assert.Equal(t, "error", expr.Conditions[0].Value)
}

func TestSort(t *testing.T) {
	entries := testEntries()

	Sort(entries, DefaultSortOptions())
	assert.Equal(t, []string{"dismissed", "undone", "expired", "shutdown"}, ids(entries))

	Sort(entries, SortOptions{Field: SortByKind, Order: SortDesc})
	assert.Equal(t, []string{"dismissed", "shutdown", "undone", "expired"}, ids(entries))

	Sort(entries, SortOptions{Field: SortByLifetime, Order: SortAsc})
	assert.Equal(t, []string{"undone", "expired", "dismissed", "shutdown"}, ids(entries))

	Sort(entries, SortOptions{Field: SortByCreated, Order: SortAsc})
	assert.Equal(t, "shutdown", entries[0].ID)
}

func TestParseSort(t *testing.T) {
	field, err := ParseSortField("Lifetime")
	require.NoError(t, err)
	assert.Equal(t, SortByLifetime, field)

	field, _ = ParseSortField("whatever")
	assert.Equal(t, SortByClosed, field)

	order, _ := ParseSortOrder("ascending")
	assert.Equal(t, SortAsc, order)
	order, _ = ParseSortOrder("")
	assert.Equal(t, SortDesc, order)
}

func TestLookup(t *testing.T) {
	entries := testEntries()

	assert.Equal(t, "undone", Lookup(entries, "undone").ID)
	assert.Equal(t, "dismissed", Lookup(entries, " 3 ").ID)
	assert.Equal(t, "expired", Lookup(entries, "1 | ✓ | 2 hours ago | message expired | expired").ID)
	assert.Nil(t, Lookup(entries, "9"))
	assert.Nil(t, Lookup(entries, "missing"))
	assert.Nil(t, LookupByIndex(entries, 0))
}

func TestParseSelection(t *testing.T) {
	assert.Equal(t, "01ABC", ParseSelection("  01ABC\n"))
	assert.Equal(t, "01ABC", ParseSelection("2 | i | now | hello | 01ABC"))
}

func TestSearch(t *testing.T) {
	entries := testEntries()
	assert.Equal(t, []string{"undone"}, ids(Search(entries, "UNDO")))
	assert.Len(t, Search(entries, ""), 4)
	assert.Empty(t, Search(entries, "nothing"))
}
