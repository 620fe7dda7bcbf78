package core

import (
	"cmp"
	"slices"
	"strings"

	"github.com/jmylchreest/toastd/internal/model"
)

// SortField represents a field to sort by.
type SortField string

const (
	SortByClosed   SortField = "closed"
	SortByCreated  SortField = "created"
	SortByKind     SortField = "kind"
	SortByLifetime SortField = "lifetime"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria.
type SortOptions struct {
	Field SortField
	Order SortOrder
}

// DefaultSortOptions returns the default: most recently closed first.
func DefaultSortOptions() SortOptions {
	return SortOptions{
		Field: SortByClosed,
		Order: SortDesc,
	}
}

// Sort sorts entries in place. Ties keep their relative order.
func Sort(entries []model.HistoryEntry, opts SortOptions) {
	slices.SortStableFunc(entries, func(a, b model.HistoryEntry) int {
		c := compare(a, b, opts.Field)
		if opts.Order == SortDesc {
			return -c
		}
		return c
	})
}

func compare(a, b model.HistoryEntry, field SortField) int {
	switch field {
	case SortByCreated:
		return cmp.Compare(a.CreatedAt, b.CreatedAt)
	case SortByKind:
		return cmp.Compare(severity[a.Kind], severity[b.Kind])
	case SortByLifetime:
		return cmp.Compare(a.Lifetime(), b.Lifetime())
	default:
		return cmp.Compare(a.ClosedAt, b.ClosedAt)
	}
}

// severity orders kinds from least to most severe.
var severity = map[model.Kind]int{
	model.KindSuccess: 0,
	model.KindInfo:    1,
	model.KindWarning: 2,
	model.KindError:   3,
}

// Severity ranks kind; higher is more severe. Unknown kinds rank lowest.
func Severity(kind model.Kind) int {
	return severity[kind]
}

// ParseSortField parses a sort field string. Unknown fields sort by close time.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "created", "c":
		return SortByCreated, nil
	case "kind", "k":
		return SortByKind, nil
	case "lifetime", "l":
		return SortByLifetime, nil
	default:
		return SortByClosed, nil
	}
}

// ParseSortOrder parses a sort order string. Unknown orders are descending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending", "a":
		return SortAsc, nil
	default:
		return SortDesc, nil
	}
}
