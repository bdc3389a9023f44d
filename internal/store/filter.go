package store

import (
	"strings"

	"github.com/talespring/talespring-server/internal/domain"
	"golang.org/x/text/cases"
)

// ListFilter narrows ListContent. Both conditions must hold.
type ListFilter struct {
	// Category matches exactly; empty or "all" disables the filter.
	Category domain.Category
	// Query matches title or description as a case-insensitive substring.
	Query string
}

// Normalize trims the query and collapses the "all" sentinel to empty.
func (f ListFilter) Normalize() ListFilter {
	if f.Category.IsAll() {
		f.Category = ""
	}
	f.Query = strings.TrimSpace(f.Query)
	return f
}

// FoldedQuery returns the query in the form stored in *_fold columns.
func (f ListFilter) FoldedQuery() string {
	return Fold(f.Query)
}

// Matches reports whether item passes the filter. Backends that cannot push
// the filter down to storage evaluate it here.
func (f ListFilter) Matches(item *domain.ContentItem) bool {
	f = f.Normalize()
	if f.Category != "" && item.Category != f.Category {
		return false
	}
	if f.Query == "" {
		return true
	}
	q := Fold(f.Query)
	return strings.Contains(Fold(item.Title), q) || strings.Contains(Fold(item.Description), q)
}

// folder is stateless and safe for concurrent use.
var folder = cases.Fold()

// Fold applies Unicode case folding for case-insensitive comparison.
func Fold(s string) string {
	return folder.String(s)
}
