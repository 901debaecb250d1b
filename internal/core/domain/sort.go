// internal/core/domain/sort.go
package domain

import (
	"fmt"
	"strings"
)

// SortField is the item attribute a view is ordered by.
type SortField string

const (
	SortByName     SortField = "name"
	SortByPrice    SortField = "price"
	SortByQuantity SortField = "quantity"
	SortByCategory SortField = "category"
)

// SortDirection is ascending or descending.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// SortKey selects one of the eight view orderings. It is applied client-side
// only and never sent to the catalog service.
type SortKey struct {
	Field     SortField
	Direction SortDirection
}

// DefaultSortKey is the ordering used before the user picks one.
var DefaultSortKey = SortKey{Field: SortByName, Direction: Ascending}

// String renders keys as "price-desc".
func (k SortKey) String() string {
	return string(k.Field) + "-" + string(k.Direction)
}

// Reverse returns the counterpart with the opposite direction.
func (k SortKey) Reverse() SortKey {
	if k.Direction == Descending {
		return SortKey{Field: k.Field, Direction: Ascending}
	}
	return SortKey{Field: k.Field, Direction: Descending}
}

// Label is the human readable option text.
func (k SortKey) Label() string {
	switch k {
	case SortKey{SortByName, Ascending}:
		return "Name (A-Z)"
	case SortKey{SortByName, Descending}:
		return "Name (Z-A)"
	case SortKey{SortByPrice, Ascending}:
		return "Price (Low to High)"
	case SortKey{SortByPrice, Descending}:
		return "Price (High to Low)"
	case SortKey{SortByQuantity, Ascending}:
		return "Stock (Low to High)"
	case SortKey{SortByQuantity, Descending}:
		return "Stock (High to Low)"
	case SortKey{SortByCategory, Ascending}:
		return "Category (A-Z)"
	case SortKey{SortByCategory, Descending}:
		return "Category (Z-A)"
	}
	return k.String()
}

// AllSortKeys lists the eight supported keys in menu order.
func AllSortKeys() []SortKey {
	fields := []SortField{SortByName, SortByPrice, SortByQuantity, SortByCategory}
	keys := make([]SortKey, 0, len(fields)*2)
	for _, f := range fields {
		keys = append(keys, SortKey{f, Ascending}, SortKey{f, Descending})
	}
	return keys
}

// ParseSortKey parses "name-asc" style keys.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range AllSortKeys() {
		if k.String() == s {
			return k, nil
		}
	}
	return SortKey{}, NewValidationError("sort", fmt.Sprintf("unknown sort key %q", s))
}
