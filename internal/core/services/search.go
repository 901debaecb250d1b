// internal/core/services/search.go
package services

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ammerola/sweetshop/internal/core/domain"
)

// ParseCriteria turns raw search form input into criteria. Blank fields are
// left absent; price bounds must be non-negative numbers.
func ParseCriteria(name, category, minPrice, maxPrice string) (domain.SearchCriteria, error) {
	criteria := domain.SearchCriteria{
		Name:     strings.TrimSpace(name),
		Category: domain.Category(strings.TrimSpace(category)),
	}

	var err error
	if criteria.MinPrice, err = parsePriceBound("min_price", minPrice); err != nil {
		return domain.SearchCriteria{}, err
	}
	if criteria.MaxPrice, err = parsePriceBound("max_price", maxPrice); err != nil {
		return domain.SearchCriteria{}, err
	}

	if criteria.MinPrice != nil && criteria.MaxPrice != nil && criteria.MinPrice.GreaterThan(*criteria.MaxPrice) {
		return domain.SearchCriteria{}, domain.NewValidationError("min_price", "Min price cannot exceed max price")
	}

	return criteria, nil
}

func parsePriceBound(field, raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, &domain.ValidationError{Field: field, Message: "Price filter must be a number", Err: err}
	}
	if d.IsNegative() {
		return nil, domain.NewValidationError(field, "Price filter cannot be negative")
	}
	return &d, nil
}

// Sort returns a new slice ordered by key; the input is never modified.
//
// Every key is a strict total order: items equal on the sort field are
// ordered by id, ascending for ascending keys and descending for descending
// keys. A descending key therefore yields exactly the reverse of its
// ascending counterpart, and sorting an already sorted slice is a no-op.
func Sort(items []domain.Item, key domain.SortKey) []domain.Item {
	out := slices.Clone(items)
	slices.SortStableFunc(out, comparator(key))
	return out
}

func comparator(key domain.SortKey) func(a, b domain.Item) int {
	var primary func(a, b domain.Item) int

	switch key.Field {
	case domain.SortByPrice:
		primary = func(a, b domain.Item) int { return a.Price.Cmp(b.Price) }
	case domain.SortByQuantity:
		primary = func(a, b domain.Item) int { return cmp.Compare(a.Quantity, b.Quantity) }
	case domain.SortByCategory:
		col := collate.New(language.English)
		primary = func(a, b domain.Item) int {
			return col.CompareString(string(a.Category), string(b.Category))
		}
	default:
		col := collate.New(language.English)
		primary = func(a, b domain.Item) int { return col.CompareString(a.Name, b.Name) }
	}

	ascending := func(a, b domain.Item) int {
		if c := primary(a, b); c != 0 {
			return c
		}
		return compareIDs(a.ID, b.ID)
	}

	if key.Direction == domain.Descending {
		return func(a, b domain.Item) int { return ascending(b, a) }
	}
	return ascending
}

// compareIDs orders numeric ids numerically, before any non-numeric id.
func compareIDs(a, b domain.ItemID) int {
	na, errA := strconv.ParseInt(string(a), 10, 64)
	nb, errB := strconv.ParseInt(string(b), 10, 64)
	switch {
	case errA == nil && errB == nil:
		if c := cmp.Compare(na, nb); c != 0 {
			return c
		}
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(string(a), string(b))
}
