// internal/core/domain/criteria.go
package domain

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// SearchCriteria holds the optional filters of a catalog search. A nil price
// bound or a blank text field is absent and never sent.
type SearchCriteria struct {
	Name     string
	Category Category
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// BuildQuery renders the criteria as search query parameters, including
// exactly the fields that are present.
func BuildQuery(c SearchCriteria) url.Values {
	q := url.Values{}
	if name := strings.TrimSpace(c.Name); name != "" {
		q.Set("name", name)
	}
	if category := strings.TrimSpace(string(c.Category)); category != "" {
		q.Set("category", category)
	}
	if c.MinPrice != nil {
		q.Set("min_price", c.MinPrice.String())
	}
	if c.MaxPrice != nil {
		q.Set("max_price", c.MaxPrice.String())
	}
	return q
}

// IsEmpty reports whether no filter is present, which means "list all".
func (c SearchCriteria) IsEmpty() bool {
	return len(BuildQuery(c)) == 0
}
