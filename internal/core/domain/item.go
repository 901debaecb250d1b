// internal/core/domain/item.go
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// ItemID is the server-assigned identifier of a catalog item. The catalog
// service issues integers; the client treats them as opaque.
type ItemID string

// UnmarshalJSON accepts both numeric and string identifiers.
func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("item id: %w", err)
		}
		*id = ItemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("item id: %w", err)
	}
	*id = ItemID(n.String())
	return nil
}

// String returns the identifier as used in request paths.
func (id ItemID) String() string {
	return string(id)
}

// Category groups sweets. Deployments may use free text; these are the
// categories the dashboard offers by default.
type Category string

const (
	CategoryTraditional Category = "Traditional"
	CategoryModern      Category = "Modern"
	CategoryPremium     Category = "Premium"
)

// KnownCategories returns the categories offered in pickers.
func KnownCategories() []Category {
	return []Category{CategoryTraditional, CategoryModern, CategoryPremium}
}

// StockLevel is the coarse stock badge shown next to an item.
type StockLevel string

const (
	StockOut StockLevel = "out_of_stock"
	StockLow StockLevel = "low_stock"
	StockIn  StockLevel = "in_stock"
)

// LowStockThreshold is the quantity below which an item is flagged as low.
const LowStockThreshold = 5

// Item is a catalog entry as returned by the catalog service.
type Item struct {
	ID       ItemID          `json:"id"`
	Name     string          `json:"name"`
	Category Category        `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	ImageURL string          `json:"image_url,omitempty"`
}

// Validate checks the invariants the client relies on for items received
// from the wire.
func (i Item) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("item id is required")
	}
	if i.Quantity < 0 {
		return fmt.Errorf("item %s has negative quantity %d", i.ID, i.Quantity)
	}
	if i.Price.IsNegative() {
		return fmt.Errorf("item %s has negative price %s", i.ID, i.Price)
	}
	return nil
}

// StockLevel classifies the current quantity.
func (i Item) StockLevel() StockLevel {
	switch {
	case i.Quantity == 0:
		return StockOut
	case i.Quantity < LowStockThreshold:
		return StockLow
	default:
		return StockIn
	}
}

// StockLabel renders the stock badge text.
func (i Item) StockLabel() string {
	switch i.StockLevel() {
	case StockOut:
		return "Out of Stock"
	case StockLow:
		return "Only " + strconv.Itoa(i.Quantity) + " left!"
	default:
		return strconv.Itoa(i.Quantity) + " in stock"
	}
}

// InStock reports whether at least one unit can be purchased.
func (i Item) InStock() bool {
	return i.Quantity > 0
}

// ItemInput is an item without its identifier, as sent on create and update.
type ItemInput struct {
	Name     string
	Category Category
	Price    decimal.Decimal
	Quantity int
	ImageURL string
}

// FindItem returns the item with the given id from a list.
func FindItem(items []Item, id ItemID) (Item, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}
