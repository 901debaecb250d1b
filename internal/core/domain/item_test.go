package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/sweetshop/internal/core/domain"
)

func TestItem_StockLevel(t *testing.T) {
	tests := []struct {
		name          string
		quantity      int
		expectedLevel domain.StockLevel
		expectedLabel string
		inStock       bool
	}{
		{name: "out_of_stock", quantity: 0, expectedLevel: domain.StockOut, expectedLabel: "Out of Stock"},
		{name: "single_unit_is_low", quantity: 1, expectedLevel: domain.StockLow, expectedLabel: "Only 1 left!", inStock: true},
		{name: "just_below_threshold", quantity: 4, expectedLevel: domain.StockLow, expectedLabel: "Only 4 left!", inStock: true},
		{name: "at_threshold", quantity: 5, expectedLevel: domain.StockIn, expectedLabel: "5 in stock", inStock: true},
		{name: "plenty", quantity: 120, expectedLevel: domain.StockIn, expectedLabel: "120 in stock", inStock: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := domain.Item{ID: "1", Quantity: tt.quantity}
			assert.Equal(t, tt.expectedLevel, item.StockLevel())
			assert.Equal(t, tt.expectedLabel, item.StockLabel())
			assert.Equal(t, tt.inStock, item.InStock())
		})
	}
}

func TestItem_Validate(t *testing.T) {
	tests := []struct {
		name      string
		item      domain.Item
		wantError bool
		errorMsg  string
	}{
		{
			name: "valid_item",
			item: domain.Item{ID: "1", Name: "Kaju Katli", Category: domain.CategoryTraditional, Price: decimal.NewFromInt(25), Quantity: 10},
		},
		{
			name: "free_and_empty_is_fine",
			item: domain.Item{ID: "2", Name: "Sample"},
		},
		{
			name:      "missing_id",
			item:      domain.Item{Name: "Kaju Katli"},
			wantError: true,
			errorMsg:  "item id is required",
		},
		{
			name:      "negative_quantity",
			item:      domain.Item{ID: "3", Quantity: -1},
			wantError: true,
			errorMsg:  "negative quantity",
		},
		{
			name:      "negative_price",
			item:      domain.Item{ID: "4", Price: decimal.NewFromFloat(-0.5)},
			wantError: true,
			errorMsg:  "negative price",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.wantError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestItemID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		expected  domain.ItemID
		wantError bool
	}{
		{name: "integer", raw: `{"id": 42}`, expected: "42"},
		{name: "string", raw: `{"id": "abc-1"}`, expected: "abc-1"},
		{name: "null", raw: `{"id": null}`, expected: ""},
		{name: "object", raw: `{"id": {}}`, wantError: true},
		{name: "boolean", raw: `{"id": true}`, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var item domain.Item
			err := json.Unmarshal([]byte(tt.raw), &item)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, item.ID)
		})
	}
}

func TestItem_DecodeWirePayload(t *testing.T) {
	raw := `{"id": 7, "name": "Rasgulla", "category": "Traditional", "price": 12.5, "quantity": 3, "image_url": "data:image/png;base64,AA=="}`

	var item domain.Item
	require.NoError(t, json.Unmarshal([]byte(raw), &item))

	assert.Equal(t, domain.ItemID("7"), item.ID)
	assert.Equal(t, domain.CategoryTraditional, item.Category)
	assert.True(t, decimal.RequireFromString("12.5").Equal(item.Price))
	assert.Equal(t, "Only 3 left!", item.StockLabel())
	require.NoError(t, item.Validate())
}

func TestFindItem(t *testing.T) {
	items := []domain.Item{{ID: "1", Name: "Barfi"}, {ID: "2", Name: "Ladoo"}}

	got, ok := domain.FindItem(items, "2")
	require.True(t, ok)
	assert.Equal(t, "Ladoo", got.Name)

	_, ok = domain.FindItem(items, "9")
	assert.False(t, ok)
}
