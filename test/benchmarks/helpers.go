// test/benchmarks/helpers.go
package benchmarks

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/test/helpers"
)

var sweetNames = []string{
	"Kaju Katli", "Gulab Jamun", "Rasgulla", "Motichoor Ladoo", "Soan Papdi",
	"Chocolate Barfi", "Saffron Pista Roll", "Mysore Pak", "Jalebi", "Peda",
}

// createBenchmarkItems returns n items with repeating names and prices so
// that sorting has to fall through to the id tie-break.
func createBenchmarkItems(n int) []domain.Item {
	categories := domain.KnownCategories()
	items := make([]domain.Item, n)
	for i := range items {
		items[i] = helpers.CreateTestItem(
			helpers.WithID(strconv.Itoa(n-i)),
			helpers.WithName(sweetNames[i%len(sweetNames)]),
			helpers.WithCategory(categories[i%len(categories)]),
			helpers.WithPrice(fmt.Sprintf("%d.%02d", 5+i%40, i%100)),
			helpers.WithQuantity(i%12),
		)
	}
	return items
}

// createWirePayload encodes n items the way the catalog service does, with
// numeric ids and prices.
func createWirePayload(n int) []byte {
	type wireSweet struct {
		ID       int     `json:"id"`
		Name     string  `json:"name"`
		Category string  `json:"category"`
		Price    float64 `json:"price"`
		Quantity int     `json:"quantity"`
	}
	sweets := make([]wireSweet, n)
	for i := range sweets {
		sweets[i] = wireSweet{
			ID:       i + 1,
			Name:     sweetNames[i%len(sweetNames)],
			Category: string(domain.KnownCategories()[i%3]),
			Price:    float64(5+i%40) + 0.5,
			Quantity: i % 12,
		}
	}
	data, err := json.Marshal(sweets)
	if err != nil {
		panic(err)
	}
	return data
}
