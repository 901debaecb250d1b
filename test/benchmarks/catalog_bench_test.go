package benchmarks

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/ammerola/sweetshop/internal/adapters/catalogapi"
	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/core/services"
	"github.com/ammerola/sweetshop/internal/export"
	"github.com/ammerola/sweetshop/test/helpers"
)

func BenchmarkSort(b *testing.B) {
	items := createBenchmarkItems(500)

	for _, key := range domain.AllSortKeys() {
		b.Run(key.String(), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = services.Sort(items, key)
			}
		})
	}
}

func BenchmarkParseCriteria(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = services.ParseCriteria("  barfi ", "Premium", "10.50", "99")
	}
}

func BenchmarkDecodeItems(b *testing.B) {
	payload := createWirePayload(200)
	b.SetBytes(int64(len(payload)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var items []domain.Item
		if err := json.Unmarshal(payload, &items); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkExport(b *testing.B) {
	exporter := export.NewExporter(helpers.TestLogger())
	snap := services.Snapshot{Status: services.StatusReady, Items: createBenchmarkItems(200)}
	key, _ := domain.ParseSortKey("price-desc")

	for _, format := range []export.Format{export.FormatJSON, export.FormatXLSX} {
		b.Run(string(format), func(b *testing.B) {
			params := export.Params{Format: format, Sort: key}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := exporter.Write(io.Discard, snap, params); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkCatalogClient(b *testing.B) {
	fake := helpers.NewFakeCatalog(b)
	for i, item := range createBenchmarkItems(100) {
		fake.Seed(item.Name, string(item.Category), item.Price.InexactFloat64(), i%12)
	}

	client, err := catalogapi.NewClient(catalogapi.Config{BaseURL: fake.URL()},
		helpers.StaticToken(fake.Token("bench@sweets.test", "user")), helpers.TestLogger())
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.Run("ListAll", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := client.ListAll(ctx); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("Search", func(b *testing.B) {
		criteria, _ := services.ParseCriteria("", "Premium", "", "30")
		for i := 0; i < b.N; i++ {
			if _, err := client.Search(ctx, criteria); err != nil {
				b.Fatal(err)
			}
		}
	})
}
