package export_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/core/services"
	"github.com/ammerola/sweetshop/internal/export"
	"github.com/ammerola/sweetshop/test/helpers"
)

func snapshot() services.Snapshot {
	return services.Snapshot{
		Status: services.StatusReady,
		Items: []domain.Item{
			helpers.CreateTestItem(helpers.WithID("2"), helpers.WithName("Rasgulla"), helpers.WithPrice("12.50"), helpers.WithQuantity(3)),
			helpers.CreateTestItem(helpers.WithID("1"), helpers.WithName("Kaju Katli"), helpers.WithPrice("25"), helpers.WithQuantity(10)),
		},
		Criteria: domain.SearchCriteria{Category: domain.CategoryTraditional},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    export.Format
		wantErr bool
	}{
		{in: "", want: export.FormatXLSX},
		{in: "XLSX", want: export.FormatXLSX},
		{in: "json", want: export.FormatJSON},
		{in: "pdf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("format_"+tt.in, func(t *testing.T) {
			got, err := export.ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExporter_XLSX(t *testing.T) {
	exp := export.NewExporter(helpers.TestLogger())

	var buf bytes.Buffer
	err := exp.Write(&buf, snapshot(), export.Params{
		Format: export.FormatXLSX,
		Sort:   domain.DefaultSortKey,
	})
	require.NoError(t, err)

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)

	sheet := file.Sheets[0]
	assert.Equal(t, "Sweets", sheet.Name)
	assert.Equal(t, 3, sheet.MaxRow)

	header, err := sheet.Cell(0, 1)
	require.NoError(t, err)
	assert.Equal(t, "Name", header.Value)

	first, err := sheet.Cell(1, 1)
	require.NoError(t, err)
	assert.Equal(t, "Kaju Katli", first.Value)

	price, err := sheet.Cell(2, 3)
	require.NoError(t, err)
	assert.Equal(t, "12.50", price.Value)
}

func TestExporter_JSON(t *testing.T) {
	exp := export.NewExporter(helpers.TestLogger())

	var buf bytes.Buffer
	err := exp.Write(&buf, snapshot(), export.Params{
		Format:  export.FormatJSON,
		Sort:    domain.SortKey{Field: domain.SortByPrice, Direction: domain.Descending},
		Columns: export.ParseColumns("name, price, bogus"),
	})
	require.NoError(t, err)

	var doc export.JSONExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	require.Len(t, doc.Sweets, 2)
	assert.Equal(t, "Kaju Katli", doc.Sweets[0]["name"])
	assert.Equal(t, "25.00", doc.Sweets[0]["price"])
	assert.NotContains(t, doc.Sweets[0], "quantity")

	assert.Equal(t, 2, doc.Metadata.TotalItems)
	assert.Equal(t, "price-desc", doc.Metadata.Sort)
	assert.Equal(t, []string{"name", "price"}, doc.Metadata.Columns)
	assert.Equal(t, map[string]string{"category": "Traditional"}, doc.Metadata.Filters)
}

func TestExporter_DoesNotMutateSnapshot(t *testing.T) {
	exp := export.NewExporter(helpers.TestLogger())
	snap := snapshot()
	before := append([]domain.Item(nil), snap.Items...)

	require.NoError(t, exp.Write(&bytes.Buffer{}, snap, export.Params{
		Format: export.FormatJSON,
		Sort:   domain.DefaultSortKey,
	}))
	assert.Equal(t, before, snap.Items)
	assert.True(t, decimal.RequireFromString("12.5").Equal(snap.Items[0].Price))
}

func TestParseColumns(t *testing.T) {
	assert.Equal(t, []string{"all"}, export.ParseColumns("  "))
	assert.Equal(t, []string{"name", "image_url"}, export.ParseColumns("Name, IMAGE_URL"))
}

func TestFormatRowCount(t *testing.T) {
	assert.Equal(t, "1 sweet", export.FormatRowCount(1))
	assert.Equal(t, "0 sweets", export.FormatRowCount(0))
}
