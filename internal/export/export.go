// internal/export/export.go
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/core/services"
)

// Format is an export file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// ParseFormat accepts "xlsx" or "json"; blank means xlsx.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xlsx", "excel":
		return FormatXLSX, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// Params selects what goes into an export.
type Params struct {
	Format  Format
	Sort    domain.SortKey
	Columns []string
}

// JSONExport is the document written for FormatJSON.
type JSONExport struct {
	Sweets   []map[string]any `json:"sweets"`
	Metadata Metadata         `json:"metadata"`
}

// Metadata describes the exported view.
type Metadata struct {
	ExportDate time.Time         `json:"export_date"`
	TotalItems int               `json:"total_items"`
	Sort       string            `json:"sort"`
	Filters    map[string]string `json:"filters_applied"`
	Columns    []string          `json:"columns"`
}

type column struct {
	key    string
	header string
	value  func(domain.Item) any
}

var columns = []column{
	{"id", "ID", func(i domain.Item) any { return i.ID.String() }},
	{"name", "Name", func(i domain.Item) any { return i.Name }},
	{"category", "Category", func(i domain.Item) any { return string(i.Category) }},
	{"price", "Price", func(i domain.Item) any { return i.Price.StringFixed(2) }},
	{"quantity", "Quantity", func(i domain.Item) any { return i.Quantity }},
	{"stock", "Stock", func(i domain.Item) any { return i.StockLabel() }},
	{"image_url", "Image URL", func(i domain.Item) any { return i.ImageURL }},
}

// ParseColumns splits a comma separated column list.
func ParseColumns(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{"all"}
	}
	cols := strings.Split(raw, ",")
	for i, c := range cols {
		cols[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return cols
}

// selectColumns maps requested keys to columns, falling back to all of them
// when none match.
func selectColumns(requested []string) []column {
	if len(requested) == 0 || (len(requested) == 1 && requested[0] == "all") {
		return columns
	}

	var selected []column
	for _, key := range requested {
		for _, c := range columns {
			if c.key == key {
				selected = append(selected, c)
				break
			}
		}
	}
	if len(selected) == 0 {
		return columns
	}
	return selected
}

// Exporter writes the current catalog view to a file format. It never talks
// to the catalog service.
type Exporter struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewExporter creates an exporter.
func NewExporter(logger *slog.Logger) *Exporter {
	return &Exporter{
		logger: logger.With(slog.String("component", "export")),
		now:    time.Now,
	}
}

// Filename returns a timestamped file name for the format.
func (e *Exporter) Filename(format Format) string {
	return fmt.Sprintf("sweets_export_%s.%s", e.now().Format("20060102_150405"), format)
}

// Write renders the snapshot, sorted by params.Sort, into w.
func (e *Exporter) Write(w io.Writer, snap services.Snapshot, params Params) error {
	items := snap.Sorted(params.Sort)
	cols := selectColumns(params.Columns)

	var (
		data []byte
		err  error
	)
	switch params.Format {
	case FormatJSON:
		data, err = e.renderJSON(items, cols, snap.Criteria, params.Sort)
	case FormatXLSX, "":
		data, err = e.renderXLSX(items, cols)
	default:
		return fmt.Errorf("unsupported export format %q", params.Format)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	e.logger.Info("export completed",
		slog.String("format", string(params.Format)),
		slog.Int("total_rows", len(items)),
		slog.Int("bytes", len(data)))
	return nil
}

func (e *Exporter) renderXLSX(items []domain.Item, cols []column) ([]byte, error) {
	file := xlsx.NewFile()

	sheet, err := file.AddSheet("Sweets")
	if err != nil {
		return nil, fmt.Errorf("failed to add worksheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, c := range cols {
		cell := headerRow.AddCell()
		cell.Value = c.header
		cell.GetStyle().Font.Bold = true
		cell.GetStyle().Fill.PatternType = "solid"
		cell.GetStyle().Fill.FgColor = "CCCCCC"
	}

	for _, item := range items {
		row := sheet.AddRow()
		for _, c := range cols {
			cell := row.AddCell()
			switch v := c.value(item).(type) {
			case int:
				cell.SetInt(v)
			default:
				cell.Value = fmt.Sprint(v)
			}
		}
	}

	for i := range cols {
		sheet.SetColWidth(i+1, i+1, 18)
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file to buffer: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *Exporter) renderJSON(items []domain.Item, cols []column, criteria domain.SearchCriteria, key domain.SortKey) ([]byte, error) {
	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		row := make(map[string]any, len(cols))
		for _, c := range cols {
			row[c.key] = c.value(item)
		}
		rows = append(rows, row)
	}

	keys := make([]string, len(cols))
	for i, c := range cols {
		keys[i] = c.key
	}

	filters := map[string]string{}
	for k, v := range domain.BuildQuery(criteria) {
		filters[k] = v[0]
	}

	doc := JSONExport{
		Sweets: rows,
		Metadata: Metadata{
			ExportDate: e.now().UTC(),
			TotalItems: len(rows),
			Sort:       key.String(),
			Filters:    filters,
			Columns:    keys,
		},
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON export: %w", err)
	}
	return data, nil
}

// FormatRowCount is a short human summary used by the dashboard.
func FormatRowCount(n int) string {
	if n == 1 {
		return "1 sweet"
	}
	return strconv.Itoa(n) + " sweets"
}
