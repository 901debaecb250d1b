// cmd/seeder/workbook.go
package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/core/services"
)

// seedRow is one sweet read from the workbook. Values stay raw so they go
// through the same draft validation as the dashboard form.
type seedRow struct {
	Line      int
	Draft     services.Draft
	ImagePath string
}

// readWorkbook loads sweets from the first sheet of an Excel file. Columns
// are matched by header, so a dashboard export can be seeded back as is.
// Image paths are resolved relative to the workbook.
func readWorkbook(path string) ([]seedRow, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in workbook")
	}
	sheet := file.Sheets[0]
	dir := filepath.Dir(path)

	var (
		rows    []seedRow
		headers map[string]int
		line    int
	)
	err = sheet.ForEachRow(func(r *xlsx.Row) error {
		line++

		get := func(name string) string {
			i, ok := headers[name]
			if !ok {
				return ""
			}
			c := r.GetCell(i)
			if c == nil {
				return ""
			}
			if s, err := c.FormattedValue(); err == nil {
				return strings.TrimSpace(s)
			}
			return strings.TrimSpace(c.String())
		}

		if headers == nil {
			headers = make(map[string]int)
			for i := 0; i < sheet.MaxCol; i++ {
				if c := r.GetCell(i); c != nil && c.String() != "" {
					headers[strings.ToLower(strings.TrimSpace(c.String()))] = i
				}
			}
			if _, ok := headers["name"]; !ok {
				return fmt.Errorf("missing Name column")
			}
			return nil
		}

		name := get("name")
		if name == "" {
			return nil
		}

		row := seedRow{
			Line: line,
			Draft: services.Draft{
				Name:     name,
				Category: get("category"),
				Price:    get("price"),
				Quantity: get("quantity"),
				ImageURL: get("image url"),
			},
		}
		if img := get("image"); img != "" {
			if !filepath.IsAbs(img) {
				img = filepath.Join(dir, img)
			}
			row.ImagePath = img
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return rows, nil
}

// loadImage reads an image file for attachment.
func loadImage(path string, read func(string) ([]byte, error)) (domain.Image, error) {
	data, err := read(path)
	if err != nil {
		return domain.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	return domain.Image{Name: filepath.Base(path), Data: data}, nil
}
