// Package importer reads catalogue spreadsheets exported as ';'-separated CSV.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/MrJamesThe3rd/ventas/internal/encoding"
	"github.com/MrJamesThe3rd/ventas/internal/product"
)

const (
	colID    = "id"
	colName  = "nombre"
	colPrice = "precio"
	colStock = "stock"
)

type Importer struct{}

func New() *Importer {
	return &Importer{}
}

// Parse returns one UpsertParams per data row. Lines before the header row
// (report titles, blank lines) are ignored, as are rows with an empty id.
// A row with an unreadable id, price or stock fails the whole file.
func (i *Importer) Parse(r io.Reader) ([]product.UpsertParams, error) {
	utf8r, err := encoding.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detecting encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	idx := map[string]int{}

	var params []product.UpsertParams

	for n, row := range rows {
		line := n + 1

		if len(idx) < 4 {
			idx = headerIndex(row)
			continue
		}

		if len(row) <= max(idx[colID], idx[colName], idx[colPrice], idx[colStock]) {
			continue
		}

		idStr := strings.TrimSpace(row[idx[colID]])
		if idStr == "" {
			continue
		}

		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid id %q", line, idStr)
		}

		price, err := parsePrice(row[idx[colPrice]])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid price %q", line, row[idx[colPrice]])
		}

		stockStr := strings.TrimSpace(row[idx[colStock]])

		stock, err := strconv.Atoi(stockStr)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid stock %q", line, stockStr)
		}

		params = append(params, product.UpsertParams{
			ID:    id,
			Name:  strings.TrimSpace(row[idx[colName]]),
			Price: price,
			Stock: stock,
		})
	}

	if len(idx) < 4 {
		return nil, fmt.Errorf("header row with ID;Nombre;Precio;Stock not found")
	}

	return params, nil
}

// headerIndex maps known column names to their position. It returns a
// partial map when the row is not the header.
func headerIndex(row []string) map[string]int {
	idx := make(map[string]int, 4)

	for i, col := range row {
		switch name := strings.ToLower(strings.TrimSpace(col)); name {
		case colID, colName, colPrice, colStock:
			idx[name] = i
		}
	}

	return idx
}
