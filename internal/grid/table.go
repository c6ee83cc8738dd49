// Package grid renders karte sections as two-dimensional cell tables and
// reads the grid documents written by the spreadsheet-style editor.
//
// Line items are addressed by id everywhere else; row positions only exist
// here, at render time. Total rows are found by their sentinel label.
package grid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Sentinel labels of the total rows.
const (
	PaymentTotalLabel = "A；入金合計"
	ExpenseTotalLabel = "B；支払合計"
)

// Table is a rectangular-ish block of cell text. Rows may be ragged.
type Table [][]string

// UnmarshalJSON accepts any JSON scalar as a cell, so grids saved with
// numeric cells decode the same as all-string grids.
func (t *Table) UnmarshalJSON(b []byte) error {
	var raw [][]any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("grid.Table: %w", err)
	}
	out := make(Table, len(raw))
	for i, row := range raw {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = cellText(v)
		}
	}
	*t = out
	return nil
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(x)
	}
}

// Cell returns the trimmed text at (row, col), or "" outside the table.
func (t Table) Cell(row, col int) string {
	if row < 0 || row >= len(t) || col < 0 || col >= len(t[row]) {
		return ""
	}
	return strings.TrimSpace(t[row][col])
}

// FindRow returns the index of the first row whose first cell is label.
func (t Table) FindRow(label string) (int, bool) {
	for i := range t {
		if t.Cell(i, 0) == label {
			return i, true
		}
	}
	return 0, false
}

// Width returns the length of the longest row.
func (t Table) Width() int {
	w := 0
	for _, row := range t {
		w = max(w, len(row))
	}
	return w
}

// rowBlank reports whether every cell of row i is empty.
func (t Table) rowBlank(i int) bool {
	for j := range t[i] {
		if t.Cell(i, j) != "" {
			return false
		}
	}
	return true
}
