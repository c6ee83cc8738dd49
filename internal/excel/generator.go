// Package excel renders a karte as a multi-sheet .xlsx workbook.
package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/pkordes/travel-karte/internal/domain"
	"github.com/pkordes/travel-karte/internal/grid"
)

// Sheet names, in workbook order.
const (
	SheetBasic    = "基本情報"
	SheetPayments = "入金情報"
	SheetExpenses = "支払情報"
	SheetSummary  = "収支情報"
	SheetMemo     = "メモ"
	SheetComments = "コメント"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Generator builds export workbooks. It holds no state; the zero value is usable.
type Generator struct{}

// NewGenerator constructs a Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

type sheet struct {
	name  string
	table grid.Table
	// widths of the leading columns, in characters
	widths []float64
}

// Generate returns the workbook bytes for k. Totals and the summary come
// from k as given; callers pass a derived record.
func (g *Generator) Generate(k domain.Karte) ([]byte, error) {
	sheets := []sheet{
		{SheetBasic, grid.Basic(k.Basic), []float64{16, 40}},
		{SheetPayments, grid.Payments(k.Payments, k.Summary.PaymentTotal), []float64{14, 14, 14, 20, 30}},
		{SheetExpenses, grid.Expenses(k.Expenses, k.Summary.ExpenseTotal), []float64{14, 28, 16, 12, 14, 14, 10, 30}},
		{SheetSummary, grid.Summary(k.Summary), []float64{12, 14, 14, 14, 14, 10}},
		{SheetMemo, grid.Memo(k.Memo), []float64{80}},
		{SheetComments, grid.Comments(k.Comments), []float64{18, 14, 60}},
	}

	file := excelize.NewFile()
	defer file.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := file.SetSheetName("Sheet1", s.name); err != nil {
				return nil, fmt.Errorf("excel.Generator.Generate: rename sheet: %w", err)
			}
		} else if _, err := file.NewSheet(s.name); err != nil {
			return nil, fmt.Errorf("excel.Generator.Generate: new sheet %s: %w", s.name, err)
		}
		if err := writeTable(file, s); err != nil {
			return nil, fmt.Errorf("excel.Generator.Generate: %s: %w", s.name, err)
		}
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("excel.Generator.Generate: write: %w", err)
	}
	return buf.Bytes(), nil
}

// writeTable copies the table row by row starting at A1. Cells that parse
// as numbers in amount columns are written as numbers so totals stay
// summable in the spreadsheet.
func writeTable(file *excelize.File, s sheet) error {
	for r, row := range s.table {
		values := make([]any, len(row))
		for c, v := range row {
			values[c] = cellValue(s.name, r, c, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(s.name, cell, &values); err != nil {
			return err
		}
	}
	for i, w := range s.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := file.SetColWidth(s.name, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

func cellValue(sheetName string, row, col int, v string) any {
	if row == 0 || v == "" {
		return v
	}
	numeric := (sheetName == SheetPayments && col == grid.PaymentAmountCol) ||
		(sheetName == SheetExpenses && col == grid.ExpenseAmountCol)
	if !numeric {
		return v
	}
	return domain.ParseAmount(v)
}

// FileName builds the download name <karteNo|id|カルテ>_YYYYMMDD_HHMM.xlsx.
// Characters that are unsafe in file names are replaced with '-'.
func FileName(k domain.Karte, now time.Time) string {
	base := strings.TrimSpace(k.Basic.KarteNo)
	if base == "" && k.ID != uuid.Nil {
		base = k.ID.String()
	}
	if base == "" {
		base = "カルテ"
	}
	return sanitize(base) + "_" + now.Format("20060102_1504") + ".xlsx"
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, s)
}
