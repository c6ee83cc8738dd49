package excel_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pkordes/travel-karte/internal/domain"
	"github.com/pkordes/travel-karte/internal/excel"
	"github.com/pkordes/travel-karte/internal/grid"
)

func karteFixture() domain.Karte {
	k := domain.Karte{
		ID: uuid.MustParse("7f1d0c36-2b0e-4b7e-9a77-1a3c2f5e8d90"),
		Basic: domain.BasicInfo{
			KarteNo:     "D-20250501-2",
			StaffName:   "高橋",
			PersonCount: 10,
		},
		Payments: []domain.Payment{{ID: "p1", Amount: 200000}, {ID: "p2", Amount: 50000}},
		Expenses: []domain.Expense{{ID: "e1", Vendor: "旅館", Amount: 180000}},
		Comments: []domain.Comment{{ID: "c1", Author: "高橋", Text: "確定", PostedAt: time.Now()}},
		Memo:     "送迎あり",
	}
	k.Derive()
	return k
}

func open(t *testing.T, b []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestGenerate_Sheets(t *testing.T) {
	b, err := excel.NewGenerator().Generate(karteFixture())
	require.NoError(t, err)

	f := open(t, b)

	assert.Equal(t, []string{
		excel.SheetBasic, excel.SheetPayments, excel.SheetExpenses,
		excel.SheetSummary, excel.SheetMemo, excel.SheetComments,
	}, f.GetSheetList())
}

func TestGenerate_PaymentTotalRow(t *testing.T) {
	b, err := excel.NewGenerator().Generate(karteFixture())
	require.NoError(t, err)

	rows, err := open(t, b).GetRows(excel.SheetPayments)
	require.NoError(t, err)

	total, ok := grid.Total(grid.Table(rows), grid.PaymentTotalLabel, grid.PaymentAmountCol)
	require.True(t, ok)
	assert.Equal(t, 250000.0, total)
}

func TestGenerate_Summary(t *testing.T) {
	b, err := excel.NewGenerator().Generate(karteFixture())
	require.NoError(t, err)

	f := open(t, b)
	rate, err := f.GetCellValue(excel.SheetSummary, "A2")
	require.NoError(t, err)
	perPerson, err := f.GetCellValue(excel.SheetSummary, "C2")
	require.NoError(t, err)

	assert.Equal(t, "28.0%", rate)
	assert.Equal(t, "7000", perPerson)
}

func TestGenerate_MemoAndComments(t *testing.T) {
	b, err := excel.NewGenerator().Generate(karteFixture())
	require.NoError(t, err)

	f := open(t, b)
	memo, err := f.GetCellValue(excel.SheetMemo, "A2")
	require.NoError(t, err)
	comment, err := f.GetCellValue(excel.SheetComments, "C2")
	require.NoError(t, err)

	assert.Equal(t, "送迎あり", memo)
	assert.Equal(t, "確定", comment)
}

func TestGenerate_EmptyKarte(t *testing.T) {
	k := domain.NewKarte(time.Now())

	b, err := excel.NewGenerator().Generate(k)

	require.NoError(t, err)
	assert.NotEmpty(t, b)
}

func TestFileName(t *testing.T) {
	now := time.Date(2025, 5, 1, 9, 5, 0, 0, time.UTC)

	k := karteFixture()
	assert.Equal(t, "D-20250501-2_20250501_0905.xlsx", excel.FileName(k, now))

	k.Basic.KarteNo = ""
	assert.Equal(t, "7f1d0c36-2b0e-4b7e-9a77-1a3c2f5e8d90_20250501_0905.xlsx", excel.FileName(k, now))

	assert.Equal(t, "カルテ_20250501_0905.xlsx", excel.FileName(domain.Karte{}, now))

	k.Basic.KarteNo = "A/B:C"
	assert.Equal(t, "A-B-C_20250501_0905.xlsx", excel.FileName(k, now))
}
