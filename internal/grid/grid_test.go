package grid_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-karte/internal/domain"
	"github.com/pkordes/travel-karte/internal/grid"
)

func TestPayments_TotalRowFoundBySentinel(t *testing.T) {
	items := []domain.Payment{
		{ID: "a", DueDate: "2025-04-01", Amount: 1000},
		{ID: "b", Amount: 2500},
	}

	tbl := grid.Payments(items, domain.SumPayments(items))

	row, ok := tbl.FindRow(grid.PaymentTotalLabel)
	require.True(t, ok)
	assert.Equal(t, 3, row, "header + two items precede the total")
	total, ok := grid.Total(tbl, grid.PaymentTotalLabel, grid.PaymentAmountCol)
	require.True(t, ok)
	assert.Equal(t, 3500.0, total)
}

func TestExpenses_StatusLabels(t *testing.T) {
	items := []domain.Expense{{ID: "x", Vendor: "ホテル", Amount: 800, Status: domain.ExpensePaid}}

	tbl := grid.Expenses(items, 800)

	assert.Equal(t, "支払済", tbl.Cell(1, 6))
	total, ok := grid.Total(tbl, grid.ExpenseTotalLabel, grid.ExpenseAmountCol)
	require.True(t, ok)
	assert.Equal(t, 800.0, total)
}

func TestTotal_MissingSentinel(t *testing.T) {
	_, ok := grid.Total(grid.Table{{"a", "b"}}, grid.PaymentTotalLabel, 1)
	assert.False(t, ok)
}

func TestSummary_Render(t *testing.T) {
	tbl := grid.Summary(domain.ComputeSummary(100000, 80000, 4))

	assert.Equal(t, []string{"20.0%", "20000", "5000", "100000", "80000", "4"}, tbl[1])
}

func TestComments_NewestFirst(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tbl := grid.Comments([]domain.Comment{
		{Author: "a", Text: "first", PostedAt: base},
		{Author: "b", Text: "second", PostedAt: base.Add(time.Minute)},
	})

	require.Len(t, tbl, 3)
	assert.Equal(t, "second", tbl[1][2])
	assert.Equal(t, "first", tbl[2][2])
}

func TestTable_UnmarshalJSON_MixedCells(t *testing.T) {
	var tbl grid.Table
	require.NoError(t, json.Unmarshal([]byte(`[["a", 12000, null, true]]`), &tbl))

	assert.Equal(t, grid.Table{{"a", "12000", "", "TRUE"}}, tbl)
}

const legacyJSON = `{
  "basicData": [
    ["【団体ナビ成約カルテ】", "", "担当；", "佐藤", "記入日;", "", "個人通N0;", ""],
    ["カルテNo", "D-20250101-3", "名前", "山田太郎", "団体名", "山田商事", "電話", "03-0000-0000"],
    ["宿泊日", "2025-02-01", "泊数", "2", "合計\n人数", "1,000", "成約日", ""],
    ["出発地", "東京", "⇒", "行先", "大阪", "", "", ""]
  ],
  "paymentData": [
    ["入金予定日", "入金場所", "入金予定額", "入金日", "入金額", "備考", "チェック", ""],
    ["2025-01-10", "振込", "", "2025-01-11", "1,000,000", "", "", ""],
    ["", "", "", "", "", "", "", ""],
    ["2025-01-20", "現金", "", "", 500000, "残金", "", ""],
    ["A；入金合計", "", "", "", "1500000", "", "", ""]
  ],
  "expenseData": [
    ["利用日", "手配先名；該当に〇を付ける", "電話/FAX", "担当者", "支払予定日", "支払金額", "チェック", ""],
    ["2025-02-01", "大阪ホテル", "06-0000-0000", "受付", "2025-01-31", "1,200,000", "手配済", ""],
    ["B；支払合計", "", "", "", "", "", "", ""]
  ]
}`

func TestParseLegacy(t *testing.T) {
	var doc grid.LegacyDocument
	require.NoError(t, json.Unmarshal([]byte(legacyJSON), &doc))

	k := grid.ParseLegacy(doc, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	assert.Equal(t, "D-20250101-3", k.Basic.KarteNo)
	assert.Equal(t, "佐藤", k.Basic.StaffName)
	assert.Equal(t, "山田商事", k.Basic.ClientOrg)
	assert.Equal(t, "大阪", k.Basic.Destination)
	assert.Equal(t, domain.Number(1000), k.Basic.PersonCount)

	require.Len(t, k.Payments, 2, "blank rows are skipped")
	assert.Equal(t, domain.Number(1000000), k.Payments[0].Amount)
	assert.NotEmpty(t, k.Payments[0].ID)
	require.Len(t, k.Expenses, 1)
	assert.Equal(t, domain.ExpenseArranged, k.Expenses[0].Status)

	assert.Equal(t, 1500000.0, k.Summary.PaymentTotal)
	assert.Equal(t, 1200000.0, k.Summary.ExpenseTotal)
	assert.Equal(t, int64(300), k.Summary.ProfitPerPerson)
	assert.Equal(t, "D-20250101-3", k.Info.KarteNo)
}

func TestParseLegacy_MissingSentinelLogsAndSkips(t *testing.T) {
	var logs bytes.Buffer
	doc := grid.LegacyDocument{
		PaymentData: grid.Table{
			{"入金予定日", "入金場所", "入金予定額", "入金日", "入金額"},
			{"2025-01-10", "振込", "", "", "1000"},
		},
	}

	k := grid.ParseLegacy(doc, slog.New(slog.NewTextHandler(&logs, nil)))

	assert.Empty(t, k.Payments)
	assert.Zero(t, k.Summary.PaymentTotal)
	assert.Contains(t, logs.String(), "total row not found")
}

func TestParseLegacy_EmptyDocument(t *testing.T) {
	k := grid.ParseLegacy(grid.LegacyDocument{}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	assert.NotNil(t, k.Payments)
	assert.Empty(t, k.Expenses)
	assert.Equal(t, domain.TravelDomestic, k.Basic.TravelType)
}
