package grid

import (
	"log/slog"
	"math"
	"strings"

	"github.com/pkordes/travel-karte/internal/domain"
)

// LegacyDocument is a karte as saved by the spreadsheet-style editor:
// each section is a raw cell grid.
type LegacyDocument struct {
	BasicData   Table  `json:"basicData"`
	PaymentData Table  `json:"paymentData"`
	ExpenseData Table  `json:"expenseData"`
	SummaryData Table  `json:"summaryData"`
	Memo        string `json:"memo"`
}

// Column layout of the legacy grids.
const (
	legacyPaymentAmountCol = 4
	legacyExpenseAmountCol = 5
)

// ParseLegacy converts a grid document into a karte. Missing blocks yield
// empty sections. A grid without its sentinel total row is logged and
// contributes no line items, the same as an empty section.
func ParseLegacy(doc LegacyDocument, log *slog.Logger) domain.Karte {
	k := domain.Karte{
		Basic:    legacyBasic(doc.BasicData),
		Payments: legacyPayments(doc.PaymentData, log),
		Expenses: legacyExpenses(doc.ExpenseData, log),
		Memo:     doc.Memo,
	}
	k.Basic.TravelType = domain.TravelDomestic
	k.Derive()
	return k
}

// legacyBasic reads the fixed cell positions of the basic grid.
func legacyBasic(t Table) domain.BasicInfo {
	return domain.BasicInfo{
		StaffName:      t.Cell(0, 3),
		KarteNo:        t.Cell(1, 1),
		ClientPerson:   t.Cell(1, 3),
		ClientOrg:      t.Cell(1, 5),
		ClientPhone:    t.Cell(1, 7),
		DepartureDate:  t.Cell(2, 1),
		Nights:         domain.Number(domain.ParseAmount(t.Cell(2, 3))),
		PersonCount:    domain.Number(domain.ParseAmount(t.Cell(2, 5))),
		DeparturePlace: t.Cell(3, 1),
		Destination:    t.Cell(3, 4),
	}
}

// itemRows returns the indexes of the non-blank rows between the header
// and the sentinel total row.
func itemRows(t Table, label, section string, log *slog.Logger) []int {
	if len(t) == 0 {
		return nil
	}
	end, ok := t.FindRow(label)
	if !ok {
		log.Warn("grid: total row not found, skipping section", "section", section, "label", label)
		return nil
	}
	var rows []int
	for i := 1; i < end; i++ {
		if !t.rowBlank(i) {
			rows = append(rows, i)
		}
	}
	return rows
}

func legacyPayments(t Table, log *slog.Logger) []domain.Payment {
	rows := itemRows(t, PaymentTotalLabel, "payments", log)
	items := make([]domain.Payment, 0, len(rows))
	for _, i := range rows {
		notes := t.Cell(i, 5)
		if planned := t.Cell(i, 2); planned != "" {
			notes = strings.TrimSpace("予定額 " + planned + " " + notes)
		}
		items = append(items, domain.Payment{
			ID:       domain.NewLineID(),
			DueDate:  t.Cell(i, 0),
			Place:    t.Cell(i, 1),
			PaidDate: t.Cell(i, 3),
			Amount:   domain.Number(domain.ParseAmount(t.Cell(i, legacyPaymentAmountCol))),
			Notes:    notes,
		})
	}
	checkTotal(t, PaymentTotalLabel, legacyPaymentAmountCol, domain.SumPayments(items), "payments", log)
	return items
}

func legacyExpenses(t Table, log *slog.Logger) []domain.Expense {
	rows := itemRows(t, ExpenseTotalLabel, "expenses", log)
	items := make([]domain.Expense, 0, len(rows))
	for _, i := range rows {
		items = append(items, domain.Expense{
			ID:        domain.NewLineID(),
			UsageDate: t.Cell(i, 0),
			Vendor:    t.Cell(i, 1),
			Phone:     t.Cell(i, 2),
			Person:    t.Cell(i, 3),
			DueDate:   t.Cell(i, 4),
			Amount:    domain.Number(domain.ParseAmount(t.Cell(i, legacyExpenseAmountCol))),
			Status:    domain.ParseExpenseStatus(t.Cell(i, 6)),
			Notes:     t.Cell(i, 7),
		})
	}
	checkTotal(t, ExpenseTotalLabel, legacyExpenseAmountCol, domain.SumExpenses(items), "expenses", log)
	return items
}

// checkTotal compares the stored total cell with the recomputed sum. The
// recomputed value always wins; a mismatch is only worth a log line.
func checkTotal(t Table, label string, col int, computed float64, section string, log *slog.Logger) {
	row, ok := t.FindRow(label)
	if !ok || t.Cell(row, col) == "" {
		return
	}
	if stored := domain.ParseAmount(t.Cell(row, col)); math.Abs(stored-computed) > 0.005 {
		log.Warn("grid: stored total differs from line items",
			"section", section, "stored", stored, "computed", computed)
	}
}
