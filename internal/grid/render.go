package grid

import (
	"github.com/pkordes/travel-karte/internal/domain"
)

// Header rows of the rendered sections.
var (
	PaymentHeader = []string{"入金予定日", "入金日", "入金額", "入金場所", "備考"}
	ExpenseHeader = []string{"利用日", "手配先名", "電話/FAX", "担当者", "支払予定日", "支払金額", "状況", "備考"}
	SummaryHeader = []string{"利益率", "利益額", "一人粗利", "旅行総額/A", "支払総額/B", "人数"}
	CommentHeader = []string{"日時", "投稿者", "コメント"}
)

// Amount column of each line-item table.
const (
	PaymentAmountCol = 2
	ExpenseAmountCol = 5
)

// Basic renders the basic info as label/value rows.
func Basic(b domain.BasicInfo) Table {
	travelType := "国内"
	if b.TravelType == domain.TravelOverseas {
		travelType = "海外"
	}
	return Table{
		{"項目", "内容"},
		{"旅行種別", travelType},
		{"カルテNo", b.KarteNo},
		{"担当者", b.StaffName},
		{"団体名", b.ClientOrg},
		{"代表者", b.ClientPerson},
		{"電話", b.ClientPhone},
		{"メール", b.ClientEmail},
		{"出発日", b.DepartureDate},
		{"帰着日", b.ReturnDate},
		{"泊数", b.Nights.String()},
		{"出発地", b.DeparturePlace},
		{"行先", b.Destination},
		{"旅行内容", b.TravelContent},
		{"人数", b.PersonCount.String()},
		{"旅行代金", b.TotalAmount.String()},
		{"一人単価", b.UnitPrice.String()},
		{"支払先", b.PaymentTo},
		{"手配状況", b.ArrangementStatus},
	}
}

// Payments renders the payment lines followed by the sentinel total row.
func Payments(items []domain.Payment, total float64) Table {
	t := Table{PaymentHeader}
	for _, p := range items {
		t = append(t, []string{p.DueDate, p.PaidDate, p.Amount.String(), p.Place, p.Notes})
	}
	totalRow := make([]string, len(PaymentHeader))
	totalRow[0] = PaymentTotalLabel
	totalRow[PaymentAmountCol] = domain.FormatNumber(total)
	return append(t, totalRow)
}

// Expenses renders the expense lines followed by the sentinel total row.
func Expenses(items []domain.Expense, total float64) Table {
	t := Table{ExpenseHeader}
	for _, e := range items {
		t = append(t, []string{
			e.UsageDate, e.Vendor, e.Phone, e.Person, e.DueDate,
			e.Amount.String(), e.Status.Label(), e.Notes,
		})
	}
	totalRow := make([]string, len(ExpenseHeader))
	totalRow[0] = ExpenseTotalLabel
	totalRow[ExpenseAmountCol] = domain.FormatNumber(total)
	return append(t, totalRow)
}

// Summary renders the derived profit block.
func Summary(s domain.Summary) Table {
	return Table{
		SummaryHeader,
		{
			s.ProfitRateText(),
			domain.FormatNumber(s.Profit),
			domain.FormatNumber(float64(s.ProfitPerPerson)),
			domain.FormatNumber(s.PaymentTotal),
			domain.FormatNumber(s.ExpenseTotal),
			domain.FormatNumber(s.PersonCount),
		},
	}
}

// Memo renders the free-text memo as a single cell under a header.
func Memo(memo string) Table {
	return Table{{"メモ"}, {memo}}
}

// Comments renders the comment log newest first.
func Comments(comments []domain.Comment) Table {
	t := Table{CommentHeader}
	for _, c := range domain.NewestFirst(comments) {
		t = append(t, []string{domain.CommentTime(c.PostedAt), c.Author, c.Text})
	}
	return t
}

// Total reads the value in column col of the row labelled label.
// ok is false when there is no such row.
func Total(t Table, label string, col int) (total float64, ok bool) {
	row, ok := t.FindRow(label)
	if !ok {
		return 0, false
	}
	return domain.ParseAmount(t.Cell(row, col)), true
}
