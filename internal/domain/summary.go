package domain

import "fmt"

// Summary is the derived profit block of a karte.
type Summary struct {
	PaymentTotal float64 `json:"payment_total"`
	ExpenseTotal float64 `json:"expense_total"`
	PersonCount  float64 `json:"person_count"`
	Profit       float64 `json:"profit"`
	// ProfitRate is the profit as a percentage of PaymentTotal, rounded to
	// one decimal. It is 0 when nothing has been received.
	ProfitRate float64 `json:"profit_rate"`
	// ProfitPerPerson is 0 when PersonCount is not positive.
	ProfitPerPerson int64 `json:"profit_per_person"`
}

// ComputeSummary derives a Summary from the section totals and head count.
// It is a pure function of its inputs.
func ComputeSummary(paymentTotal, expenseTotal, personCount float64) Summary {
	s := Summary{
		PaymentTotal: paymentTotal,
		ExpenseTotal: expenseTotal,
		PersonCount:  personCount,
		Profit:       paymentTotal - expenseTotal,
	}
	if paymentTotal > 0 {
		s.ProfitRate = roundHalfUp(s.Profit/paymentTotal*1000) / 10
	}
	if personCount > 0 {
		s.ProfitPerPerson = int64(roundHalfUp(s.Profit / personCount))
	}
	return s
}

// ProfitRateText renders the rate the way the summary section shows it,
// e.g. "20.0%". An empty payment side renders as "0%".
func (s Summary) ProfitRateText() string {
	if s.PaymentTotal <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", s.ProfitRate)
}

// SumPayments totals the amount column of the payment section.
func SumPayments(items []Payment) float64 {
	var total float64
	for _, p := range items {
		total += p.Amount.Float()
	}
	return total
}

// SumExpenses totals the amount column of the expense section.
func SumExpenses(items []Expense) float64 {
	var total float64
	for _, e := range items {
		total += e.Amount.Float()
	}
	return total
}
