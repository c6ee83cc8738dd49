package session

import (
	"fmt"
	"slices"

	"github.com/pkordes/travel-karte/internal/domain"
)

// BasicSection owns the header fields of the open karte.
type BasicSection struct {
	state *State
	bus   *Bus
	info  domain.BasicInfo
}

// NewBasicSection returns an empty header section writing to state.
func NewBasicSection(state *State, bus *Bus) *BasicSection {
	return &BasicSection{state: state, bus: bus}
}

// Info returns the current header fields.
func (s *BasicSection) Info() domain.BasicInfo { return s.info }

// Set replaces the header fields, derives nights and unit price where the
// inputs allow it, and publishes BasicUpdated.
func (s *BasicSection) Set(b domain.BasicInfo) {
	s.reset(b)
	s.bus.Publish(Event{Kind: BasicUpdated, Sender: SourceBasic})
}

// SetPersonCountText stores the person count as typed. Text that does not
// parse counts as 0; the unit price follows.
func (s *BasicSection) SetPersonCountText(text string) {
	s.state.SetPersonCountText(text)
	b := s.info
	b.PersonCount = domain.Number(s.state.PersonCount())
	s.Set(b)
}

func (s *BasicSection) reset(b domain.BasicInfo) {
	if n, ok := domain.NightsBetween(b.DepartureDate, b.ReturnDate); ok {
		b.Nights = domain.Number(n)
	}
	if price, ok := domain.UnitPrice(b.TotalAmount.Float(), b.PersonCount.Float()); ok {
		b.UnitPrice = domain.Number(price)
	}
	if b.TravelType == "" {
		b.TravelType = domain.TravelDomestic
	}
	s.info = b
	s.state.SetPersonCount(b.PersonCount.Float())
}

// PaymentSection owns the payment lines and their total.
type PaymentSection struct {
	state *State
	bus   *Bus
	items []domain.Payment
	total float64
}

// NewPaymentSection returns an empty payment section writing to state.
func NewPaymentSection(state *State, bus *Bus) *PaymentSection {
	return &PaymentSection{state: state, bus: bus}
}

// Items returns a copy of the lines in display order.
func (s *PaymentSection) Items() []domain.Payment { return slices.Clone(s.items) }

// Total is the sum of the amount column.
func (s *PaymentSection) Total() float64 { return s.total }

// Add appends p and returns its id. A blank or duplicate id is replaced.
func (s *PaymentSection) Add(p domain.Payment) string {
	if p.ID == "" || s.index(p.ID) >= 0 {
		p.ID = domain.NewLineID()
	}
	s.items = append(s.items, p)
	s.recompute()
	return p.ID
}

// Update replaces the line with p's id.
func (s *PaymentSection) Update(p domain.Payment) error {
	i := s.index(p.ID)
	if i < 0 {
		return fmt.Errorf("session: payment %q: %w", p.ID, domain.ErrNotFound)
	}
	s.items[i] = p
	s.recompute()
	return nil
}

// Remove deletes the line with the given id.
func (s *PaymentSection) Remove(id string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("session: payment %q: %w", id, domain.ErrNotFound)
	}
	s.items = slices.Delete(s.items, i, i+1)
	s.recompute()
	return nil
}

func (s *PaymentSection) index(id string) int {
	return slices.IndexFunc(s.items, func(p domain.Payment) bool { return p.ID == id })
}

func (s *PaymentSection) reset(items []domain.Payment) {
	s.items = uniquePayments(items)
	s.total = domain.SumPayments(s.items)
	s.state.SetPaymentTotal(s.total)
}

func (s *PaymentSection) recompute() {
	s.total = domain.SumPayments(s.items)
	s.state.SetPaymentTotal(s.total)
	s.bus.Publish(Event{Kind: PaymentsUpdated, Sender: SourcePayments, Total: s.total})
}

// ExpenseSection owns the expense lines and their total.
type ExpenseSection struct {
	state *State
	bus   *Bus
	items []domain.Expense
	total float64
}

// NewExpenseSection returns an empty expense section writing to state.
func NewExpenseSection(state *State, bus *Bus) *ExpenseSection {
	return &ExpenseSection{state: state, bus: bus}
}

// Items returns a copy of the lines in display order.
func (s *ExpenseSection) Items() []domain.Expense { return slices.Clone(s.items) }

// Total is the sum of the amount column.
func (s *ExpenseSection) Total() float64 { return s.total }

// Add appends e and returns its id. A blank or duplicate id is replaced;
// a blank status becomes unarranged.
func (s *ExpenseSection) Add(e domain.Expense) string {
	if e.ID == "" || s.index(e.ID) >= 0 {
		e.ID = domain.NewLineID()
	}
	if e.Status == "" {
		e.Status = domain.ExpenseUnarranged
	}
	s.items = append(s.items, e)
	s.recompute()
	return e.ID
}

// Update replaces the line with e's id. A blank status becomes unarranged,
// as in Add.
func (s *ExpenseSection) Update(e domain.Expense) error {
	i := s.index(e.ID)
	if i < 0 {
		return fmt.Errorf("session: expense %q: %w", e.ID, domain.ErrNotFound)
	}
	if e.Status == "" {
		e.Status = domain.ExpenseUnarranged
	}
	s.items[i] = e
	s.recompute()
	return nil
}

// Remove deletes the line with the given id.
func (s *ExpenseSection) Remove(id string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("session: expense %q: %w", id, domain.ErrNotFound)
	}
	s.items = slices.Delete(s.items, i, i+1)
	s.recompute()
	return nil
}

func (s *ExpenseSection) index(id string) int {
	return slices.IndexFunc(s.items, func(e domain.Expense) bool { return e.ID == id })
}

func (s *ExpenseSection) reset(items []domain.Expense) {
	s.items = uniqueExpenses(items)
	s.total = domain.SumExpenses(s.items)
	s.state.SetExpenseTotal(s.total)
}

func (s *ExpenseSection) recompute() {
	s.total = domain.SumExpenses(s.items)
	s.state.SetExpenseTotal(s.total)
	s.bus.Publish(Event{Kind: ExpensesUpdated, Sender: SourceExpenses, Total: s.total})
}

// SummarySection keeps the derived profit figures current. It listens for
// every section update and for the manager's SummaryUpdated broadcast.
type SummarySection struct {
	state   *State
	summary domain.Summary
}

// NewSummarySection subscribes to every section update on bus and computes
// the initial figures.
func NewSummarySection(state *State, bus *Bus) *SummarySection {
	s := &SummarySection{state: state}
	bus.Subscribe(SourceSummary,
		Kinds(BasicUpdated, PaymentsUpdated, ExpensesUpdated, SummaryUpdated),
		func(Event) { s.recompute() })
	s.recompute()
	return s
}

// Summary returns the figures as of the last recompute.
func (s *SummarySection) Summary() domain.Summary { return s.summary }

// RateText is the profit rate as displayed, e.g. "28.0%".
func (s *SummarySection) RateText() string { return s.summary.ProfitRateText() }

func (s *SummarySection) recompute() {
	s.summary = domain.ComputeSummary(s.state.PaymentTotal(), s.state.ExpenseTotal(), s.state.PersonCount())
}

// uniquePayments copies items, giving a fresh id to any line whose id is
// blank or already taken, so ids stay unique for the life of the session.
func uniquePayments(items []domain.Payment) []domain.Payment {
	out := make([]domain.Payment, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, p := range items {
		if p.ID == "" || seen[p.ID] {
			p.ID = domain.NewLineID()
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

func uniqueExpenses(items []domain.Expense) []domain.Expense {
	out := make([]domain.Expense, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, e := range items {
		if e.ID == "" || seen[e.ID] {
			e.ID = domain.NewLineID()
		}
		if e.Status == "" {
			e.Status = domain.ExpenseUnarranged
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	return out
}
