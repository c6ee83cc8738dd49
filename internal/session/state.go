package session

import (
	"math"

	"github.com/google/uuid"

	"github.com/pkordes/travel-karte/internal/domain"
)

// State is the application state shared by the sections of one Session:
// the open record's id and the cross-section totals. It has no locking of
// its own; the Session serialises every access.
type State struct {
	karteID      uuid.UUID
	paymentTotal float64
	expenseTotal float64
	personCount  float64
}

// KarteID is uuid.Nil until the record has been saved once.
func (s *State) KarteID() uuid.UUID { return s.karteID }

// SetKarteID records the id assigned by the first save.
func (s *State) SetKarteID(id uuid.UUID) { s.karteID = id }

// PaymentTotal is the payment section total.
func (s *State) PaymentTotal() float64 { return s.paymentTotal }

// SetPaymentTotal stores v; NaN and infinities become 0.
func (s *State) SetPaymentTotal(v float64) { s.paymentTotal = finite(v) }

// ExpenseTotal is the expense section total.
func (s *State) ExpenseTotal() float64 { return s.expenseTotal }

// SetExpenseTotal stores v; NaN and infinities become 0.
func (s *State) SetExpenseTotal(v float64) { s.expenseTotal = finite(v) }

// PersonCount is the number of travellers from the basic section.
func (s *State) PersonCount() float64 { return s.personCount }

// SetPersonCount stores v; NaN and infinities become 0.
func (s *State) SetPersonCount(v float64) { s.personCount = finite(v) }

// SetPersonCountText parses typed input; anything unparseable counts as 0.
func (s *State) SetPersonCountText(text string) {
	s.personCount = domain.ParseAmount(text)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
