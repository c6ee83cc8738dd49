// Package domain contains the core data types for the travel karte service.
// A karte is the working sheet a travel agent keeps for one booking: basic
// trip facts, money received, money paid out, and the derived profit figures.
// This package depends only on google/uuid and is imported by every other
// internal package.
package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// TravelType distinguishes the two karte templates.
type TravelType string

const (
	TravelDomestic TravelType = "domestic"
	TravelOverseas TravelType = "overseas"
)

// ExpenseStatus is the arrangement state of a single expense line.
type ExpenseStatus string

const (
	ExpenseUnarranged ExpenseStatus = "unarranged"
	ExpenseArranged   ExpenseStatus = "arranged"
	ExpensePaid       ExpenseStatus = "paid"
)

// Label returns the worksheet label for s. Unknown values fall back to 未手配.
func (s ExpenseStatus) Label() string {
	switch s {
	case ExpenseArranged:
		return "手配済"
	case ExpensePaid:
		return "支払済"
	default:
		return "未手配"
	}
}

// ParseExpenseStatus maps a worksheet label or a wire value to a status.
func ParseExpenseStatus(s string) ExpenseStatus {
	switch s {
	case "手配済", string(ExpenseArranged):
		return ExpenseArranged
	case "支払済", string(ExpensePaid):
		return ExpensePaid
	default:
		return ExpenseUnarranged
	}
}

// Karte is one travel booking record. It is always read and written whole;
// the only partial write is the Editors presence map.
type Karte struct {
	// ID is uuid.Nil until the record is saved for the first time.
	ID       uuid.UUID `json:"id"`
	Basic    BasicInfo `json:"basic"`
	Payments []Payment `json:"payments"`
	Expenses []Expense `json:"expenses"`
	Comments []Comment `json:"comments"`
	Memo     string    `json:"memo"`

	// Summary and Info are derived by Derive and are never trusted from input.
	Summary Summary   `json:"summary"`
	Info    KarteInfo `json:"karte_info"`

	// LastUpdated is stamped by the server on every full write.
	LastUpdated time.Time         `json:"last_updated"`
	Editors     map[string]Editor `json:"current_editors"`
}

// BasicInfo holds the header section of a karte. Dates are "2006-01-02"
// strings and may be blank.
type BasicInfo struct {
	TravelType        TravelType `json:"travel_type"`
	KarteNo           string     `json:"karte_no"`
	StaffName         string     `json:"staff_name"`
	ClientOrg         string     `json:"client_org"`
	ClientPerson      string     `json:"client_person"`
	ClientPhone       string     `json:"client_phone"`
	ClientEmail       string     `json:"client_email"`
	DepartureDate     string     `json:"departure_date"`
	ReturnDate        string     `json:"return_date"`
	Nights            Number     `json:"nights"`
	DeparturePlace    string     `json:"departure_place"`
	Destination       string     `json:"destination"`
	TravelContent     string     `json:"travel_content"`
	PersonCount       Number     `json:"person_count"`
	TotalAmount       Number     `json:"total_amount"`
	UnitPrice         Number     `json:"unit_price"`
	PaymentTo         string     `json:"payment_to"`
	ArrangementStatus string     `json:"arrangement_status"`
}

// Payment is one line of money received from the client.
type Payment struct {
	ID       string `json:"id"`
	DueDate  string `json:"due_date"`
	PaidDate string `json:"paid_date"`
	Amount   Number `json:"amount"`
	Place    string `json:"place"`
	Notes    string `json:"notes"`
}

// Expense is one line of money paid out to a vendor.
type Expense struct {
	ID        string        `json:"id"`
	UsageDate string        `json:"usage_date"`
	Vendor    string        `json:"vendor"`
	Phone     string        `json:"phone"`
	Person    string        `json:"person"`
	DueDate   string        `json:"due_date"`
	Amount    Number        `json:"amount"`
	Status    ExpenseStatus `json:"status"`
	Notes     string        `json:"notes"`
}

// Comment is a timestamped note in the karte's activity log.
type Comment struct {
	ID       string    `json:"id"`
	Author   string    `json:"author"`
	PostedAt time.Time `json:"posted_at"`
	Text     string    `json:"text"`
}

// Editor is one entry of the presence map.
type Editor struct {
	Name       string    `json:"name"`
	LastActive time.Time `json:"last_active"`
}

// KarteInfo is the denormalised block shown in the karte list.
type KarteInfo struct {
	KarteNo       string `json:"karte_no"`
	StaffName     string `json:"staff_name"`
	ClientOrg     string `json:"client_org"`
	DepartureDate string `json:"departure_date"`
	PersonCount   Number `json:"person_count"`
	Destination   string `json:"destination"`
}

// KarteListItem is a karte row as returned by the list query.
type KarteListItem struct {
	ID          uuid.UUID         `json:"id"`
	Info        KarteInfo         `json:"karte_info"`
	Editors     map[string]Editor `json:"current_editors"`
	LastUpdated time.Time         `json:"last_updated"`
}

// Derive recomputes the Summary and Info blocks from the line items and
// basic info. Nil slices are normalised to empty ones so the record always
// encodes the same way.
func (k *Karte) Derive() {
	if k.Payments == nil {
		k.Payments = []Payment{}
	}
	if k.Expenses == nil {
		k.Expenses = []Expense{}
	}
	if k.Comments == nil {
		k.Comments = []Comment{}
	}
	if k.Editors == nil {
		k.Editors = map[string]Editor{}
	}
	k.Summary = ComputeSummary(SumPayments(k.Payments), SumExpenses(k.Expenses), k.Basic.PersonCount.Float())
	k.Info = KarteInfo{
		KarteNo:       k.Basic.KarteNo,
		StaffName:     k.Basic.StaffName,
		ClientOrg:     k.Basic.ClientOrg,
		DepartureDate: k.Basic.DepartureDate,
		PersonCount:   k.Basic.PersonCount,
		Destination:   k.Basic.Destination,
	}
}

// NewKarte returns the blank template used for a fresh record.
func NewKarte(now time.Time) Karte {
	k := Karte{
		Basic: BasicInfo{
			TravelType: TravelDomestic,
			KarteNo:    DefaultKarteNo(now),
		},
	}
	k.Derive()
	return k
}

// DefaultKarteNo is the number prefix a new domestic karte starts with.
// Staff append the per-day sequence by hand.
func DefaultKarteNo(now time.Time) string {
	return "D-" + now.Format("20060102") + "-"
}

// NightsBetween returns the number of nights between two "2006-01-02" dates,
// rounding partial days up. ok is false when either date is blank or invalid.
func NightsBetween(departure, ret string) (nights int, ok bool) {
	d, err := time.Parse(time.DateOnly, departure)
	if err != nil {
		return 0, false
	}
	r, err := time.Parse(time.DateOnly, ret)
	if err != nil {
		return 0, false
	}
	days := math.Abs(r.Sub(d).Hours()) / 24
	return int(math.Ceil(days)), true
}

// UnitPrice returns the per-person price for total over persons, rounded.
// ok is false when persons is not positive.
func UnitPrice(total, persons float64) (price float64, ok bool) {
	if persons <= 0 {
		return 0, false
	}
	return roundHalfUp(total / persons), true
}

// NewLineID returns a time-ordered id for a payment, expense or comment line.
func NewLineID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
