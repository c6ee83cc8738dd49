package session

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
)

// EventKind identifies what changed.
type EventKind int

// The kinds of change a section announces. SummaryUpdated is the manager's
// request for a recompute after a whole record is loaded.
const (
	BasicUpdated EventKind = iota + 1
	PaymentsUpdated
	ExpensesUpdated
	SummaryUpdated
)

// String returns the snake_case name used in log lines.
func (k EventKind) String() string {
	switch k {
	case BasicUpdated:
		return "basic_updated"
	case PaymentsUpdated:
		return "payments_updated"
	case ExpensesUpdated:
		return "expenses_updated"
	case SummaryUpdated:
		return "summary_updated"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Source tags the publisher of an event and the owner of a subscription.
type Source string

// Sources, one per section plus the data manager.
const (
	SourceBasic    Source = "basic"
	SourcePayments Source = "payments"
	SourceExpenses Source = "expenses"
	SourceSummary  Source = "summary"
	SourceManager  Source = "manager"
)

// Event is one notification on the Bus. Total carries the new section total
// for PaymentsUpdated and ExpensesUpdated.
type Event struct {
	Kind   EventKind
	Sender Source
	Total  float64
}

// Filter decides whether a subscriber wants an event. A nil Filter accepts
// everything.
type Filter func(Event) bool

// Kinds returns a Filter accepting only the given kinds.
func Kinds(kinds ...EventKind) Filter {
	return func(ev Event) bool { return slices.Contains(kinds, ev.Kind) }
}

type subscriber struct {
	id     uint64
	owner  Source
	filter Filter
	fn     func(Event)
}

// Bus is a synchronous in-process fan-out. Publish runs every matching
// callback in registration order before it returns and never delivers an
// event back to the subscriber that owns its Sender.
type Bus struct {
	log *slog.Logger

	mu     sync.Mutex
	nextID uint64
	subs   []subscriber
}

// NewBus returns an empty Bus.
func NewBus(log *slog.Logger) *Bus {
	return &Bus{log: log}
}

// Subscribe registers fn for events accepted by filter and not sent by
// owner. The returned func removes the subscription.
func (b *Bus) Subscribe(owner Source, filter Filter, fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, owner: owner, filter: filter, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subs = slices.DeleteFunc(b.subs, func(s subscriber) bool { return s.id == id })
	}
}

// Publish delivers ev. A panicking callback is logged and skipped; the
// remaining callbacks still run.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	subs := slices.Clone(b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		if s.owner == ev.Sender {
			continue
		}
		if s.filter != nil && !s.filter(ev) {
			continue
		}
		b.deliver(s, ev)
	}
}

func (b *Bus) deliver(s subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("session: bus callback panicked",
				"owner", s.owner, "event", ev.Kind.String(), "sender", ev.Sender,
				"panic", r, "stack", string(debug.Stack()))
		}
	}()
	s.fn(ev)
}
