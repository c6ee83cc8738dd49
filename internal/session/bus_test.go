package session_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pkordes/travel-karte/internal/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBus_SkipsSenderAndKeepsOrder(t *testing.T) {
	bus := session.NewBus(discardLogger())
	var got []string
	bus.Subscribe(session.SourcePayments, nil, func(session.Event) { got = append(got, "payments") })
	bus.Subscribe(session.SourceSummary, nil, func(session.Event) { got = append(got, "summary") })
	bus.Subscribe(session.SourceBasic, nil, func(session.Event) { got = append(got, "basic") })

	bus.Publish(session.Event{Kind: session.PaymentsUpdated, Sender: session.SourcePayments, Total: 10})

	assert.Equal(t, []string{"summary", "basic"}, got)
}

func TestBus_Filter(t *testing.T) {
	bus := session.NewBus(discardLogger())
	var kinds []session.EventKind
	bus.Subscribe(session.SourceSummary, session.Kinds(session.ExpensesUpdated), func(ev session.Event) {
		kinds = append(kinds, ev.Kind)
	})

	bus.Publish(session.Event{Kind: session.PaymentsUpdated, Sender: session.SourcePayments})
	bus.Publish(session.Event{Kind: session.ExpensesUpdated, Sender: session.SourceExpenses, Total: 7})

	assert.Equal(t, []session.EventKind{session.ExpensesUpdated}, kinds)
}

func TestBus_PanicDoesNotStopDelivery(t *testing.T) {
	bus := session.NewBus(discardLogger())
	delivered := false
	bus.Subscribe(session.SourceBasic, nil, func(session.Event) { panic("boom") })
	bus.Subscribe(session.SourceSummary, nil, func(session.Event) { delivered = true })

	assert.NotPanics(t, func() {
		bus.Publish(session.Event{Kind: session.SummaryUpdated, Sender: session.SourceManager})
	})
	assert.True(t, delivered)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := session.NewBus(discardLogger())
	calls := 0
	unsubscribe := bus.Subscribe(session.SourceSummary, nil, func(session.Event) { calls++ })

	bus.Publish(session.Event{Kind: session.BasicUpdated, Sender: session.SourceBasic})
	unsubscribe()
	bus.Publish(session.Event{Kind: session.BasicUpdated, Sender: session.SourceBasic})

	assert.Equal(t, 1, calls)
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "payments_updated", session.PaymentsUpdated.String())
	assert.Equal(t, "event(99)", session.EventKind(99).String())
}
