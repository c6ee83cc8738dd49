package handler_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-karte/internal/domain"
	"github.com/pkordes/travel-karte/internal/grid"
	"github.com/pkordes/travel-karte/internal/handler"
)

// mockKarteServicer is a test double for handler.KarteServicer.
// Set only the method fields your test needs.
type mockKarteServicer struct {
	create       func(ctx context.Context, k domain.Karte) (domain.Karte, error)
	getByID      func(ctx context.Context, id uuid.UUID) (domain.Karte, error)
	listRecent   func(ctx context.Context, q domain.ListQuery) ([]domain.KarteListItem, error)
	save         func(ctx context.Context, k domain.Karte) (domain.Karte, error)
	setEditors   func(ctx context.Context, id uuid.UUID, editors map[string]domain.Editor) (domain.Karte, error)
	delete       func(ctx context.Context, id uuid.UUID) error
	importLegacy func(ctx context.Context, doc grid.LegacyDocument) (domain.Karte, error)
	watch        func(ctx context.Context, id uuid.UUID) (<-chan domain.Change, error)
}

func (m *mockKarteServicer) Create(ctx context.Context, k domain.Karte) (domain.Karte, error) {
	return m.create(ctx, k)
}
func (m *mockKarteServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.Karte, error) {
	return m.getByID(ctx, id)
}
func (m *mockKarteServicer) ListRecent(ctx context.Context, q domain.ListQuery) ([]domain.KarteListItem, error) {
	return m.listRecent(ctx, q)
}
func (m *mockKarteServicer) Save(ctx context.Context, k domain.Karte) (domain.Karte, error) {
	return m.save(ctx, k)
}
func (m *mockKarteServicer) SetEditors(ctx context.Context, id uuid.UUID, e map[string]domain.Editor) (domain.Karte, error) {
	return m.setEditors(ctx, id, e)
}
func (m *mockKarteServicer) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}
func (m *mockKarteServicer) ImportLegacy(ctx context.Context, doc grid.LegacyDocument) (domain.Karte, error) {
	return m.importLegacy(ctx, doc)
}
func (m *mockKarteServicer) Watch(ctx context.Context, id uuid.UUID) (<-chan domain.Change, error) {
	return m.watch(ctx, id)
}

// compile-time check: mockKarteServicer must satisfy handler.KarteServicer.
var _ handler.KarteServicer = (*mockKarteServicer)(nil)

type exporterFunc func(ctx context.Context, id uuid.UUID) (domain.ExportFile, error)

func (f exporterFunc) Export(ctx context.Context, id uuid.UUID) (domain.ExportFile, error) {
	return f(ctx, id)
}

// countingRecorder is a test double for handler.Recorder.
// Stream counters are touched from the connection goroutine.
type countingRecorder struct {
	writes []string
	opened atomic.Int32
	closed atomic.Int32
}

func (c *countingRecorder) Write(op string) { c.writes = append(c.writes, op) }
func (c *countingRecorder) StreamOpened()   { c.opened.Add(1) }
func (c *countingRecorder) StreamClosed()   { c.closed.Add(1) }

var _ handler.Recorder = (*countingRecorder)(nil)

// ---- helpers ---------------------------------------------------------------

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newHTTPHandler wires a Server with the given mocks into a chi router the
// same way main.go does.
func newHTTPHandler(svc handler.KarteServicer, exp handler.Exporter, opts ...handler.Option) http.Handler {
	r := chi.NewRouter()
	handler.NewServer(svc, exp, discardLogger(), opts...).Register(r)
	return r
}

func karteFixture() domain.Karte {
	return domain.Karte{
		ID:       uuid.New(),
		Basic:    domain.BasicInfo{KarteNo: "D-20250601-1", StaffName: "佐藤", PersonCount: 4},
		Payments: []domain.Payment{{ID: "p1", Amount: 80000}},
		Expenses: []domain.Expense{{ID: "e1", Amount: 50000, Status: domain.ExpenseArranged}},
		Memo:     "バス手配済",
		Editors:  map[string]domain.Editor{},
	}
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func decodeError(t *testing.T, body io.Reader) handler.ErrorDetail {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp.Error
}
