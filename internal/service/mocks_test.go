package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/travel-karte/internal/domain"
	"github.com/pkordes/travel-karte/internal/live"
	"github.com/pkordes/travel-karte/internal/repo"
)

// mockKarteRepo is a hand-written test double for repo.KarteRepo.
// Each method is a function field; set only the ones your test needs.
type mockKarteRepo struct {
	create        func(ctx context.Context, k domain.Karte) (domain.Karte, error)
	getByID       func(ctx context.Context, id uuid.UUID) (domain.Karte, error)
	listRecent    func(ctx context.Context, q domain.ListQuery) ([]domain.KarteListItem, error)
	update        func(ctx context.Context, k domain.Karte) (domain.Karte, error)
	updateEditors func(ctx context.Context, id uuid.UUID, editors map[string]domain.Editor) (domain.Karte, error)
	delete        func(ctx context.Context, id uuid.UUID) error
}

func (m *mockKarteRepo) Create(ctx context.Context, k domain.Karte) (domain.Karte, error) {
	return m.create(ctx, k)
}
func (m *mockKarteRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Karte, error) {
	return m.getByID(ctx, id)
}
func (m *mockKarteRepo) ListRecent(ctx context.Context, q domain.ListQuery) ([]domain.KarteListItem, error) {
	return m.listRecent(ctx, q)
}
func (m *mockKarteRepo) Update(ctx context.Context, k domain.Karte) (domain.Karte, error) {
	return m.update(ctx, k)
}
func (m *mockKarteRepo) UpdateEditors(ctx context.Context, id uuid.UUID, editors map[string]domain.Editor) (domain.Karte, error) {
	return m.updateEditors(ctx, id, editors)
}
func (m *mockKarteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}

// compile-time check: mockKarteRepo must satisfy repo.KarteRepo.
var _ repo.KarteRepo = (*mockKarteRepo)(nil)

// recordingBroker wraps a real Hub and remembers every published signal.
type recordingBroker struct {
	*live.Hub
	err error

	mu        sync.Mutex
	published []live.Signal
}

func newRecordingBroker() *recordingBroker {
	return &recordingBroker{Hub: live.NewHub(discardLogger())}
}

func (b *recordingBroker) Publish(ctx context.Context, s live.Signal) error {
	b.mu.Lock()
	b.published = append(b.published, s)
	b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	return b.Hub.Publish(ctx, s)
}

func (b *recordingBroker) signals() []live.Signal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]live.Signal(nil), b.published...)
}

var _ live.Broker = (*recordingBroker)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
