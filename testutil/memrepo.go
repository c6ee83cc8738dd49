package testutil

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/travel-karte/internal/domain"
	"github.com/pkordes/travel-karte/internal/repo"
)

// MemoryKarteRepo is an in-memory repo.KarteRepo for tests that need real
// service behaviour without Postgres. Timestamps are strictly increasing,
// like clock_timestamp() on a single server.
type MemoryKarteRepo struct {
	mu     sync.Mutex
	kartes map[uuid.UUID]domain.Karte
	last   time.Time
}

var _ repo.KarteRepo = (*MemoryKarteRepo)(nil)

// NewMemoryKarteRepo returns an empty store.
func NewMemoryKarteRepo() *MemoryKarteRepo {
	return &MemoryKarteRepo{kartes: map[uuid.UUID]domain.Karte{}}
}

func (r *MemoryKarteRepo) tick() time.Time {
	now := time.Now().UTC()
	if !now.After(r.last) {
		now = r.last.Add(time.Microsecond)
	}
	r.last = now
	return now
}

func (r *MemoryKarteRepo) Create(_ context.Context, k domain.Karte) (domain.Karte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k.ID = uuid.New()
	k.LastUpdated = r.tick()
	r.kartes[k.ID] = clone(k)
	return clone(k), nil
}

func (r *MemoryKarteRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Karte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.kartes[id]
	if !ok {
		return domain.Karte{}, fmt.Errorf("testutil.MemoryKarteRepo.GetByID: %w", domain.ErrNotFound)
	}
	return clone(k), nil
}

// ListRecent cuts the newest q.Limit rows, then filters them with
// KarteInfo.Matches, the same order the Postgres query applies.
func (r *MemoryKarteRepo) ListRecent(_ context.Context, q domain.ListQuery) ([]domain.KarteListItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]domain.KarteListItem, 0, len(r.kartes))
	for _, k := range r.kartes {
		items = append(items, domain.KarteListItem{
			ID:          k.ID,
			Info:        k.Info,
			Editors:     domain.CopyEditors(k.Editors),
			LastUpdated: k.LastUpdated,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].LastUpdated.After(items[j].LastUpdated) })
	if len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return slices.DeleteFunc(items, func(it domain.KarteListItem) bool {
		return !it.Info.Matches(q.Search)
	}), nil
}

func (r *MemoryKarteRepo) Update(_ context.Context, k domain.Karte) (domain.Karte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.kartes[k.ID]; !ok {
		return domain.Karte{}, fmt.Errorf("testutil.MemoryKarteRepo.Update: %w", domain.ErrNotFound)
	}
	k.LastUpdated = r.tick()
	r.kartes[k.ID] = clone(k)
	return clone(k), nil
}

func (r *MemoryKarteRepo) UpdateEditors(_ context.Context, id uuid.UUID, editors map[string]domain.Editor) (domain.Karte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.kartes[id]
	if !ok {
		return domain.Karte{}, fmt.Errorf("testutil.MemoryKarteRepo.UpdateEditors: %w", domain.ErrNotFound)
	}
	k.Editors = domain.CopyEditors(editors)
	r.kartes[id] = k
	return clone(k), nil
}

func (r *MemoryKarteRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.kartes[id]; !ok {
		return fmt.Errorf("testutil.MemoryKarteRepo.Delete: %w", domain.ErrNotFound)
	}
	delete(r.kartes, id)
	return nil
}

// Put stores k as-is, LastUpdated included. Tests use it to stage records.
func (r *MemoryKarteRepo) Put(k domain.Karte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kartes[k.ID] = clone(k)
}

func clone(k domain.Karte) domain.Karte {
	k.Payments = slices.Clone(k.Payments)
	k.Expenses = slices.Clone(k.Expenses)
	k.Comments = slices.Clone(k.Comments)
	k.Editors = domain.CopyEditors(k.Editors)
	return k
}
