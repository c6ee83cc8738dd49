// Package service contains the business logic for the karte service.
// Services derive computed blocks, orchestrate repo calls and announce
// changes on the live broker. No SQL lives here.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/travel-karte/internal/domain"
	"github.com/pkordes/travel-karte/internal/grid"
	"github.com/pkordes/travel-karte/internal/live"
	"github.com/pkordes/travel-karte/internal/repo"
)

// KarteService implements the karte operations. Records are overwritten
// whole; concurrent saves resolve last-write-wins at the database.
type KarteService struct {
	repo   repo.KarteRepo
	broker live.Broker
	log    *slog.Logger
}

// NewKarteService constructs a KarteService.
func NewKarteService(r repo.KarteRepo, b live.Broker, log *slog.Logger) *KarteService {
	return &KarteService{repo: r, broker: b, log: log}
}

// Create persists a new karte. The id is assigned by the database.
func (s *KarteService) Create(ctx context.Context, k domain.Karte) (domain.Karte, error) {
	if k.ID != uuid.Nil {
		return domain.Karte{}, fmt.Errorf("service.KarteService.Create: %w: id must not be set", domain.ErrValidation)
	}
	k.Derive()

	created, err := s.repo.Create(ctx, k)
	if err != nil {
		return domain.Karte{}, fmt.Errorf("service.KarteService.Create: %w", err)
	}
	s.publish(ctx, live.SignalUpdated, created.ID)
	return created, nil
}

// GetByID returns a single karte.
func (s *KarteService) GetByID(ctx context.Context, id uuid.UUID) (domain.Karte, error) {
	k, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Karte{}, fmt.Errorf("service.KarteService.GetByID: %w", err)
	}
	return k, nil
}

// ListRecent returns the most recently updated kartes, newest first,
// narrowed to those matching q.Search.
func (s *KarteService) ListRecent(ctx context.Context, q domain.ListQuery) ([]domain.KarteListItem, error) {
	if q.Limit < 1 {
		q.Limit = domain.ListLimit
	}
	q.Search = strings.TrimSpace(q.Search)
	items, err := s.repo.ListRecent(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("service.KarteService.ListRecent: %w", err)
	}
	return items, nil
}

// Save overwrites an existing karte, presence map included, and returns the
// stored record with its new LastUpdated.
func (s *KarteService) Save(ctx context.Context, k domain.Karte) (domain.Karte, error) {
	if k.ID == uuid.Nil {
		return domain.Karte{}, fmt.Errorf("service.KarteService.Save: %w: id is required", domain.ErrValidation)
	}
	k.Derive()

	saved, err := s.repo.Update(ctx, k)
	if err != nil {
		return domain.Karte{}, fmt.Errorf("service.KarteService.Save: %w", err)
	}
	s.publish(ctx, live.SignalUpdated, saved.ID)
	return saved, nil
}

// SetEditors replaces only the presence map of a karte.
func (s *KarteService) SetEditors(ctx context.Context, id uuid.UUID, editors map[string]domain.Editor) (domain.Karte, error) {
	k, err := s.repo.UpdateEditors(ctx, id, editors)
	if err != nil {
		return domain.Karte{}, fmt.Errorf("service.KarteService.SetEditors: %w", err)
	}
	s.publish(ctx, live.SignalUpdated, id)
	return k, nil
}

// Delete removes a karte.
func (s *KarteService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.KarteService.Delete: %w", err)
	}
	s.publish(ctx, live.SignalDeleted, id)
	return nil
}

// ImportLegacy converts a grid document from the spreadsheet-style editor
// into a new karte.
func (s *KarteService) ImportLegacy(ctx context.Context, doc grid.LegacyDocument) (domain.Karte, error) {
	created, err := s.Create(ctx, grid.ParseLegacy(doc, s.log))
	if err != nil {
		return domain.Karte{}, fmt.Errorf("service.KarteService.ImportLegacy: %w", err)
	}
	return created, nil
}

// Watch streams the karte's changes. The first message is the current
// snapshot; each later signal is resolved into a fresh snapshot, or a
// deleted message after which the channel closes. The channel also closes
// when ctx ends.
func (s *KarteService) Watch(ctx context.Context, id uuid.UUID) (<-chan domain.Change, error) {
	// Subscribe before the first read so no change falls between the two.
	sub, err := s.broker.Subscribe(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service.KarteService.Watch: subscribe: %w", err)
	}
	k, err := s.repo.GetByID(ctx, id)
	if err != nil {
		sub.Close()
		return nil, fmt.Errorf("service.KarteService.Watch: %w", err)
	}

	out := make(chan domain.Change, 1)
	out <- domain.Change{Kind: domain.ChangeSnapshot, KarteID: id, Karte: &k}

	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-sub.C:
				if !ok {
					return
				}
				change, err := s.resolve(ctx, id, sig)
				if err != nil {
					if ctx.Err() == nil {
						s.log.Warn("watch: could not resolve change", "karte_id", id, "error", err)
					}
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
				if change.Kind == domain.ChangeDeleted {
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *KarteService) resolve(ctx context.Context, id uuid.UUID, sig live.Signal) (domain.Change, error) {
	if sig.Type == live.SignalDeleted {
		return domain.Change{Kind: domain.ChangeDeleted, KarteID: id}, nil
	}
	k, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		// The delete signal may have been dropped behind this one.
		return domain.Change{Kind: domain.ChangeDeleted, KarteID: id}, nil
	}
	if err != nil {
		return domain.Change{}, err
	}
	return domain.Change{Kind: domain.ChangeSnapshot, KarteID: id, Karte: &k}, nil
}

// publish announces a change. Delivery is best effort: the write already
// succeeded, so a broker failure is logged and not returned.
func (s *KarteService) publish(ctx context.Context, t live.SignalType, id uuid.UUID) {
	sig := live.Signal{Type: t, KarteID: id, At: time.Now().UTC()}
	if err := s.broker.Publish(context.WithoutCancel(ctx), sig); err != nil {
		s.log.Error("live: publish failed", "karte_id", id, "type", t, "error", err)
	}
}
