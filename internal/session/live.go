package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/travel-karte/internal/domain"
)

// attach subscribes to id's change feed and starts the presence heartbeat.
// Both stop when detach cancels their context. The heartbeat runs even if
// the subscription cannot be opened.
func (s *Session) attach(id uuid.UUID) error {
	ctx, cancel := context.WithCancel(s.root)

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.detachFn = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.beat(ctx, id)

	feed, err := s.backend.Watch(ctx, id)
	if err != nil {
		return err
	}
	s.wg.Add(1)
	go s.pump(gen, feed)
	return nil
}

// detach stops the live subscription and heartbeat and waits for both to
// exit. With unregister set, the local editor is then removed from the
// record it was attached to.
func (s *Session) detach(ctx context.Context, unregister bool) {
	s.mu.Lock()
	cancel := s.detachFn
	s.detachFn = nil
	s.gen++
	id := s.state.KarteID()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	// A remote delete cancels without waiting; collect those goroutines too.
	s.wg.Wait()

	if cancel == nil || !unregister || id == uuid.Nil {
		return
	}
	if err := s.writePresence(ctx, id, false); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.log.Warn("session: unregister editor failed", "karte_id", id, "error", err)
	}
}

func (s *Session) pump(gen uint64, feed <-chan domain.Change) {
	defer s.wg.Done()
	for change := range feed {
		s.apply(gen, change)
	}
}

// apply resolves one pushed change against local state.
func (s *Session) apply(gen uint64, change domain.Change) {
	var (
		level   Level
		message string
	)

	s.mu.Lock()
	switch {
	case gen != s.gen:
		// Late push from a detached subscription.
	case change.Kind == domain.ChangeDeleted:
		if change.KarteID == s.deleting {
			break
		}
		// Keep the user's content; the next save creates a new record.
		if s.detachFn != nil {
			s.detachFn()
			s.detachFn = nil
		}
		s.gen++
		s.state.SetKarteID(uuid.Nil)
		s.lastUpdated = time.Time{}
		s.baseline = time.Time{}
		s.editors = map[string]domain.Editor{}
		s.dirty = true
		level, message = LevelWarn, msgRemoteDeleted
	case change.Karte == nil:
	case s.updating:
		s.log.Debug("session: ignoring push during local save", "karte_id", change.KarteID)
	default:
		remote := change.Karte
		s.editors = s.pruned(remote.Editors)
		if remote.LastUpdated.After(s.baseline) {
			s.populate(*remote)
			s.lastUpdated = remote.LastUpdated
			s.baseline = remote.LastUpdated
			s.dirty = false
			level, message = LevelInfo, msgRemoteApplied
		}
	}
	s.mu.Unlock()

	if message != "" {
		s.notify(level, message)
	}
}

// beat refreshes the local presence entry every heartbeat interval.
func (s *Session) beat(ctx context.Context, id uuid.UUID) {
	defer s.wg.Done()
	t := time.NewTicker(s.heartbeat)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.writePresence(ctx, id, true); err != nil && ctx.Err() == nil {
				s.log.Warn("session: heartbeat failed", "karte_id", id, "error", err)
			}
		}
	}
}

// writePresence reads the stored presence map, prunes stale entries, adds
// or removes the local editor and writes the map back.
func (s *Session) writePresence(ctx context.Context, id uuid.UUID, present bool) error {
	cur, err := s.backend.GetByID(ctx, id)
	if err != nil {
		return err
	}
	editors := s.pruned(cur.Editors)
	if present {
		editors[s.identity.ID] = s.localEditor()
	} else {
		delete(editors, s.identity.ID)
	}

	k, err := s.backend.SetEditors(ctx, id, editors)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.state.KarteID() == id {
		s.editors = s.pruned(k.Editors)
	}
	s.mu.Unlock()
	return nil
}
