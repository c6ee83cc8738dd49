package live

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// subscriptionBuffer is the number of undelivered signals a subscriber may
// fall behind by before new ones are dropped.
const subscriptionBuffer = 16

// Hub is the in-process fan-out. Used alone it is the single-instance
// broker; the Postgres and Redis brokers use it to dispatch what they receive.
type Hub struct {
	log *slog.Logger

	mu   sync.Mutex
	subs map[uuid.UUID]map[*Subscription]struct{}
}

// NewHub constructs an empty Hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{log: log, subs: make(map[uuid.UUID]map[*Subscription]struct{})}
}

// Publish delivers s to local subscribers.
func (h *Hub) Publish(_ context.Context, s Signal) error {
	h.Dispatch(s)
	return nil
}

// Dispatch delivers s to every subscriber of s.KarteID without blocking.
func (h *Hub) Dispatch(s Signal) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[s.KarteID] {
		select {
		case sub.ch <- s:
		default:
			h.log.Warn("live: subscriber queue full, dropping signal",
				"karte_id", s.KarteID, "type", s.Type)
		}
	}
}

// Subscribe registers a subscriber for one karte.
func (h *Hub) Subscribe(ctx context.Context, karteID uuid.UUID) (*Subscription, error) {
	ch := make(chan Signal, subscriptionBuffer)
	sub := &Subscription{C: ch, ch: ch, hub: h, karteID: karteID}

	h.mu.Lock()
	set, ok := h.subs[karteID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[karteID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	sub.mu.Lock()
	sub.stop = context.AfterFunc(ctx, sub.Close)
	sub.mu.Unlock()
	return sub, nil
}

// Subscribers returns the number of live subscriptions for the given
// kartes, or for every karte when none are given.
func (h *Hub) Subscribers(karteIDs ...uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	if len(karteIDs) == 0 {
		for _, set := range h.subs {
			n += len(set)
		}
		return n
	}
	for _, id := range karteIDs {
		n += len(h.subs[id])
	}
	return n
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.subs[sub.karteID]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.karteID)
	}
	// Closed under the lock so Dispatch never sends on a closed channel.
	close(sub.ch)
}

// Subscription receives the signals of one karte on C until closed.
type Subscription struct {
	C <-chan Signal

	ch      chan Signal
	hub     *Hub
	karteID uuid.UUID
	once    sync.Once

	mu   sync.Mutex
	stop func() bool
}

// Close unregisters the subscription and closes C. It is safe to call more
// than once and from any goroutine.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		if s.stop != nil {
			s.stop()
		}
		s.mu.Unlock()
		s.hub.remove(s)
	})
}
