package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultChannel is the NOTIFY / Pub/Sub channel signals travel on.
const DefaultChannel = "karte_changes"

// PGBroker carries signals between server instances over Postgres
// LISTEN/NOTIFY. Publish only notifies; every instance, including the
// publisher, receives the signal through Run and dispatches it locally.
type PGBroker struct {
	pool    *pgxpool.Pool
	hub     *Hub
	channel string
	log     *slog.Logger
}

// NewPGBroker constructs a PGBroker. Run must be started for subscribers
// to receive anything.
func NewPGBroker(pool *pgxpool.Pool, hub *Hub, log *slog.Logger) *PGBroker {
	return &PGBroker{pool: pool, hub: hub, channel: DefaultChannel, log: log}
}

// Publish sends s with pg_notify.
func (b *PGBroker) Publish(ctx context.Context, s Signal) error {
	payload, err := Encode(s)
	if err != nil {
		return err
	}
	if _, err := b.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, b.channel, string(payload)); err != nil {
		return fmt.Errorf("live.PGBroker.Publish: %w", err)
	}
	return nil
}

// Subscribe registers a local subscriber.
func (b *PGBroker) Subscribe(ctx context.Context, karteID uuid.UUID) (*Subscription, error) {
	return b.hub.Subscribe(ctx, karteID)
}

// Run holds one pooled connection in LISTEN mode and dispatches every
// notification until ctx ends. It returns nil on cancellation.
func (b *PGBroker) Run(ctx context.Context) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("live.PGBroker.Run: acquire: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{b.channel}.Sanitize()); err != nil {
		return fmt.Errorf("live.PGBroker.Run: listen: %w", err)
	}
	b.log.Info("live: listening for karte changes", "backend", "postgres", "channel", b.channel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("live.PGBroker.Run: wait: %w", err)
		}
		s, err := Decode([]byte(n.Payload))
		if err != nil {
			b.log.Warn("live: ignoring malformed notification", "error", err)
			continue
		}
		b.hub.Dispatch(s)
	}
}
