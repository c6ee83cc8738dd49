package live

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient parses url, connects and pings. The client is closed on
// ping failure.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("live.NewRedisClient: parse url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("live.NewRedisClient: ping: %w", err)
	}
	return client, nil
}

// RedisBroker carries signals between server instances over Redis Pub/Sub.
// Like PGBroker, every instance receives its own publishes through Run.
type RedisBroker struct {
	client  *redis.Client
	hub     *Hub
	channel string
	log     *slog.Logger
}

// NewRedisBroker constructs a RedisBroker. Run must be started for
// subscribers to receive anything.
func NewRedisBroker(client *redis.Client, hub *Hub, log *slog.Logger) *RedisBroker {
	return &RedisBroker{client: client, hub: hub, channel: DefaultChannel, log: log}
}

// Publish sends s to the channel.
func (b *RedisBroker) Publish(ctx context.Context, s Signal) error {
	payload, err := Encode(s)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("live.RedisBroker.Publish: %w", err)
	}
	return nil
}

// Subscribe registers a local subscriber.
func (b *RedisBroker) Subscribe(ctx context.Context, karteID uuid.UUID) (*Subscription, error) {
	return b.hub.Subscribe(ctx, karteID)
}

// Run subscribes to the channel and dispatches every message until ctx
// ends. It returns nil on cancellation.
func (b *RedisBroker) Run(ctx context.Context) error {
	ps := b.client.Subscribe(ctx, b.channel)
	defer ps.Close()

	// Receive blocks until the subscription is confirmed.
	if _, err := ps.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("live.RedisBroker.Run: subscribe: %w", err)
	}
	b.log.Info("live: listening for karte changes", "backend", "redis", "channel", b.channel)

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s, err := Decode([]byte(msg.Payload))
			if err != nil {
				b.log.Warn("live: ignoring malformed message", "error", err)
				continue
			}
			b.hub.Dispatch(s)
		}
	}
}
