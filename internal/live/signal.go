// Package live fans karte change signals out to subscribers.
//
// A signal only says that a karte changed; subscribers re-read the record
// to get its content. That keeps payloads far below the Postgres NOTIFY
// limit and makes dropped signals harmless as long as one is still pending.
package live

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SignalType tags a Signal.
type SignalType string

const (
	SignalUpdated SignalType = "updated"
	SignalDeleted SignalType = "deleted"
)

// Signal announces a change to one karte.
type Signal struct {
	Type    SignalType `json:"type"`
	KarteID uuid.UUID  `json:"karte_id"`
	At      time.Time  `json:"at"`
}

// Broker publishes signals and hands out per-karte subscriptions.
type Broker interface {
	Publish(ctx context.Context, s Signal) error
	// Subscribe returns a subscription that is closed when ctx ends or
	// Close is called, whichever comes first.
	Subscribe(ctx context.Context, karteID uuid.UUID) (*Subscription, error)
}

// Encode serialises a signal for the wire.
func Encode(s Signal) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("live.Encode: %w", err)
	}
	return b, nil
}

// Decode parses a wire signal.
func Decode(b []byte) (Signal, error) {
	var s Signal
	if err := json.Unmarshal(b, &s); err != nil {
		return Signal{}, fmt.Errorf("live.Decode: %w", err)
	}
	if s.KarteID == uuid.Nil {
		return Signal{}, fmt.Errorf("live.Decode: missing karte_id")
	}
	return s, nil
}
