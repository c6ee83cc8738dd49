package domain

import "github.com/google/uuid"

// ChangeKind tags a message on the live change feed.
type ChangeKind string

const (
	ChangeSnapshot ChangeKind = "snapshot"
	ChangeDeleted  ChangeKind = "deleted"
)

// Change is one message on a karte's live change feed. Snapshot messages
// carry the full current record; deleted messages carry only the id.
type Change struct {
	Kind    ChangeKind `json:"kind"`
	KarteID uuid.UUID  `json:"karte_id"`
	Karte   *Karte     `json:"karte,omitempty"`
}
