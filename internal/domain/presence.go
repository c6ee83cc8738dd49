package domain

import "time"

const (
	// EditorTTL is how long a presence entry survives without a heartbeat.
	EditorTTL = 5 * time.Minute
	// HeartbeatInterval is how often an open session refreshes its entry.
	HeartbeatInterval = 60 * time.Second
)

// PruneEditors returns a copy of editors without the entries whose
// LastActive is older than ttl at now. The input map is not modified.
func PruneEditors(editors map[string]Editor, now time.Time, ttl time.Duration) map[string]Editor {
	out := make(map[string]Editor, len(editors))
	for id, e := range editors {
		if now.Sub(e.LastActive) > ttl {
			continue
		}
		out[id] = e
	}
	return out
}

// CopyEditors returns a shallow copy of editors, never nil.
func CopyEditors(editors map[string]Editor) map[string]Editor {
	out := make(map[string]Editor, len(editors))
	for id, e := range editors {
		out[id] = e
	}
	return out
}
