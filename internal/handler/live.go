package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = livePongWait * 9 / 10
)

// WatchKarte handles GET /kartes/{id}/live. The connection is upgraded to a
// WebSocket only after the watch is established, so an unknown id is still
// a plain 404. Each domain.Change is sent as one JSON text frame. After a
// deleted message the server closes the connection normally.
func (s *Server) WatchKarte(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	changes, err := s.kartes.Watch(ctx, id)
	if err != nil {
		s.writeError(w, r, err, karteNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.log.WarnContext(r.Context(), "live: upgrade failed", "karte_id", id, "error", err)
		return
	}
	defer conn.Close()

	s.rec.StreamOpened()
	defer s.rec.StreamClosed()

	// The feed is one-way. Reading is still required to process control
	// frames and notice the peer going away.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		//nolint:errcheck
		conn.SetReadDeadline(time.Now().Add(livePongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(livePongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				//nolint:errcheck
				conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(liveWriteWait))
				return
			}
			data, err := json.Marshal(change)
			if err != nil {
				s.log.ErrorContext(ctx, "live: encode change", "karte_id", id, "error", err)
				return
			}
			//nolint:errcheck
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		}
	}
}
