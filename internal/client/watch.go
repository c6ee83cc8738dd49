package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pkordes/travel-karte/internal/domain"
)

// Watch opens the live change feed of a karte. The first message is the
// current snapshot. The channel closes when ctx ends, after a deleted
// message, or when the connection drops; a dropped feed is logged.
func (c *Client) Watch(ctx context.Context, id uuid.UUID) (<-chan domain.Change, error) {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/kartes/" + id.String() + "/live"

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			if apiErr := checkResponse(resp); apiErr != nil {
				return nil, fmt.Errorf("client.Client.Watch: %w", apiErr)
			}
			if resp.StatusCode != http.StatusSwitchingProtocols {
				return nil, fmt.Errorf("client.Client.Watch: %w", &APIError{Status: resp.StatusCode})
			}
		}
		return nil, fmt.Errorf("client.Client.Watch: %w", err)
	}

	out := make(chan domain.Change, 1)
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	go func() {
		defer close(out)
		defer stop()
		defer conn.Close()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					c.log.Warn("client: live feed dropped", "karte_id", id, "error", err)
				}
				return
			}
			if kind != websocket.TextMessage {
				c.log.Warn("client: ignoring live frame", "karte_id", id, "error", errUnexpectedFrame)
				continue
			}
			var change domain.Change
			if err := json.Unmarshal(data, &change); err != nil {
				c.log.Warn("client: undecodable live frame", "karte_id", id, "error", err)
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
	}()
	return out, nil
}
