package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-karte/internal/domain"
	"github.com/pkordes/travel-karte/internal/handler"
)

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestWatchKarte_streamsChangesUntilDeleted(t *testing.T) {
	k := karteFixture()
	changes := make(chan domain.Change, 2)
	changes <- domain.Change{Kind: domain.ChangeSnapshot, KarteID: k.ID, Karte: &k}
	changes <- domain.Change{Kind: domain.ChangeDeleted, KarteID: k.ID}
	close(changes)

	svc := &mockKarteServicer{
		watch: func(_ context.Context, id uuid.UUID) (<-chan domain.Change, error) {
			require.Equal(t, k.ID, id)
			return changes, nil
		},
	}
	rec := &countingRecorder{}
	srv := httptest.NewServer(newHTTPHandler(svc, nil, handler.WithRecorder(rec)))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/kartes/"+k.ID.String()+"/live"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first domain.Change
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &first))
	assert.Equal(t, domain.ChangeSnapshot, first.Kind)
	require.NotNil(t, first.Karte)
	assert.Equal(t, "バス手配済", first.Karte.Memo)

	var second domain.Change
	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &second))
	assert.Equal(t, domain.ChangeDeleted, second.Kind)
	assert.Nil(t, second.Karte)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	assert.Eventually(t, func() bool { return rec.closed.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), rec.opened.Load())
}

func TestWatchKarte_notFoundBeforeUpgrade(t *testing.T) {
	svc := &mockKarteServicer{
		watch: func(_ context.Context, _ uuid.UUID) (<-chan domain.Change, error) {
			return nil, domain.ErrNotFound
		},
	}
	srv := httptest.NewServer(newHTTPHandler(svc, nil))
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/kartes/"+uuid.NewString()+"/live"), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWatchKarte_clientCloseCancelsWatch(t *testing.T) {
	cancelled := make(chan struct{})
	svc := &mockKarteServicer{
		watch: func(ctx context.Context, id uuid.UUID) (<-chan domain.Change, error) {
			out := make(chan domain.Change, 1)
			out <- domain.Change{Kind: domain.ChangeSnapshot, KarteID: id, Karte: &domain.Karte{ID: id}}
			go func() {
				<-ctx.Done()
				close(cancelled)
			}()
			return out, nil
		},
	}
	srv := httptest.NewServer(newHTTPHandler(svc, nil))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/kartes/"+uuid.NewString()+"/live"), nil)
	require.NoError(t, err)
	_, _, err = conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("watch context was not cancelled after the client left")
	}
}

func TestWatchKarte_rejectsForeignOrigin(t *testing.T) {
	svc := &mockKarteServicer{
		watch: func(_ context.Context, _ uuid.UUID) (<-chan domain.Change, error) {
			return make(chan domain.Change), nil
		},
	}
	srv := httptest.NewServer(newHTTPHandler(svc, nil, handler.WithAllowedOrigins([]string{"http://localhost:5173"})))
	defer srv.Close()

	header := http.Header{"Origin": {"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/kartes/"+uuid.NewString()+"/live"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
