package metrics_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-karte/internal/metrics"
)

func TestObserveRequest(t *testing.T) {
	m := metrics.New()

	m.ObserveRequest(http.MethodGet, "/kartes/{id}", http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/kartes/{id}", http.StatusOK, 30*time.Millisecond)

	n, err := testutil.GatherAndCount(m.Registry(), "karte_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "same labels share one series")
}

func TestStreamsGauge(t *testing.T) {
	m := metrics.New()

	m.StreamOpened()
	m.StreamOpened()
	m.StreamClosed()

	expected := `
# HELP karte_live_streams Open live change-feed connections.
# TYPE karte_live_streams gauge
karte_live_streams 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "karte_live_streams"))
}

func TestWatchSubscriptions_ReadsAtScrape(t *testing.T) {
	m := metrics.New()
	n := 2
	m.WatchSubscriptions(func() int { return n })

	expected := `
# HELP karte_live_subscriptions Change-feed subscriptions held by the hub, across all kartes.
# TYPE karte_live_subscriptions gauge
karte_live_subscriptions %d
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(),
		strings.NewReader(fmt.Sprintf(expected, 2)), "karte_live_subscriptions"))

	n = 0
	require.NoError(t, testutil.GatherAndCompare(m.Registry(),
		strings.NewReader(fmt.Sprintf(expected, 0)), "karte_live_subscriptions"))
}

func TestHandler_ServesText(t *testing.T) {
	m := metrics.New()
	m.Write("create")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `karte_writes_total{op="create"} 1`)
}
