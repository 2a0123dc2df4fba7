package dev

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute-dev/saferoute/internal/pipeline"
	"github.com/saferoute-dev/saferoute/pkg/router"
)

func testTable(t *testing.T) *router.RouteTable {
	t.Helper()
	var entries []*router.RouteEntry
	for _, tokens := range [][]string{{"dashboard"}, {"user", "[id]"}, {"docs", "[...slug]"}} {
		e, err := router.Normalize(router.RouteNode{Source: "app/" + strings.Join(tokens, "/") + "/page.tsx", Tokens: tokens, Leaf: true})
		require.NoError(t, err)
		entries = append(entries, e)
	}
	table, err := router.BuildTable(entries)
	require.NoError(t, err)
	return table
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestStatusServerHealthAndRoutes(t *testing.T) {
	s := NewStatusServer(StatusOptions{Gatherer: prometheus.NewRegistry()})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	var h Health
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/healthz", &h))
	assert.Equal(t, "starting", h.Status)

	var body map[string]string
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/routes", &body))

	table := testTable(t)
	s.Observe(pipeline.Outcome{Generation: 1, Routes: 3, Table: table})

	var routes []RouteInfo
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/routes", &routes))
	require.Len(t, routes, 3)
	assert.Equal(t, "/user/$id", routes[1].Pattern)
	assert.Equal(t, []ParamInfo{{Name: "slug", Kind: "string[]"}}, routes[2].Params)

	// A failed pass degrades health but keeps the last good table.
	s.Observe(pipeline.Outcome{Generation: 2, Err: errors.New("conflict")})
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/healthz", &h))
	assert.Equal(t, "degraded", h.Status)
	assert.Equal(t, uint64(2), h.Generation)
	assert.Equal(t, 3, h.Routes)
	assert.Equal(t, "conflict", h.LastError)
}

func TestStatusServerHealthReportsState(t *testing.T) {
	c := NewCoordinator(CoordinatorOptions{Runner: &fakeRunner{}, Source: newChanSource()})
	s := NewStatusServer(StatusOptions{Gatherer: prometheus.NewRegistry(), Coordinator: c})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	var h Health
	getJSON(t, srv.URL+"/healthz", &h)
	assert.Equal(t, "idle", h.State)
}

func TestStatusServerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := pipeline.NewMetrics(pipeline.WithRegistry(reg))
	p, err := pipeline.New(pipeline.Options{Metrics: metrics})
	require.NoError(t, err)
	p.Run(t.Context(), pipeline.Job{Root: t.TempDir() + "/missing", Type: router.ProjectNextApp, Output: t.TempDir() + "/routes.d.ts"})

	s := NewStatusServer(StatusOptions{Gatherer: reg})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `saferoute_passes_total{result="error"} 1`)
}

func TestStatusServerEvents(t *testing.T) {
	s := NewStatusServer(StatusOptions{Gatherer: prometheus.NewRegistry()})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.Broadcaster().ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	s.Observe(pipeline.Outcome{Generation: 7, Routes: 3, Changed: true, Output: "routes.d.ts", Table: testTable(t)})
	s.Observe(pipeline.Outcome{Generation: 8, Err: errors.New("E110")})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventGenerated, ev.Type)
	assert.Equal(t, uint64(7), ev.Generation)
	assert.True(t, ev.Changed)

	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, "E110", ev.Error)
}

func TestBroadcasterClientCount(t *testing.T) {
	b := NewBroadcaster()
	assert.Equal(t, 0, b.ClientCount())
	b.Publish(Event{Type: EventGenerated})
	b.Close()
}
