package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet_console/internal/config"
	"fleet_console/internal/console"
	"fleet_console/internal/domain"
	"fleet_console/internal/messaging/inproc"
	"fleet_console/internal/store/sqlite"
	"fleet_console/internal/workflow"
)

func newTestServer(t *testing.T, withJournal bool) (*httptest.Server, *console.Service) {
	t.Helper()
	var journal console.Journal
	if withJournal {
		store, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
		require.NoError(t, err)
		require.NoError(t, store.Migrate(context.Background()))
		t.Cleanup(func() { store.Close() })
		journal = store
	}

	svc := console.New(workflow.DefaultScript(), journal, inproc.New(16), console.Config{
		Interval: time.Hour,
		Seed:     42,
	}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)

	cfg := config.Default()
	cfg.Path = "/tmp/fleet_console.toml"
	srv := httptest.NewServer(New(svc, cfg, zerolog.Nop()).Handler())
	t.Cleanup(func() {
		srv.Close()
		svc.Close()
		cancel()
	})
	return srv, svc
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthAndConfig(t *testing.T) {
	srv, _ := newTestServer(t, false)

	var health map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/healthz", &health))
	assert.Equal(t, "ok", health["status"])

	var cfg map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/config", &cfg))
	assert.Equal(t, "/tmp/fleet_console.toml", cfg["path"])
}

func TestDashboardSections(t *testing.T) {
	srv, svc := newTestServer(t, false)
	want := svc.Dataset()

	var stats domain.Stats
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/dashboard/stats", &stats))
	assert.Equal(t, want.Stats, stats)

	var orders []domain.Order
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/dashboard/orders", &orders))
	assert.Len(t, orders, len(want.Orders))

	var tracking map[string]domain.Tracking
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/dashboard/tracking", &tracking))
	assert.Len(t, tracking, len(want.Tracking))

	var charts domain.Charts
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/dashboard/charts", &charts))
	assert.Len(t, charts.WeeklyTrend, 7)

	var full domain.Dataset
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/dashboard", &full))
	assert.Len(t, full.Drivers, len(want.Drivers))

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/dashboard/weather", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, postJSON(t, srv.URL+"/dashboard/stats", nil))
}

func TestWorkflowControls(t *testing.T) {
	srv, _ := newTestServer(t, false)

	var snap domain.PlayerSnapshot
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/workflow", &snap))
	assert.False(t, snap.Running)
	assert.Equal(t, 10, snap.StageCount)
	require.NotNil(t, snap.CurrentStage)
	assert.Equal(t, "initial", snap.CurrentStage.ID)

	require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/workflow/start", &snap))
	assert.True(t, snap.Running)

	require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/workflow/pause", &snap))
	assert.False(t, snap.Running)
	assert.Equal(t, 0, snap.Cursor)

	// nothing advanced, so reset has nothing to undo and keeps the run
	runID := snap.RunID
	require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/workflow/reset", &snap))
	assert.Equal(t, runID, snap.RunID)
	assert.Equal(t, 0, snap.Cursor)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/workflow/advance", &snap))
	}
	assert.Equal(t, 3, snap.Cursor)
	assert.Equal(t, 3, snap.Revealed)
	assert.Equal(t, []int{0, 1, 2}, snap.Completed)
	assert.False(t, snap.Running)

	require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/workflow/reset", &snap))
	assert.NotEqual(t, runID, snap.RunID)
	assert.Equal(t, 0, snap.Revealed)

	assert.Equal(t, http.StatusMethodNotAllowed, getJSON(t, srv.URL+"/workflow/start", nil))
	assert.Equal(t, http.StatusNotFound, postJSON(t, srv.URL+"/workflow/rewind", nil))

	var script domain.Script
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/workflow/script", &script))
	assert.Len(t, script.Agents, 6)
	assert.Len(t, script.Exchanges, 8)
}

func TestJournalEndpoints(t *testing.T) {
	srv, svc := newTestServer(t, true)

	svc.StartWorkflow()
	svc.PauseWorkflow()

	var entries []domain.JournalEntry
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		entries = nil
		require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/workflow/journal", &entries))
		if len(entries) == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Len(t, entries, 2)
	assert.Equal(t, domain.PlayerEventPaused, entries[0].Kind)

	var limited []domain.JournalEntry
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/workflow/journal?limit=1&run="+entries[0].RunID, &limited))
	assert.Len(t, limited, 1)

	var runs []domain.RunSummary
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/workflow/runs", &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Events)
}

func TestJournalDisabledReturnsUnavailable(t *testing.T) {
	srv, _ := newTestServer(t, false)
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/workflow/journal", nil))
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/workflow/runs", nil))
}

func TestEventsStreamSnapshotThenTransitions(t *testing.T) {
	srv, svc := newTestServer(t, false)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/workflow/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first Frame
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, FrameSnapshot, first.Type)
	require.NotNil(t, first.Snapshot)
	assert.Equal(t, 0, first.Snapshot.Cursor)

	svc.StartWorkflow()

	var next Frame
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, FrameEvent, next.Type)
	require.NotNil(t, next.Event)
	assert.Equal(t, domain.PlayerEventStarted, next.Event.Kind)
	require.NotNil(t, next.Snapshot)
	assert.True(t, next.Snapshot.Running)
}
