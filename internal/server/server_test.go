package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdrpinto/roboroute"
	"github.com/pdrpinto/roboroute/internal/config"
	ilog "github.com/pdrpinto/roboroute/internal/log"
	"github.com/pdrpinto/roboroute/internal/metrics"
	"github.com/pdrpinto/roboroute/internal/pathstore"
	"github.com/pdrpinto/roboroute/internal/speech"
)

// mockRobot records all dispatches for testing
type mockRobot struct {
	mu       sync.Mutex
	commands []string
	paths    [][]roboroute.Cell
	err      error
}

func (m *mockRobot) SendCommand(_ context.Context, command string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, command)
	return m.err
}

func (m *mockRobot) SendPath(_ context.Context, path []roboroute.Cell) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, path)
	return m.err
}

func (m *mockRobot) sentCommands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commands...)
}

type mockTranscriber struct {
	got []byte
	err error
}

func (m *mockTranscriber) Transcribe(_ context.Context, audio []byte) ([]speech.Transcript, error) {
	if len(audio) == 0 {
		return nil, speech.ErrEmptyAudio
	}
	m.got = append([]byte(nil), audio...)
	if m.err != nil {
		return nil, m.err
	}
	return []speech.Transcript{{Text: "go forward", Confidence: 0.9}}, nil
}

type fixture struct {
	server *Server
	robot  *mockRobot
	store  *pathstore.MemoryStore
}

func newFixture(t *testing.T, mutate func(*config.Config, *Deps)) *fixture {
	t.Helper()
	cfg := config.Default()
	f := &fixture{robot: &mockRobot{}, store: pathstore.NewMemoryStore()}
	deps := Deps{Store: f.store, Robot: f.robot, Logger: ilog.Discard()}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	f.server = New(cfg, deps)
	return f
}

func (f *fixture) do(t *testing.T, method, target string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.server.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return resp.StatusCode, out
}

func pathOf(t *testing.T, body map[string]any) [][]int {
	t.Helper()
	raw, err := json.Marshal(body["path"])
	require.NoError(t, err)
	var out [][]int
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func optimizeBody(grid [][]int, start, goal [2]int) map[string]any {
	return map[string]any{"grid": grid, "start": start, "goal": goal}
}

func TestOptimizePath_FoundAndCached(t *testing.T) {
	f := newFixture(t, nil)

	status, body := f.do(t, http.MethodGet, "/get-path", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "No path computed", body["error"])

	status, body = f.do(t, http.MethodPost, "/api/optimize-path",
		optimizeBody([][]int{{0, 0}, {0, 0}}, [2]int{0, 0}, [2]int{1, 1}))
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, [][]int{{0, 0}, {0, 1}, {1, 1}}, pathOf(t, body))
	assert.EqualValues(t, 2, body["steps"])
	id := body["id"]
	assert.NotEmpty(t, id)

	status, body = f.do(t, http.MethodGet, "/get-path", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, [][]int{{0, 0}, {0, 1}, {1, 1}}, pathOf(t, body))
	assert.Equal(t, id, body["id"])
}

func TestOptimizePath_NoPathKeepsLastSuccess(t *testing.T) {
	f := newFixture(t, nil)

	status, _ := f.do(t, http.MethodPost, "/api/optimize-path",
		optimizeBody([][]int{{0, 0, 0}, {1, 1, 0}, {0, 0, 0}}, [2]int{0, 0}, [2]int{2, 0}))
	require.Equal(t, http.StatusOK, status)

	status, body := f.do(t, http.MethodPost, "/api/optimize-path",
		optimizeBody([][]int{{0, 1}, {1, 0}}, [2]int{0, 0}, [2]int{1, 1}))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "No path found", body["error"])
	assert.NotContains(t, body, "reason")

	status, body = f.do(t, http.MethodGet, "/get-path", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, pathOf(t, body), 7)
}

func TestOptimizePath_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"malformed json", `{"grid": [[0]`},
		{"missing start", map[string]any{"grid": [][]int{{0}}, "goal": [2]int{0, 0}}},
		{"start out of bounds", optimizeBody([][]int{{0, 0}}, [2]int{3, 0}, [2]int{0, 1})},
		{"ragged grid", optimizeBody([][]int{{0, 0}, {0}}, [2]int{0, 0}, [2]int{1, 0})},
		{"empty grid", optimizeBody([][]int{}, [2]int{0, 0}, [2]int{0, 0})},
		{"bad cell", map[string]any{"grid": [][]int{{0}}, "start": []int{0}, "goal": [2]int{0, 0}}},
		{"unknown heuristic", map[string]any{"grid": [][]int{{0}}, "start": [2]int{0, 0}, "goal": [2]int{0, 0}, "heuristic": "octile"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			status, body := f.do(t, http.MethodPost, "/api/optimize-path", tt.body)
			assert.Equal(t, http.StatusBadRequest, status, body)
			assert.NotEmpty(t, body["error"])

			_, err := f.store.Load(context.Background())
			assert.ErrorIs(t, err, pathstore.ErrEmpty)
		})
	}
}

func TestOptimizePath_GridTooLarge(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, _ *Deps) { cfg.Server.MaxGridCells = 3 })
	status, _ := f.do(t, http.MethodPost, "/api/optimize-path",
		optimizeBody([][]int{{0, 0}, {0, 0}}, [2]int{0, 0}, [2]int{1, 1}))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestOptimizePath_ManhattanHeuristic(t *testing.T) {
	f := newFixture(t, nil)
	body := optimizeBody([][]int{{0, 0, 0}, {0, 0, 0}}, [2]int{0, 0}, [2]int{1, 2})
	body["heuristic"] = "manhattan"

	status, out := f.do(t, http.MethodPost, "/api/optimize-path", body)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, pathOf(t, out), 4)
}

// serpentine builds a grid whose only route snakes through every row.
func serpentine(rows, cols int) [][]int {
	grid := make([][]int, rows)
	for r := range grid {
		grid[r] = make([]int, cols)
		if r%2 == 1 {
			for c := range grid[r] {
				grid[r][c] = roboroute.Blocked
			}
			if (r/2)%2 == 0 {
				grid[r][cols-1] = roboroute.Free
			} else {
				grid[r][0] = roboroute.Free
			}
		}
	}
	return grid
}

func TestOptimizePath_TimeoutIsNoPathWithReason(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, _ *Deps) {
		cfg.Search.Timeout = config.Duration{Duration: time.Nanosecond}
	})

	status, body := f.do(t, http.MethodPost, "/api/optimize-path",
		optimizeBody(serpentine(301, 300), [2]int{0, 0}, [2]int{300, 0}))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "No path found", body["error"])
	assert.Equal(t, roboroute.ErrSearchTimedOut.Error(), body["reason"])
}

func TestOptimizePath_ForwardsPathToRobot(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, _ *Deps) { cfg.Robot.ForwardPath = true })

	status, _ := f.do(t, http.MethodPost, "/api/optimize-path",
		optimizeBody([][]int{{0, 0}}, [2]int{0, 0}, [2]int{0, 1}))
	require.Equal(t, http.StatusOK, status)

	f.robot.mu.Lock()
	defer f.robot.mu.Unlock()
	require.Len(t, f.robot.paths, 1)
	assert.Equal(t, []roboroute.Cell{{0, 0}, {0, 1}}, f.robot.paths[0])
}

func TestOptimizePath_RobotFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, _ *Deps) { cfg.Robot.ForwardPath = true })
	f.robot.err = errors.New("ev3 unreachable")

	status, _ := f.do(t, http.MethodPost, "/api/optimize-path",
		optimizeBody([][]int{{0, 0}}, [2]int{0, 0}, [2]int{0, 1}))
	assert.Equal(t, http.StatusOK, status)
}

func TestCommand(t *testing.T) {
	f := newFixture(t, nil)

	status, body := f.do(t, http.MethodPost, "/command", map[string]string{"command": "forward"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "command received", body["status"])
	assert.Equal(t, []string{"forward"}, f.robot.sentCommands())

	status, body = f.do(t, http.MethodPost, "/command", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "No command received", body["message"])
}

func TestCommand_RobotErrorStillAcknowledged(t *testing.T) {
	f := newFixture(t, nil)
	f.robot.err = errors.New("connection refused")

	status, body := f.do(t, http.MethodPost, "/command", map[string]string{"command": "left"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "command received", body["status"])
}

func TestRecordSend(t *testing.T) {
	f := newFixture(t, nil)

	status, body := f.do(t, http.MethodPost, "/record/send", map[string]any{"commands": []string{}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "No commands received", body["message"])

	status, body = f.do(t, http.MethodPost, "/record/send",
		map[string]any{"commands": []string{"forward", "left", "forward"}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "command sent", body["status"])
	assert.Equal(t, []string{"forward", "left", "forward"}, f.robot.sentCommands())
}

func TestTranscribe(t *testing.T) {
	f := newFixture(t, nil)
	status, _ := f.do(t, http.MethodPost, "/api/transcribe", []byte{1, 2})
	assert.Equal(t, http.StatusServiceUnavailable, status)

	transcriber := &mockTranscriber{}
	f = newFixture(t, func(_ *config.Config, deps *Deps) { deps.Transcriber = transcriber })

	status, body := f.do(t, http.MethodPost, "/api/transcribe", []byte{1, 2, 3, 4})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []byte{1, 2, 3, 4}, transcriber.got)
	transcripts := body["transcripts"].([]any)
	require.Len(t, transcripts, 1)
	assert.Equal(t, "go forward", transcripts[0].(map[string]any)["text"])

	status, _ = f.do(t, http.MethodPost, "/api/transcribe", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	transcriber.err = errors.New("quota exceeded")
	status, _ = f.do(t, http.MethodPost, "/api/transcribe", []byte{5})
	assert.Equal(t, http.StatusBadGateway, status)
}

func TestHealthAndCORS(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := f.server.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestTraceRequiresUpgrade(t *testing.T) {
	f := newFixture(t, nil)
	status, _ := f.do(t, http.MethodGet, "/ws/trace", nil)
	assert.Equal(t, http.StatusUpgradeRequired, status)
}

func TestMetricsRoute(t *testing.T) {
	f := newFixture(t, nil)
	status, _ := f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, status)

	provider := metrics.NewProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	f = newFixture(t, func(_ *config.Config, deps *Deps) {
		deps.Metrics = provider.Recorder()
		deps.MetricsSource = provider
	})

	status, _ = f.do(t, http.MethodPost, "/api/optimize-path",
		optimizeBody([][]int{{0, 0}, {0, 0}}, [2]int{0, 0}, [2]int{1, 1}))
	require.Equal(t, http.StatusOK, status)

	status, body := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, status)

	found := false
	for _, raw := range body["metrics"].([]any) {
		point := raw.(map[string]any)
		if point["name"] == "roboroute.search.count" {
			found = true
			assert.EqualValues(t, 1, point["value"])
			assert.Equal(t, metrics.OutcomeFound, point["attributes"].(map[string]any)["outcome"])
		}
	}
	assert.True(t, found, "search counter missing from /metrics")
}
