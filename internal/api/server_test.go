package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/taixu/internal/engine"
	"github.com/talgya/taixu/internal/player"
	"github.com/talgya/taixu/internal/world"
)

const testAdminKey = "secret"

type fakeSaver struct {
	saves int
}

func (f *fakeSaver) SaveWorldState(ctx context.Context, sim *engine.Simulation) error {
	f.saves++
	return nil
}

// newTestServer runs a paused engine over a 10x10 grid whose top row is
// farmland.
func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	g := world.NewGrid(10, 10)
	for col := 0; col < 5; col++ {
		require.NoError(t, g.Terraform(world.C(col, 0), world.TerrainFarmland))
	}
	sim, err := engine.NewSimulation(g, engine.Options{
		Spawn:  world.C(5, 5),
		View:   player.Viewport{ScreenWidth: 800, ScreenHeight: 600, Zoom: 1},
		Player: player.DefaultConfig(),
	})
	require.NoError(t, err)

	eng := engine.NewEngine()
	eng.Speed = 0
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()
	require.Eventually(t, eng.Running, time.Second, time.Millisecond)

	s := &Server{
		Sim:         sim,
		Eng:         eng,
		DB:          &fakeSaver{},
		AdminKey:    testAdminKey,
		CORSOrigins: []string{"http://localhost:5173"},
	}
	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
	})
	return s, ts
}

func post(t *testing.T, ts *httptest.Server, path, body string, admin bool) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("Authorization", "Bearer "+testAdminKey)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := ts.Client().Get(ts.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestStatusAndCalendar(t *testing.T) {
	s, ts := newTestServer(t)

	resp := get(t, ts, "/api/v1/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	var status map[string]any
	decodeBody(t, resp, &status)
	assert.Equal(t, s.Sim.SessionID, status["session_id"])
	assert.Equal(t, true, status["running"])

	resp = get(t, ts, "/api/v1/calendar")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cal map[string]any
	decodeBody(t, resp, &cal)
	assert.Equal(t, "太虛元年", cal["year"])
	assert.Equal(t, "立春", cal["solar_term"])
}

func TestFrame(t *testing.T) {
	_, ts := newTestServer(t)
	resp := get(t, ts, "/api/v1/frame")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var f engine.Frame
	decodeBody(t, resp, &f)
	assert.Equal(t, world.C(5, 5), f.Player.Grid)
	assert.NotEmpty(t, f.Tiles)
}

func TestTileEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp := get(t, ts, "/api/v1/tile/1/0")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail map[string]any
	decodeBody(t, resp, &detail)
	assert.Equal(t, "empty", detail["status"])
	assert.Equal(t, true, detail["walkable"])

	assert.Equal(t, http.StatusNotFound, get(t, ts, "/api/v1/tile/99/99").StatusCode)
	assert.Equal(t, http.StatusBadRequest, get(t, ts, "/api/v1/tile/a/0").StatusCode)
}

func TestPlantAndHarvest(t *testing.T) {
	s, ts := newTestServer(t)

	resp := post(t, ts, "/api/v1/farm/plant", `{"col":1,"row":0,"crop":"wheat"}`, false)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"replant", "/api/v1/farm/plant", `{"col":1,"row":0,"crop":"wheat"}`, http.StatusUnprocessableEntity},
		{"grass", "/api/v1/farm/plant", `{"col":5,"row":5,"crop":"wheat"}`, http.StatusUnprocessableEntity},
		{"unknown crop", "/api/v1/farm/plant", `{"col":2,"row":0,"crop":"maize"}`, http.StatusUnprocessableEntity},
		{"missing crop", "/api/v1/farm/plant", `{"col":2,"row":0}`, http.StatusBadRequest},
		{"bad json", "/api/v1/farm/plant", `{`, http.StatusBadRequest},
		{"unripe", "/api/v1/farm/harvest", `{"col":1,"row":0}`, http.StatusConflict},
		{"off grid", "/api/v1/farm/harvest", `{"col":40,"row":0}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, post(t, ts, tt.path, tt.body, false).StatusCode)
		})
	}

	// Ripen the wheat on the loop.
	require.NoError(t, s.Eng.Do(context.Background(), func() {
		for day := 1; day <= 6; day++ {
			s.Sim.TickDay(uint64(day * engine.TicksPerDay))
		}
	}))

	resp = post(t, ts, "/api/v1/farm/harvest", `{"col":1,"row":0}`, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]int
	decodeBody(t, resp, &out)
	assert.Equal(t, 4, out["yield"])
	assert.Equal(t, 4, out["stored"])
}

func TestInput(t *testing.T) {
	s, ts := newTestServer(t)

	resp := post(t, ts, "/api/v1/input", `{"type":"tile_clicked","col":3,"row":3}`, false)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var path []world.Coord
	require.NoError(t, s.Eng.Do(context.Background(), func() { path = s.Sim.Player.PendingPath() }))
	assert.Equal(t, world.C(3, 3), path[len(path)-1])

	assert.Equal(t, http.StatusUnprocessableEntity,
		post(t, ts, "/api/v1/input", `{"type":"tile_clicked","col":-1,"row":0}`, false).StatusCode)
	assert.Equal(t, http.StatusBadRequest,
		post(t, ts, "/api/v1/input", `{"type":"jump"}`, false).StatusCode)
	assert.Equal(t, http.StatusAccepted,
		post(t, ts, "/api/v1/input", `{"type":"key_down","key":"up"}`, false).StatusCode)
}

func TestAdminEndpoints(t *testing.T) {
	s, ts := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, post(t, ts, "/api/v1/build", `{"col":7,"row":7,"kind":"house"}`, false).StatusCode)
	assert.Equal(t, http.StatusCreated, post(t, ts, "/api/v1/build", `{"col":7,"row":7,"kind":"house"}`, true).StatusCode)
	assert.Equal(t, http.StatusConflict, post(t, ts, "/api/v1/build", `{"col":7,"row":7,"kind":"house"}`, true).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, ts, "/api/v1/build", `{"col":8,"row":8,"kind":"castle"}`, true).StatusCode)
	assert.Equal(t, http.StatusOK, post(t, ts, "/api/v1/demolish", `{"col":7,"row":7}`, true).StatusCode)

	assert.Equal(t, http.StatusOK, post(t, ts, "/api/v1/speed", `{"speed":0}`, true).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, ts, "/api/v1/speed", `{"speed":-3}`, true).StatusCode)

	assert.Equal(t, http.StatusOK, post(t, ts, "/api/v1/snapshot", `{}`, true).StatusCode)
	assert.Equal(t, 1, s.DB.(*fakeSaver).saves)
}

func TestTerraformAndTeleport(t *testing.T) {
	s, ts := newTestServer(t)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"flood", "/api/v1/terraform", `{"col":7,"row":7,"terrain":"water"}`, http.StatusOK},
		{"flood under player", "/api/v1/terraform", `{"col":5,"row":5,"terrain":"water"}`, http.StatusConflict},
		{"unknown terrain", "/api/v1/terraform", `{"col":7,"row":7,"terrain":"lava"}`, http.StatusBadRequest},
		{"off grid", "/api/v1/terraform", `{"col":70,"row":7,"terrain":"road"}`, http.StatusNotFound},
		{"teleport onto water", "/api/v1/teleport", `{"col":7,"row":7}`, http.StatusUnprocessableEntity},
		{"teleport", "/api/v1/teleport", `{"col":2,"row":3}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, post(t, ts, tt.path, tt.body, true).StatusCode)
		})
	}

	var (
		pos      world.Coord
		walkable bool
	)
	require.NoError(t, s.Eng.Do(context.Background(), func() {
		pos = s.Sim.Player.GridPosition()
		walkable = s.Sim.Grid.IsWalkable(world.C(7, 7))
	}))
	assert.Equal(t, world.C(2, 3), pos)
	assert.False(t, walkable)

	post(t, ts, "/api/v1/input", `{"type":"tile_clicked","col":4,"row":4}`, false)
	var status map[string]any
	decodeBody(t, get(t, ts, "/api/v1/status"), &status)
	cache := status["route_cache"].(map[string]any)
	assert.Equal(t, 1.0, cache["misses"])
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	s, ts := newTestServer(t)
	s.AdminKey = ""
	assert.Equal(t, http.StatusForbidden, post(t, ts, "/api/v1/speed", `{"speed":1}`, true).StatusCode)
}

func TestEventsFilter(t *testing.T) {
	_, ts := newTestServer(t)
	post(t, ts, "/api/v1/farm/plant", `{"col":1,"row":0,"crop":"wheat"}`, false)
	post(t, ts, "/api/v1/build", `{"col":7,"row":7,"kind":"well"}`, true)

	var events []engine.Event
	decodeBody(t, get(t, ts, "/api/v1/events"), &events)
	assert.Len(t, events, 2)

	decodeBody(t, get(t, ts, "/api/v1/events?category=farm"), &events)
	require.Len(t, events, 1)
	assert.Equal(t, engine.CategoryFarm, events[0].Category)
}

func TestCORS(t *testing.T) {
	_, ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/input", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp := get(t, ts, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(body, []byte("taixu_ticks_total")))
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t)
	s.Limiter = NewRateLimiter(2, time.Minute)
	// Middleware is bound when the router is built.
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusAccepted, post(t, ts, "/api/v1/input", `{"type":"key_up","key":"up"}`, false).StatusCode)
	}
	resp := post(t, ts, "/api/v1/input", `{"type":"key_up","key":"up"}`, false)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestStoppedEngine(t *testing.T) {
	s, ts := newTestServer(t)
	s.Eng = engine.NewEngine()
	assert.Equal(t, http.StatusServiceUnavailable, get(t, ts, "/api/v1/status").StatusCode)
	// Frames do not need the loop.
	assert.Equal(t, http.StatusOK, get(t, ts, "/api/v1/frame").StatusCode)
}

func TestWebSocket(t *testing.T) {
	s, ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "frame", msg.Type)
	assert.Equal(t, world.C(5, 5), msg.Frame.Player.Grid)

	require.NoError(t, conn.WriteJSON(player.TileClicked(-1, 0)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)

	require.NoError(t, conn.WriteJSON(player.TileClicked(2, 2)))
	require.Eventually(t, func() bool {
		var path []world.Coord
		s.Eng.Do(context.Background(), func() { path = s.Sim.Player.PendingPath() })
		return len(path) > 0
	}, time.Second, 5*time.Millisecond)
}

func TestWebSocketFramesWhilePaused(t *testing.T) {
	_, ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "frame", msg.Type)
	tick := msg.Frame.Tick

	require.Equal(t, http.StatusCreated,
		post(t, ts, "/api/v1/farm/plant", `{"col":1,"row":0,"crop":"wheat"}`, false).StatusCode)

	// Same tick, new field on the map.
	for {
		msg = wsMessage{}
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type != "frame" {
			continue
		}
		assert.Equal(t, tick, msg.Frame.Tick)
		planted := false
		for _, tile := range msg.Frame.Tiles {
			if tile.Coord == world.C(1, 0) && tile.Farm != nil {
				planted = true
			}
		}
		assert.True(t, planted)
		return
	}
}
