package api

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/talgya/taixu/internal/calendar"
	"github.com/talgya/taixu/internal/engine"
	"github.com/talgya/taixu/internal/farm"
	"github.com/talgya/taixu/internal/player"
	"github.com/talgya/taixu/internal/world"
)

type tileRequest struct {
	Col     int    `json:"col"`
	Row     int    `json:"row"`
	Crop    string `json:"crop,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Terrain string `json:"terrain,omitempty"`
}

func (t tileRequest) coord() world.Coord {
	return world.C(t.Col, t.Row)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var status map[string]any
	err := s.do(r, func() {
		now := s.Sim.Calendar.Now()
		hits, misses := s.Sim.RouteCacheStats()
		status = map[string]any{
			"name":        "太虛",
			"session_id":  s.Sim.SessionID,
			"tick":        s.Sim.CurrentTick(),
			"sim_time":    engine.SimTime(now.TotalDays, s.Sim.CurrentTick()),
			"hour":        engine.HourOf(s.Sim.CurrentTick()),
			"season":      now.Season().Zh(),
			"solar_term":  now.SolarTerm().Zh(),
			"speed":       s.Eng.Speed,
			"player":      s.Sim.Player.GridPosition(),
			"stats":       s.Sim.Stats,
			"storehouse":  maps.Clone(s.Sim.Storehouse),
			"events":      s.Sim.Events.Len(),
			"route_cache": map[string]int{"hits": hits, "misses": misses},
		}
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	status["running"] = s.Eng.Running()
	writeJSON(w, status)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	var d calendar.Display
	if err := s.do(r, func() { d = calendar.DisplayOf(s.Sim.Calendar.Now()) }); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, d)
}

// handleFrame serves the last published frame without touching the loop.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	f := s.Sim.LatestFrame()
	if f == nil {
		writeError(w, http.StatusServiceUnavailable, "no frame yet")
		return
	}
	writeJSON(w, f)
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	col, err1 := strconv.Atoi(chi.URLParam(r, "col"))
	row, err2 := strconv.Atoi(chi.URLParam(r, "row"))
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "col and row must be integers")
		return
	}
	c := world.C(col, row)

	type tileDetail struct {
		world.Tile
		TerrainName string       `json:"terrain_name"`
		Walkable    bool         `json:"walkable"`
		Status      *farm.Status `json:"status,omitempty"`
		Progress    *int         `json:"progress,omitempty"`
	}
	var (
		detail tileDetail
		opErr  error
	)
	err := s.do(r, func() {
		t, err := s.Sim.Grid.Tile(c)
		if err != nil {
			opErr = err
			return
		}
		detail = tileDetail{
			Tile:        t.Clone(),
			TerrainName: world.TerrainName(t.Terrain),
			Walkable:    s.Sim.Grid.IsWalkable(c),
		}
		if st, err := s.Sim.Farm.Status(c); err == nil {
			detail.Status = &st
			if p, err := s.Sim.Farm.Progress(c); err == nil {
				detail.Progress = &p
			}
		}
	})
	if err == nil {
		err = opErr
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, detail)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events := s.Sim.Events.Recent(0)

	// Optional category filter.
	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	out := events[start:]
	if out == nil {
		out = []engine.Event{}
	}
	writeJSON(w, out)
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var ev player.Event
	if !decode(w, r, &ev) {
		return
	}
	if err := s.input(r, ev); err != nil {
		fail(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusAccepted, map[string]any{"accepted": ev.Kind.String()})
}

// input applies ev on the loop and returns the simulation's verdict.
func (s *Server) input(r *http.Request, ev player.Event) error {
	var opErr error
	if err := s.do(r, func() { opErr = s.Sim.Input(ev) }); err != nil {
		return err
	}
	return opErr
}

func (s *Server) handlePlant(w http.ResponseWriter, r *http.Request) {
	var req tileRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Crop == "" {
		writeError(w, http.StatusBadRequest, "crop is required")
		return
	}

	var opErr error
	if err := s.do(r, func() { opErr = s.Sim.Plant(req.coord(), world.CropType(req.Crop)) }); err != nil {
		fail(w, r, err)
		return
	}
	if opErr != nil {
		fail(w, r, opErr)
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]any{"col": req.Col, "row": req.Row, "crop": req.Crop})
}

func (s *Server) handleHarvest(w http.ResponseWriter, r *http.Request) {
	var req tileRequest
	if !decode(w, r, &req) {
		return
	}

	var (
		yield int
		total int
		opErr error
	)
	err := s.do(r, func() {
		t, err := s.Sim.Grid.Tile(req.coord())
		if err != nil {
			opErr = err
			return
		}
		var crop world.CropType
		if t.Farm != nil {
			crop = t.Farm.Crop
		}
		yield, opErr = s.Sim.Harvest(req.coord())
		total = s.Sim.Storehouse[crop]
	})
	if err == nil {
		err = opErr
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"col": req.Col, "row": req.Row, "yield": yield, "stored": total})
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	var req tileRequest
	if !decode(w, r, &req) {
		return
	}
	kind, ok := world.ParseBuildingKind(req.Kind)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown building kind %q", req.Kind))
		return
	}

	var opErr error
	if err := s.do(r, func() { opErr = s.Sim.Build(req.coord(), kind) }); err != nil {
		fail(w, r, err)
		return
	}
	if opErr != nil {
		fail(w, r, opErr)
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]any{"col": req.Col, "row": req.Row, "kind": kind.String()})
}

func (s *Server) handleDemolish(w http.ResponseWriter, r *http.Request) {
	var req tileRequest
	if !decode(w, r, &req) {
		return
	}
	var opErr error
	if err := s.do(r, func() { opErr = s.Sim.Demolish(req.coord()) }); err != nil {
		fail(w, r, err)
		return
	}
	if opErr != nil {
		fail(w, r, opErr)
		return
	}
	writeJSON(w, map[string]any{"col": req.Col, "row": req.Row})
}

func (s *Server) handleTerraform(w http.ResponseWriter, r *http.Request) {
	var req tileRequest
	if !decode(w, r, &req) {
		return
	}
	terrain, ok := world.ParseTerrain(req.Terrain)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown terrain %q", req.Terrain))
		return
	}

	var opErr error
	if err := s.do(r, func() { opErr = s.Sim.Terraform(req.coord(), terrain) }); err != nil {
		fail(w, r, err)
		return
	}
	if opErr != nil {
		fail(w, r, opErr)
		return
	}
	writeJSON(w, map[string]any{"col": req.Col, "row": req.Row, "terrain": terrain.String()})
}

func (s *Server) handleTeleport(w http.ResponseWriter, r *http.Request) {
	var req tileRequest
	if !decode(w, r, &req) {
		return
	}
	var opErr error
	if err := s.do(r, func() { opErr = s.Sim.Teleport(req.coord()) }); err != nil {
		fail(w, r, err)
		return
	}
	if opErr != nil {
		fail(w, r, opErr)
		return
	}
	writeJSON(w, map[string]any{"col": req.Col, "row": req.Row})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Speed < 0 || req.Speed > 1000 {
		writeError(w, http.StatusBadRequest, "speed must be 0-1000")
		return
	}
	if err := s.do(r, func() { s.Eng.SetSpeed(req.Speed) }); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, map[string]float64{"speed": req.Speed})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	var (
		tick  uint64
		opErr error
	)
	err := s.do(r, func() {
		tick = s.Sim.CurrentTick()
		opErr = s.DB.SaveWorldState(r.Context(), s.Sim)
	})
	if err == nil {
		err = opErr
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, map[string]any{
		"tick":    tick,
		"message": "snapshot saved",
	})
}
