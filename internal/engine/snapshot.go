package engine

import (
	"fmt"
	"maps"

	"github.com/talgya/taixu/internal/player"
	"github.com/talgya/taixu/internal/world"
)

// TileRecord is one tile in flat form. Building 0 means none.
type TileRecord struct {
	Col      int                `json:"col"`
	Row      int                `json:"row"`
	Terrain  world.Terrain      `json:"terrain"`
	Building world.BuildingKind `json:"building,omitempty"`
	Farm     *world.FarmData    `json:"farm,omitempty"`
}

// Snapshot is the whole simulation state in a flat, serialisable form.
// Restore(Snapshot()) reproduces the simulation exactly.
type Snapshot struct {
	SessionID  string                 `json:"session_id"`
	Width      int                    `json:"width"`
	Height     int                    `json:"height"`
	Bounds     world.Bounds           `json:"bounds"`
	Tiles      []TileRecord           `json:"tiles"`
	TotalDays  int                    `json:"total_days"`
	Tick       uint64                 `json:"tick"`
	Viewport   player.Viewport        `json:"viewport"`
	Player     player.State           `json:"player"`
	Storehouse map[world.CropType]int `json:"storehouse"`
	Stats      SimStats               `json:"stats"`
}

// Snapshot captures the current state. Loop goroutine only.
func (s *Simulation) Snapshot() *Snapshot {
	snap := &Snapshot{
		SessionID:  s.SessionID,
		Width:      s.Grid.Width,
		Height:     s.Grid.Height,
		Bounds:     s.Grid.Bounds(),
		Tiles:      make([]TileRecord, 0, s.Grid.TileCount()),
		TotalDays:  s.Calendar.TotalDays(),
		Tick:       s.LastTick,
		Viewport:   s.Player.Viewport(),
		Player:     s.Player.State(),
		Storehouse: maps.Clone(s.Storehouse),
		Stats:      s.Stats,
	}
	s.Grid.Each(func(t *world.Tile) {
		rec := TileRecord{Col: t.Coord.Col, Row: t.Coord.Row, Terrain: t.Terrain}
		if t.Building != nil {
			rec.Building = t.Building.Kind
		}
		if t.Farm != nil {
			f := *t.Farm
			rec.Farm = &f
		}
		snap.Tiles = append(snap.Tiles, rec)
	})
	return snap
}

// Restore rebuilds a Simulation from snap.
func Restore(snap *Snapshot, pcfg player.Config) (*Simulation, error) {
	if snap.Width <= 0 || snap.Height <= 0 {
		return nil, fmt.Errorf("restore: invalid grid size %dx%d", snap.Width, snap.Height)
	}
	g := world.NewGrid(snap.Width, snap.Height)
	for _, rec := range snap.Tiles {
		t, err := g.Tile(world.C(rec.Col, rec.Row))
		if err != nil {
			return nil, fmt.Errorf("restore: %w", err)
		}
		t.Terrain = rec.Terrain
		if rec.Building != 0 {
			t.Building = &world.Building{Kind: rec.Building}
		}
		if rec.Farm != nil {
			f := *rec.Farm
			t.Farm = &f
		}
	}
	g.SetBounds(snap.Bounds)

	sim, err := NewSimulation(g, Options{
		StartDay:  snap.TotalDays,
		View:      snap.Viewport,
		Player:    pcfg,
		SessionID: snap.SessionID,
	})
	if err != nil {
		return nil, err
	}
	sim.LastTick = snap.Tick
	sim.Player.Restore(snap.Player)
	if snap.Storehouse != nil {
		sim.Storehouse = maps.Clone(snap.Storehouse)
	}
	sim.Stats = snap.Stats
	sim.updateStats()
	sim.publish()
	return sim, nil
}
