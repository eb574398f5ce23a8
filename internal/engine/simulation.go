// Simulation ties together the town systems and runs them each tick.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/taixu/internal/calendar"
	"github.com/talgya/taixu/internal/farm"
	"github.com/talgya/taixu/internal/metrics"
	"github.com/talgya/taixu/internal/player"
	"github.com/talgya/taixu/internal/world"
)

// Options configures a new Simulation.
type Options struct {
	StartDay  int
	Spawn     world.Coord
	View      player.Viewport
	Player    player.Config
	SessionID string // Empty = generate
}

// Simulation holds the complete town state. Only the engine loop goroutine
// may call its mutating methods; LatestFrame and Events are safe anywhere.
type Simulation struct {
	Grid     *world.Grid
	Calendar *calendar.System
	Farm     *farm.System
	Player   *player.System
	Events   *EventLog

	SessionID string
	LastTick  uint64 // Most recent tick processed

	// Produce gathered so far, by crop.
	Storehouse map[world.CropType]int

	Stats SimStats

	latest atomic.Pointer[Frame]
}

// SimStats tracks aggregate town statistics.
type SimStats struct {
	Planted          int `json:"planted"`
	Harvested        int `json:"harvested"`
	Withered         int `json:"withered"`
	GrowingTiles     int `json:"growing_tiles"`
	HarvestableTiles int `json:"harvestable_tiles"`
	Buildings        int `json:"buildings"`
}

// NewSimulation creates a Simulation over an existing grid.
func NewSimulation(g *world.Grid, opts Options) (*Simulation, error) {
	cal := calendar.NewSystem(opts.StartDay)
	p, err := player.NewSystem(g, opts.View, opts.Spawn, opts.Player)
	if err != nil {
		return nil, fmt.Errorf("player: %w", err)
	}
	id := opts.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	sim := &Simulation{
		Grid:       g,
		Calendar:   cal,
		Farm:       farm.NewSystem(g, cal),
		Player:     p,
		Events:     NewEventLog(),
		SessionID:  id,
		Storehouse: make(map[world.CropType]int),
	}
	cal.OnSeasonChanged(sim.onSeason)
	cal.OnNewYear(sim.onNewYear)
	sim.updateStats()
	sim.publish()
	return sim, nil
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	return s.LastTick
}

// Emit records an event stamped with the current tick and day.
func (s *Simulation) Emit(category, description string, meta map[string]any) {
	s.Events.Emit(Event{
		Tick:        s.LastTick,
		Day:         s.Calendar.TotalDays(),
		Description: description,
		Category:    category,
		Meta:        meta,
	})
}

// TickFrame runs every tick: player input and viewport interpolation.
func (s *Simulation) TickFrame(tick uint64) {
	s.LastTick = tick

	res, err := s.Player.Step()
	if err != nil {
		s.reject("move", err)
		s.Emit(CategoryPlayer, "無路可達", map[string]any{"error": err.Error()})
	}
	if res.Arrived {
		pos := s.Player.GridPosition()
		s.Emit(CategoryPlayer, fmt.Sprintf("抵達 %s", pos), map[string]any{"col": pos.Col, "row": pos.Row})
	}
	s.publish()
}

// TickDay runs every in-game day. The calendar advances before growth so
// crops never see a stale day.
func (s *Simulation) TickDay(tick uint64) {
	s.LastTick = tick
	s.Calendar.Advance(1)
	metrics.Days.Inc()
	day := s.Calendar.TotalDays()

	for _, tr := range s.Farm.TickGrowth(day) {
		crop, _ := farm.Lookup(tr.Crop)
		name := string(tr.Crop)
		if crop != nil {
			name = crop.Name
		}
		meta := map[string]any{"col": tr.Coord.Col, "row": tr.Coord.Row, "crop": tr.Crop, "stage": tr.Stage}
		switch {
		case tr.Withered:
			s.Stats.Withered++
			s.Emit(CategoryFarm, fmt.Sprintf("%s %s 枯萎了", tr.Coord, name), meta)
		case tr.Ripe:
			s.Emit(CategoryFarm, fmt.Sprintf("%s %s 成熟了", tr.Coord, name), meta)
		}
	}
	s.updateStats()

	now := s.Calendar.Now()
	slog.Info("daily report",
		"tick", tick,
		"time", SimTime(day, tick),
		"solar_term", now.SolarTerm(),
		"growing", humanize.Comma(int64(s.Stats.GrowingTiles)),
		"harvestable", humanize.Comma(int64(s.Stats.HarvestableTiles)),
		"harvested", humanize.Comma(int64(s.Stats.Harvested)),
		"player", s.Player.GridPosition(),
		"events", s.Events.Len(),
	)
	s.publish()
}

func (s *Simulation) onSeason(season calendar.Season, now calendar.Time) {
	s.Emit(CategoryCalendar, fmt.Sprintf("%s季開始", season.Zh()), map[string]any{"season": season.String()})
}

func (s *Simulation) onNewYear(year int, now calendar.Time) {
	s.Emit(CategoryCalendar, fmt.Sprintf("%s到了", calendar.YearLabel(year)), map[string]any{"year": year})
}

// Plant sows crop at c.
func (s *Simulation) Plant(c world.Coord, crop world.CropType) error {
	if err := s.Farm.Plant(c, crop); err != nil {
		s.reject("plant", err)
		return err
	}
	s.Stats.Planted++
	metrics.CropsPlanted.WithLabelValues(string(crop)).Inc()
	s.Emit(CategoryFarm, fmt.Sprintf("在 %s 種下%s", c, cropName(crop)), map[string]any{"col": c.Col, "row": c.Row, "crop": crop})
	s.updateStats()
	s.publish()
	return nil
}

// Harvest gathers the crop at c into the storehouse and returns the yield.
func (s *Simulation) Harvest(c world.Coord) (int, error) {
	t, err := s.Grid.Tile(c)
	if err != nil {
		s.reject("harvest", err)
		return 0, err
	}
	var crop world.CropType
	if t.Farm != nil {
		crop = t.Farm.Crop
	}
	n, err := s.Farm.Harvest(c)
	if err != nil {
		s.reject("harvest", err)
		return 0, err
	}

	s.Stats.Harvested++
	s.Storehouse[crop] += n
	metrics.CropsHarvested.WithLabelValues(string(crop)).Inc()
	metrics.HarvestYield.WithLabelValues(string(crop)).Add(float64(n))
	desc := fmt.Sprintf("在 %s 收穫%s %d", c, cropName(crop), n)
	if n == 0 {
		desc = fmt.Sprintf("清理了 %s 枯萎的%s", c, cropName(crop))
	}
	s.Emit(CategoryFarm, desc, map[string]any{"col": c.Col, "row": c.Row, "crop": crop, "yield": n})
	s.updateStats()
	s.publish()
	return n, nil
}

// Build places a building at c.
func (s *Simulation) Build(c world.Coord, kind world.BuildingKind) error {
	if err := s.Grid.PlaceBuilding(c, world.Building{Kind: kind}); err != nil {
		s.reject("build", err)
		return err
	}
	s.Emit(CategoryBuild, fmt.Sprintf("在 %s 建了 %s", c, kind), map[string]any{"col": c.Col, "row": c.Row, "kind": kind.String()})
	s.updateStats()
	s.publish()
	return nil
}

// Demolish removes the building at c, if any.
func (s *Simulation) Demolish(c world.Coord) error {
	b, err := s.Grid.RemoveBuilding(c)
	if err != nil {
		s.reject("demolish", err)
		return err
	}
	if b != nil {
		s.Emit(CategoryBuild, fmt.Sprintf("拆除了 %s 的 %s", c, b.Kind), map[string]any{"col": c.Col, "row": c.Row, "kind": b.Kind.String()})
	}
	s.updateStats()
	s.publish()
	return nil
}

// Terraform changes the terrain at c. The tile under the player cannot be
// flooded.
func (s *Simulation) Terraform(c world.Coord, terrain world.Terrain) error {
	if terrain == world.TerrainWater && c == s.Player.GridPosition() {
		err := world.NewTileError("terraform", c, world.ErrOccupied)
		s.reject("terraform", err)
		return err
	}
	if err := s.Grid.Terraform(c, terrain); err != nil {
		s.reject("terraform", err)
		return err
	}
	s.Emit(CategoryBuild, fmt.Sprintf("%s 改為 %s", c, terrain), map[string]any{"col": c.Col, "row": c.Row, "terrain": terrain.String()})
	s.updateStats()
	s.publish()
	return nil
}

// Teleport moves the player straight to c, dropping any pending path.
func (s *Simulation) Teleport(c world.Coord) error {
	if err := s.Player.Teleport(c); err != nil {
		s.reject("teleport", err)
		return err
	}
	s.Emit(CategoryPlayer, fmt.Sprintf("傳送至 %s", c), map[string]any{"col": c.Col, "row": c.Row})
	s.publish()
	return nil
}

// RouteCacheStats returns the player's route cache hits and misses.
func (s *Simulation) RouteCacheStats() (hits, misses int) {
	return s.Player.Router().Stats()
}

// Input queues a client input event for the next frame. Clicks are
// validated immediately so the caller hears about unreachable targets.
func (s *Simulation) Input(ev player.Event) error {
	if ev.Kind == player.EventTileClicked {
		if err := s.Player.Click(ev.Tile); err != nil {
			metrics.PathRequests.WithLabelValues("no_path").Inc()
			s.reject("move", err)
			return err
		}
		metrics.PathRequests.WithLabelValues("ok").Inc()
		return nil
	}
	s.Player.Enqueue(ev)
	return nil
}

// Nearby returns the field the player can act on, if any.
func (s *Simulation) Nearby() (farm.Interaction, bool) {
	return s.Farm.Nearby(s.Player.GridPosition(), farm.InteractionDistance)
}

func (s *Simulation) updateStats() {
	growing, ripe, buildings := 0, 0, 0
	s.Grid.Each(func(t *world.Tile) {
		if t.Building != nil {
			buildings++
		}
		if t.Farm == nil || t.Farm.Withered {
			return
		}
		if c, ok := farm.Lookup(t.Farm.Crop); ok && t.Farm.Stage == c.MaxStage() {
			ripe++
		} else {
			growing++
		}
	})
	s.Stats.GrowingTiles = growing
	s.Stats.HarvestableTiles = ripe
	s.Stats.Buildings = buildings
	metrics.GrowingTiles.Set(float64(growing))
	metrics.HarvestableTiles.Set(float64(ripe))
}

// reject counts a failed operation by its sentinel error.
func (s *Simulation) reject(op string, err error) {
	metrics.Rejected.WithLabelValues(op, reason(err)).Inc()
	slog.Debug("operation rejected", "op", op, "error", err)
}

func reason(err error) string {
	switch {
	case errors.Is(err, world.ErrOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, world.ErrOccupied):
		return "occupied"
	case errors.Is(err, world.ErrUnbuildable):
		return "unbuildable"
	case errors.Is(err, farm.ErrInvalidTile):
		return "invalid_tile"
	case errors.Is(err, farm.ErrNotHarvestable):
		return "not_harvestable"
	case errors.Is(err, farm.ErrOutOfSeason):
		return "out_of_season"
	case errors.Is(err, farm.ErrUnknownCrop):
		return "unknown_crop"
	case errors.Is(err, player.ErrNoPath):
		return "no_path"
	default:
		return "other"
	}
}

func cropName(t world.CropType) string {
	if c, ok := farm.Lookup(t); ok {
		return c.Name
	}
	return string(t)
}
