package farm

import (
	"errors"
	"fmt"
	"math"

	"github.com/talgya/taixu/internal/calendar"
	"github.com/talgya/taixu/internal/world"
)

var (
	// ErrInvalidTile is returned when planting on a tile that is not empty farmland.
	ErrInvalidTile = errors.New("tile cannot be planted")
	// ErrNotHarvestable is returned when harvesting a tile with no ripe crop.
	ErrNotHarvestable = errors.New("crop not ready for harvest")
	// ErrOutOfSeason is returned when sowing a crop outside its seasons.
	ErrOutOfSeason = errors.New("crop cannot be sown this season")
	// ErrUnknownCrop is returned for crop types missing from the crop table.
	ErrUnknownCrop = errors.New("unknown crop")
)

// InteractionDistance is how far, in tiles, the player can reach a field.
const InteractionDistance = 1.5

// Clock supplies the current day counter.
type Clock interface {
	TotalDays() int
}

// Status is the lifecycle state of a farmland tile.
type Status uint8

const (
	StatusEmpty Status = iota
	StatusGrowing
	StatusHarvestable
	StatusWithered
)

var statusNames = [...]string{"empty", "growing", "harvestable", "withered"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Transition records one tile changing during TickGrowth.
type Transition struct {
	Coord    world.Coord    `json:"coord"`
	Crop     world.CropType `json:"crop"`
	Stage    int            `json:"stage"`
	Ripe     bool           `json:"ripe,omitempty"`
	Withered bool           `json:"withered,omitempty"`
}

// System owns the FarmData of every farmland tile on a grid.
type System struct {
	grid  *world.Grid
	clock Clock
}

// NewSystem creates a farm system over grid, reading the day from clock.
func NewSystem(grid *world.Grid, clock Clock) *System {
	return &System{grid: grid, clock: clock}
}

// Plant sows crop on the farmland tile at c.
func (s *System) Plant(c world.Coord, crop world.CropType) error {
	def, ok := Lookup(crop)
	if !ok {
		return world.NewTileError("plant", c, fmt.Errorf("%w: %q", ErrUnknownCrop, crop))
	}
	t, err := s.grid.Tile(c)
	if err != nil {
		return err
	}
	if t.Terrain != world.TerrainFarmland || t.Building != nil || t.Farm != nil {
		return world.NewTileError("plant", c, ErrInvalidTile)
	}

	day := s.clock.TotalDays()
	if !def.CanSow(calendar.Time{TotalDays: day}.Season()) {
		return world.NewTileError("plant", c, ErrOutOfSeason)
	}

	t.Farm = &world.FarmData{
		Crop:            crop,
		PlantedDay:      day,
		StageStartedDay: day,
		Stage:           0,
		Seeds:           def.Seeds,
	}
	return nil
}

// TickGrowth advances every growing crop by at most one stage for the given
// day. A stage advances once the days since its start reach the stage's
// duration; the new stage starts on day, so repeating a call with the same
// day changes nothing. Ripe crops wither once their ripe window has passed
// or the season no longer allows harvest.
func (s *System) TickGrowth(day int) []Transition {
	season := calendar.Time{TotalDays: day}.Season()

	var changes []Transition
	for _, t := range s.grid.FarmTiles() {
		f := t.Farm
		if f.Withered {
			continue
		}
		def, ok := Lookup(f.Crop)
		if !ok {
			continue
		}

		ripe := def.MaxStage()
		changed := false
		if f.Stage < ripe && day-f.StageStartedDay >= def.StageDays[f.Stage] {
			f.Stage++
			f.StageStartedDay = day
			changed = true
		}
		if f.Stage == ripe && (day-f.StageStartedDay > def.RipeWindow() || !def.CanHarvest(season)) {
			f.Withered = true
			changed = true
		}

		if changed {
			changes = append(changes, Transition{
				Coord:    t.Coord,
				Crop:     f.Crop,
				Stage:    f.Stage,
				Ripe:     f.Stage == ripe && !f.Withered,
				Withered: f.Withered,
			})
		}
	}
	return changes
}

// Harvest clears the ripe crop at c and returns its yield. Withered crops
// are cleared for nothing. Unripe crops are left untouched.
func (s *System) Harvest(c world.Coord) (int, error) {
	t, err := s.grid.Tile(c)
	if err != nil {
		return 0, err
	}
	f := t.Farm
	if f == nil {
		return 0, world.NewTileError("harvest", c, ErrNotHarvestable)
	}
	def, ok := Lookup(f.Crop)
	if !ok {
		return 0, world.NewTileError("harvest", c, fmt.Errorf("%w: %q", ErrUnknownCrop, f.Crop))
	}
	if f.Stage != def.MaxStage() {
		return 0, world.NewTileError("harvest", c, ErrNotHarvestable)
	}

	t.Farm = nil
	if f.Withered {
		return 0, nil
	}
	return def.YieldFor(f.Seeds), nil
}

// Status reports the lifecycle state of the farmland tile at c.
func (s *System) Status(c world.Coord) (Status, error) {
	t, err := s.grid.Tile(c)
	if err != nil {
		return StatusEmpty, err
	}
	if t.Terrain != world.TerrainFarmland {
		return StatusEmpty, world.NewTileError("status", c, ErrInvalidTile)
	}
	return statusOf(t.Farm), nil
}

func statusOf(f *world.FarmData) Status {
	switch {
	case f == nil:
		return StatusEmpty
	case f.Withered:
		return StatusWithered
	}
	if def, ok := Lookup(f.Crop); ok && f.Stage == def.MaxStage() {
		return StatusHarvestable
	}
	return StatusGrowing
}

// Progress returns growth toward ripeness at c as a percentage 0–100.
func (s *System) Progress(c world.Coord) (int, error) {
	t, err := s.grid.Tile(c)
	if err != nil {
		return 0, err
	}
	return progressOf(t.Farm, s.clock.TotalDays()), nil
}

func progressOf(f *world.FarmData, day int) int {
	if f == nil {
		return 0
	}
	def, ok := Lookup(f.Crop)
	if !ok {
		return 0
	}
	ripe := def.MaxStage()
	if f.Stage >= ripe || ripe == 0 {
		return 100
	}
	done := 0
	for _, d := range def.StageDays[:f.Stage] {
		done += d
	}
	done += min(day-f.StageStartedDay, def.StageDays[f.Stage])
	pct := int(math.Floor(float64(done) / float64(def.GrowthDays()) * 100))
	return min(max(pct, 0), 99)
}

// Action is what the player can do at a field.
type Action string

const (
	ActionPlant   Action = "plant"
	ActionInspect Action = "inspect"
	ActionHarvest Action = "harvest"
	ActionClear   Action = "clear"
)

// Interaction describes the nearest field the player can act on.
type Interaction struct {
	Coord    world.Coord    `json:"coord"`
	Status   Status         `json:"status"`
	Crop     world.CropType `json:"crop,omitempty"`
	Progress int            `json:"progress"`
	Action   Action         `json:"action"`
	Prompt   string         `json:"prompt"`
}

// Nearby finds the closest farmland tile within radius tiles of at.
func (s *System) Nearby(at world.Coord, radius float64) (Interaction, bool) {
	reach := int(math.Ceil(radius))
	day := s.clock.TotalDays()

	var best *world.Tile
	bestDist := math.Inf(1)
	for dr := -reach; dr <= reach; dr++ {
		for dc := -reach; dc <= reach; dc++ {
			c := at.Add(world.Coord{Col: dc, Row: dr})
			t, err := s.grid.Tile(c)
			if err != nil || t.Terrain != world.TerrainFarmland || t.Building != nil {
				continue
			}
			d := math.Hypot(float64(dc), float64(dr))
			if d > radius || d >= bestDist {
				continue
			}
			best, bestDist = t, d
		}
	}
	if best == nil {
		return Interaction{}, false
	}

	in := Interaction{
		Coord:    best.Coord,
		Status:   statusOf(best.Farm),
		Progress: progressOf(best.Farm, day),
	}
	if best.Farm != nil {
		in.Crop = best.Farm.Crop
	}
	switch in.Status {
	case StatusEmpty:
		in.Action, in.Prompt = ActionPlant, "空置的農田"
	case StatusGrowing:
		in.Action, in.Prompt = ActionInspect, fmt.Sprintf("生長中... %d%%", in.Progress)
	case StatusHarvestable:
		in.Action, in.Prompt = ActionHarvest, "可以收穫了！"
	case StatusWithered:
		in.Action, in.Prompt = ActionClear, "作物已枯萎"
	}
	return in, true
}
