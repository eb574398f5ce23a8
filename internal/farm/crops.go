// Package farm runs crop growth on farmland tiles: planting, daily stage
// advancement, ripening, withering and harvest.
package farm

import (
	"slices"

	"github.com/talgya/taixu/internal/calendar"
	"github.com/talgya/taixu/internal/world"
)

// Crop types.
const (
	Wheat world.CropType = "wheat"
	Bean  world.CropType = "bean"
	Rice  world.CropType = "rice"
)

// Crop describes how a crop grows.
type Crop struct {
	Type world.CropType
	Name string // Chinese display name

	// StageDays[i] is the number of days spent in stage i before advancing.
	// The final entry is the ripe window: how long a mature crop stays
	// harvestable before it withers.
	StageDays []int

	SowSeasons     []calendar.Season // nil = any season
	HarvestSeasons []calendar.Season // nil = any season

	Seeds        int // Seeds used per sowing
	Yield        int // Flat yield, used when YieldPerSeed is 0
	YieldPerSeed int
}

// MaxStage is the harvestable stage.
func (c *Crop) MaxStage() int {
	return len(c.StageDays) - 1
}

// GrowthDays is the number of days from sowing to ripeness.
func (c *Crop) GrowthDays() int {
	n := 0
	for _, d := range c.StageDays[:c.MaxStage()] {
		n += d
	}
	return n
}

// RipeWindow is how many days a mature crop may wait before withering.
func (c *Crop) RipeWindow() int {
	return c.StageDays[c.MaxStage()]
}

// CanSow reports whether the crop may be planted in season s.
func (c *Crop) CanSow(s calendar.Season) bool {
	return c.SowSeasons == nil || slices.Contains(c.SowSeasons, s)
}

// CanHarvest reports whether a ripe crop survives in season s.
func (c *Crop) CanHarvest(s calendar.Season) bool {
	return c.HarvestSeasons == nil || slices.Contains(c.HarvestSeasons, s)
}

// YieldFor returns the harvest quantity for a crop sown with the given seeds.
func (c *Crop) YieldFor(seeds int) int {
	if c.YieldPerSeed > 0 {
		return seeds * c.YieldPerSeed
	}
	return c.Yield
}

var crops = map[world.CropType]*Crop{
	Wheat: {
		Type:      Wheat,
		Name:      "麥",
		StageDays: []int{3, 3, 3},
		Seeds:     1,
		Yield:     4,
	},
	// Beans take two full seasons: sown in spring, picked in autumn.
	Bean: {
		Type:           Bean,
		Name:           "豆",
		StageDays:      []int{15, 15, 15, 15, 30},
		SowSeasons:     []calendar.Season{calendar.Spring},
		HarvestSeasons: []calendar.Season{calendar.Autumn},
		Seeds:          10,
		YieldPerSeed:   3,
	},
	Rice: {
		Type:       Rice,
		Name:       "稻",
		StageDays:  []int{5, 10, 10, 15},
		SowSeasons: []calendar.Season{calendar.Spring, calendar.Summer},
		Seeds:      1,
		Yield:      6,
	},
}

// Lookup returns the crop definition for t.
func Lookup(t world.CropType) (*Crop, bool) {
	c, ok := crops[t]
	return c, ok
}

// Types lists every known crop type in a stable order.
func Types() []world.CropType {
	return []world.CropType{Wheat, Bean, Rice}
}
