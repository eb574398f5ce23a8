// Town generation using layered simplex noise.
// Generates moisture and fertility fields, then derives terrain, a lane cross
// through the centre, and scattered trees.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds town generation parameters.
type GenConfig struct {
	Width      int     // Grid columns
	Height     int     // Grid rows
	Seed       int64   // Random seed (0 = random)
	WaterLevel float64 // Moisture threshold for ponds (0.0–1.0)
	ForestLvl  float64 // Moisture threshold for woodland (0.0–1.0)
	FarmLvl    float64 // Fertility threshold for farmland (0.0–1.0)
	Houses     int     // Number of houses to place along the lanes
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:      48,
		Height:     48,
		Seed:       0,
		WaterLevel: 0.22,
		ForestLvl:  0.70,
		FarmLvl:    0.60,
		Houses:     12,
	}
}

// SmallTestConfig returns a tiny town for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:      16,
		Height:     16,
		Seed:       42,
		WaterLevel: 0.20,
		ForestLvl:  0.75,
		FarmLvl:    0.55,
		Houses:     3,
	}
}

// Generate creates a complete town grid with terrain, lanes and buildings.
func Generate(cfg GenConfig) *Grid {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	// Two noise generators for independent layers.
	moistNoise := opensimplex.NewNormalized(seed)
	fertNoise := opensimplex.NewNormalized(seed + 1)

	g := NewGrid(cfg.Width, cfg.Height)
	midCol, midRow := cfg.Width/2, cfg.Height/2

	for row := 0; row < cfg.Height; row++ {
		for col := 0; col < cfg.Width; col++ {
			x, y := float64(col), float64(row)

			moist := octaveNoise(moistNoise, x, y, 3, 0.09, 0.5)
			fert := octaveNoise(fertNoise, x, y, 2, 0.12, 0.5)

			// Keep the town centre dry so the lanes and spawn are always usable.
			dx := (x - float64(midCol)) / float64(cfg.Width)
			dy := (y - float64(midRow)) / float64(cfg.Height)
			centreFalloff := math.Min(1, math.Sqrt(dx*dx+dy*dy)*4)
			moist *= 0.4 + 0.6*centreFalloff

			t := &g.tiles[row*g.Width+col]
			t.Terrain = deriveTerrain(moist, fert, cfg)
		}
	}

	// Post-pass: lanes crossing at the centre.
	layLanes(g, midCol, midRow)

	// Post-pass: trees on woodland.
	plantTrees(g, seed)

	// Post-pass: houses along the lanes.
	PlaceHouses(g, seed, cfg.Houses)

	return g
}

// deriveTerrain determines terrain type from environmental parameters.
func deriveTerrain(moist, fert float64, cfg GenConfig) Terrain {
	if moist < cfg.WaterLevel {
		return TerrainWater
	}
	if moist > cfg.ForestLvl {
		return TerrainForest
	}
	if fert > cfg.FarmLvl {
		return TerrainFarmland
	}
	return TerrainGrass
}

func layLanes(g *Grid, midCol, midRow int) {
	for col := 0; col < g.Width; col++ {
		g.tiles[midRow*g.Width+col].Terrain = TerrainRoad
	}
	for row := 0; row < g.Height; row++ {
		g.tiles[row*g.Width+midCol].Terrain = TerrainRoad
	}
}

func plantTrees(g *Grid, seed int64) {
	rng := rand.New(rand.NewSource(seed + 100))
	for i := range g.tiles {
		t := &g.tiles[i]
		if t.Terrain == TerrainForest && rng.Float64() < 0.35 {
			t.Building = &Building{Kind: BuildingTree}
		}
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// TerrainCounts returns a summary of terrain type distribution.
func TerrainCounts(g *Grid) map[Terrain]int {
	counts := make(map[Terrain]int)
	for i := range g.tiles {
		counts[g.tiles[i].Terrain]++
	}
	return counts
}

// FindSpawn searches outward from the grid centre for a walkable lane or
// meadow tile. Falls back to the centre when nothing suitable exists.
func FindSpawn(g *Grid) Coord {
	centre := Coord{Col: g.Width / 2, Row: g.Height / 2}
	maxRadius := max(g.Width, g.Height) / 2

	for radius := 0; radius <= maxRadius; radius++ {
		for dr := -radius; dr <= radius; dr++ {
			for dc := -radius; dc <= radius; dc++ {
				// Ring only.
				if abs(dc) != radius && abs(dr) != radius {
					continue
				}
				c := centre.Add(Coord{Col: dc, Row: dr})
				if !g.IsWalkable(c) {
					continue
				}
				t := &g.tiles[c.Row*g.Width+c.Col]
				if t.Terrain == TerrainRoad || t.Terrain == TerrainGrass {
					return c
				}
			}
		}
	}
	return centre
}
