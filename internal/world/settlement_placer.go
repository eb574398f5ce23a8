// Building placement: chooses lane-side lots for houses, shops and wells
// by scoring tiles on terrain and neighbourhood.
package world

import (
	"math/rand"
	"sort"
)

type lot struct {
	coord Coord
	score float64
}

// PlaceHouses scores every buildable tile, then places up to count houses on
// the best lots, spaced at least two tiles apart. Every fourth lot becomes a
// shop and the best lot gets a well. Returns the coordinates built on.
func PlaceHouses(g *Grid, seed int64, count int) []Coord {
	rng := rand.New(rand.NewSource(seed + 200))

	var candidates []lot
	for i := range g.tiles {
		t := &g.tiles[i]
		s := lotScore(g, t)
		if s <= 0 {
			continue
		}
		// Small jitter so equal-scoring lots don't always line up the same way.
		candidates = append(candidates, lot{coord: t.Coord, score: s + rng.Float64()*0.25})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	var placed []Coord
	for _, c := range candidates {
		if len(placed) >= count {
			break
		}
		if tooClose(c.coord, placed, 2) {
			continue
		}
		kind := BuildingHouse
		switch {
		case len(placed) == 0:
			kind = BuildingWell
		case len(placed)%4 == 3:
			kind = BuildingShop
		}
		if err := g.PlaceBuilding(c.coord, Building{Kind: kind}); err != nil {
			continue
		}
		placed = append(placed, c.coord)
	}
	return placed
}

// lotScore evaluates how desirable a tile is for a building.
// Prefers grass next to a lane; never builds on lanes, water or farmland.
func lotScore(g *Grid, t *Tile) float64 {
	if t.Building != nil || t.Farm != nil {
		return 0
	}
	score := 0.0
	switch t.Terrain {
	case TerrainGrass:
		score += 2.0
	case TerrainForest:
		score += 0.5
	default:
		return 0
	}

	for _, nc := range t.Coord.Neighbors() {
		if !g.InBounds(nc) {
			continue
		}
		switch g.tiles[nc.Row*g.Width+nc.Col].Terrain {
		case TerrainRoad:
			score += 1.0
		case TerrainWater:
			score += 0.3 // A view of the pond
		}
	}
	// Lots that don't touch a lane are only worth it if nothing else is left.
	if score < 3 {
		score *= 0.25
	}
	return score
}

func tooClose(c Coord, existing []Coord, minDist int) bool {
	for _, e := range existing {
		if Chebyshev(c, e) < minDist {
			return true
		}
	}
	return false
}
