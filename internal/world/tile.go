// Package world provides the isometric tile lattice, terrain, buildings and
// walkability queries shared by the farm and player systems.
// Tiles are addressed by (col, row) grid coordinates.
package world

import (
	"fmt"
	"strings"
)

// Coord is a position on the tile grid.
type Coord struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// C is shorthand for Coord{Col: col, Row: row}.
func C(col, row int) Coord {
	return Coord{Col: col, Row: row}
}

// Add returns c offset by d.
func (c Coord) Add(d Coord) Coord {
	return Coord{Col: c.Col + d.Col, Row: c.Row + d.Row}
}

// Sub returns the delta from o to c.
func (c Coord) Sub(o Coord) Coord {
	return Coord{Col: c.Col - o.Col, Row: c.Row - o.Row}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Col, c.Row)
}

// NeighborOffsets lists the eight surrounding offsets, orthogonal first.
var NeighborOffsets = [8]Coord{
	{Col: 0, Row: -1},
	{Col: 1, Row: 0},
	{Col: 0, Row: 1},
	{Col: -1, Row: 0},
	{Col: 1, Row: -1},
	{Col: 1, Row: 1},
	{Col: -1, Row: 1},
	{Col: -1, Row: -1},
}

// Neighbors returns the eight adjacent coordinates.
func (c Coord) Neighbors() [8]Coord {
	var result [8]Coord
	for i, d := range NeighborOffsets {
		result[i] = c.Add(d)
	}
	return result
}

// Chebyshev returns the 8-connected step distance between two coordinates.
func Chebyshev(a, b Coord) int {
	dc := abs(a.Col - b.Col)
	dr := abs(a.Row - b.Row)
	if dc > dr {
		return dc
	}
	return dr
}

// Terrain types for tiles.
type Terrain uint8

const (
	TerrainGrass    Terrain = iota // Open meadow, walkable
	TerrainFarmland                // Tilled soil, plantable
	TerrainWater                   // Ponds and streams, never walkable
	TerrainRoad                    // Paved lanes
	TerrainForest                  // Woodland floor
)

// TerrainName returns a human-readable name for a terrain type.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainGrass:
		return "Grass"
	case TerrainFarmland:
		return "Farmland"
	case TerrainWater:
		return "Water"
	case TerrainRoad:
		return "Road"
	case TerrainForest:
		return "Forest"
	default:
		return "Unknown"
	}
}

func (t Terrain) String() string {
	return TerrainName(t)
}

// ParseTerrain maps a terrain name, in any case, back to its type.
func ParseTerrain(name string) (Terrain, bool) {
	for t := TerrainGrass; t <= TerrainForest; t++ {
		if strings.EqualFold(TerrainName(t), name) {
			return t, true
		}
	}
	return 0, false
}

// BuildingKind enumerates structures that can occupy a tile.
type BuildingKind uint8

const (
	BuildingHouse    BuildingKind = iota + 1 // 民居
	BuildingShop                             // 市肆
	BuildingWell                             // 井
	BuildingPavilion                         // 亭, open sided, walk-through
	BuildingGarden                           // 園, walk-through
	BuildingTree
	BuildingFence
)

var buildingNames = map[BuildingKind]string{
	BuildingHouse:    "house",
	BuildingShop:     "shop",
	BuildingWell:     "well",
	BuildingPavilion: "pavilion",
	BuildingGarden:   "garden",
	BuildingTree:     "tree",
	BuildingFence:    "fence",
}

func (k BuildingKind) String() string {
	if n, ok := buildingNames[k]; ok {
		return n
	}
	return fmt.Sprintf("building(%d)", uint8(k))
}

// ParseBuildingKind maps a name back to its kind.
func ParseBuildingKind(name string) (BuildingKind, bool) {
	for k, n := range buildingNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Traversable reports whether a player may walk through the building.
func (k BuildingKind) Traversable() bool {
	return k == BuildingPavilion || k == BuildingGarden
}

// Building occupies a single tile.
type Building struct {
	Kind BuildingKind `json:"kind"`
}

// CropType names a crop from the farm crop table.
type CropType string

// FarmData is the growth state of a planted farmland tile.
// Stage never decreases and is bounded by the crop's max stage.
type FarmData struct {
	Crop            CropType `json:"crop"`
	PlantedDay      int      `json:"planted_day"`
	StageStartedDay int      `json:"stage_started_day"` // Day of the last stage transition
	Stage           int      `json:"stage"`
	Seeds           int      `json:"seeds"`
	Withered        bool     `json:"withered,omitempty"`
}

// Tile is one cell of the lattice. Its coordinate never changes; its contents do.
type Tile struct {
	Coord    Coord     `json:"coord"`
	Terrain  Terrain   `json:"terrain"`
	Building *Building `json:"building,omitempty"`
	Farm     *FarmData `json:"farm,omitempty"`
}

// HasBuilding reports whether a building occupies the tile.
func (t *Tile) HasBuilding() bool {
	return t.Building != nil
}

// Clone returns a deep copy of the tile.
func (t Tile) Clone() Tile {
	if t.Building != nil {
		b := *t.Building
		t.Building = &b
	}
	if t.Farm != nil {
		f := *t.Farm
		t.Farm = &f
	}
	return t
}

// Walkable reports whether the tile's own contents allow a player on it.
// Bounds are checked by the grid.
func (t *Tile) Walkable() bool {
	if t.Terrain == TerrainWater {
		return false
	}
	if t.Building != nil && !t.Building.Kind.Traversable() {
		return false
	}
	return true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
