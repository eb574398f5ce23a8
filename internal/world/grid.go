package world

import "fmt"

// Bounds is an inclusive rectangle of walkable grid space.
type Bounds struct {
	MinCol int `json:"min_col"`
	MinRow int `json:"min_row"`
	MaxCol int `json:"max_col"`
	MaxRow int `json:"max_row"`
}

// Contains reports whether c lies inside the box.
func (b Bounds) Contains(c Coord) bool {
	return c.Col >= b.MinCol && c.Col <= b.MaxCol && c.Row >= b.MinRow && c.Row <= b.MaxRow
}

// Grid holds the complete tile lattice as a dense row-major slice.
type Grid struct {
	Width  int
	Height int

	tiles   []Tile
	bounds  Bounds
	version uint64 // Bumped whenever walkability inputs change
}

// NewGrid creates a grass-covered grid of the given size.
// The walkable bounds box defaults to the whole lattice.
func NewGrid(width, height int) *Grid {
	g := &Grid{
		Width:  width,
		Height: height,
		tiles:  make([]Tile, width*height),
		bounds: Bounds{MinCol: 0, MinRow: 0, MaxCol: width - 1, MaxRow: height - 1},
	}
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			g.tiles[row*width+col] = Tile{Coord: Coord{Col: col, Row: row}, Terrain: TerrainGrass}
		}
	}
	return g
}

// InBounds returns true if the coordinate addresses a tile of the lattice.
func (g *Grid) InBounds(c Coord) bool {
	return c.Col >= 0 && c.Col < g.Width && c.Row >= 0 && c.Row < g.Height
}

// Tile returns the tile at c. Off-map coordinates yield ErrOutOfBounds,
// never a default tile.
func (g *Grid) Tile(c Coord) (*Tile, error) {
	if !g.InBounds(c) {
		return nil, NewTileError("get tile", c, ErrOutOfBounds)
	}
	return &g.tiles[c.Row*g.Width+c.Col], nil
}

// Bounds returns the walkable bounds box.
func (g *Grid) Bounds() Bounds {
	return g.bounds
}

// SetBounds restricts walkable space to b, clipped to the lattice.
func (g *Grid) SetBounds(b Bounds) {
	b.MinCol = max(b.MinCol, 0)
	b.MinRow = max(b.MinRow, 0)
	b.MaxCol = min(b.MaxCol, g.Width-1)
	b.MaxRow = min(b.MaxRow, g.Height-1)
	g.bounds = b
	g.version++
}

// IsWalkable is false for void coordinates, coordinates outside the bounds box,
// water, and tiles holding a non-traversable building.
func (g *Grid) IsWalkable(c Coord) bool {
	if !g.InBounds(c) || !g.bounds.Contains(c) {
		return false
	}
	return g.tiles[c.Row*g.Width+c.Col].Walkable()
}

// Version changes whenever a mutation may have changed walkability.
func (g *Grid) Version() uint64 {
	return g.version
}

// PlaceBuilding puts b on the tile at c. It fails with ErrOccupied if the tile
// already holds a building or a crop.
func (g *Grid) PlaceBuilding(c Coord, b Building) error {
	t, err := g.Tile(c)
	if err != nil {
		return err
	}
	if t.Building != nil || t.Farm != nil {
		return NewTileError("place building", c, ErrOccupied)
	}
	if t.Terrain == TerrainWater {
		return NewTileError("place building", c, ErrUnbuildable)
	}
	nb := b
	t.Building = &nb
	g.version++
	return nil
}

// RemoveBuilding clears the building at c and returns it. Removing from an
// empty tile is a no-op that returns nil.
func (g *Grid) RemoveBuilding(c Coord) (*Building, error) {
	t, err := g.Tile(c)
	if err != nil {
		return nil, err
	}
	b := t.Building
	if b != nil {
		t.Building = nil
		g.version++
	}
	return b, nil
}

// Terraform changes the terrain at c. Turning farmland into anything else
// destroys the crop growing there.
func (g *Grid) Terraform(c Coord, terrain Terrain) error {
	t, err := g.Tile(c)
	if err != nil {
		return err
	}
	if terrain == TerrainWater && t.Building != nil {
		return NewTileError("terraform", c, ErrOccupied)
	}
	if t.Terrain == TerrainFarmland && terrain != TerrainFarmland {
		t.Farm = nil
	}
	t.Terrain = terrain
	g.version++
	return nil
}

// Each calls fn for every tile in row-major order.
func (g *Grid) Each(fn func(t *Tile)) {
	for i := range g.tiles {
		fn(&g.tiles[i])
	}
}

// FarmTiles returns every tile currently carrying FarmData.
func (g *Grid) FarmTiles() []*Tile {
	var out []*Tile
	for i := range g.tiles {
		if g.tiles[i].Farm != nil {
			out = append(out, &g.tiles[i])
		}
	}
	return out
}

// Visible returns deep copies of the tiles whose diamond overlaps the world-space
// rectangle [min, max].
func (g *Grid) Visible(minPt, maxPt Vec) []Tile {
	var out []Tile
	for i := range g.tiles {
		center := TileCenter(g.tiles[i].Coord)
		if center.X+TileWidth/2 < minPt.X || center.X-TileWidth/2 > maxPt.X {
			continue
		}
		if center.Y+TileHeight/2 < minPt.Y || center.Y-TileHeight/2 > maxPt.Y {
			continue
		}
		out = append(out, g.tiles[i].Clone())
	}
	return out
}

// TileCount returns the total number of tiles in the lattice.
func (g *Grid) TileCount() int {
	return len(g.tiles)
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, tiles=%d)", g.Width, g.Height, g.TileCount())
}
