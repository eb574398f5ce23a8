package world

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreenRoundTrip(t *testing.T) {
	g := NewGrid(40, 40)
	g.Each(func(tile *Tile) {
		got := ScreenToGrid(TileCenter(tile.Coord))
		assert.Equal(t, tile.Coord, got)
	})
}

func TestScreenToGridRoundsToNearest(t *testing.T) {
	c := C(7, 3)
	center := TileCenter(c)
	assert.Equal(t, c, ScreenToGrid(center.Add(Vec{X: 3, Y: -2})))
	assert.Equal(t, c, ScreenToGrid(center.Add(Vec{X: -5, Y: 4})))
}

func TestGridToScreenOrigin(t *testing.T) {
	assert.Equal(t, Vec{}, GridToScreen(C(0, 0)))
	assert.Equal(t, Vec{X: TileWidth / 2, Y: TileHeight / 2}, GridToScreen(C(1, 0)))
	assert.Equal(t, Vec{X: -TileWidth / 2, Y: TileHeight / 2}, GridToScreen(C(0, 1)))
}

func TestIsWalkable(t *testing.T) {
	g := NewGrid(10, 10)
	require.NoError(t, g.Terraform(C(1, 1), TerrainWater))
	require.NoError(t, g.PlaceBuilding(C(2, 2), Building{Kind: BuildingHouse}))
	require.NoError(t, g.PlaceBuilding(C(3, 3), Building{Kind: BuildingPavilion}))
	g.SetBounds(Bounds{MinCol: 0, MinRow: 0, MaxCol: 8, MaxRow: 8})

	tests := []struct {
		name string
		at   Coord
		want bool
	}{
		{"grass", C(0, 0), true},
		{"water", C(1, 1), false},
		{"house", C(2, 2), false},
		{"pavilion", C(3, 3), true},
		{"outside bounds box", C(9, 9), false},
		{"void", C(-1, 4), false},
		{"void far", C(100, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.IsWalkable(tt.at))
		})
	}
}

func TestTileOutOfBounds(t *testing.T) {
	g := NewGrid(4, 4)
	tile, err := g.Tile(C(4, 0))
	assert.Nil(t, tile)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfBounds))

	var te *TileError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, C(4, 0), te.Coord)
}

func TestPlaceBuildingOccupied(t *testing.T) {
	g := NewGrid(4, 4)
	require.NoError(t, g.PlaceBuilding(C(1, 1), Building{Kind: BuildingWell}))
	err := g.PlaceBuilding(C(1, 1), Building{Kind: BuildingHouse})
	assert.ErrorIs(t, err, ErrOccupied)

	tile, err := g.Tile(C(1, 1))
	require.NoError(t, err)
	assert.Equal(t, BuildingWell, tile.Building.Kind)

	require.NoError(t, g.Terraform(C(2, 2), TerrainWater))
	assert.ErrorIs(t, g.PlaceBuilding(C(2, 2), Building{Kind: BuildingHouse}), ErrUnbuildable)
}

func TestPlaceBuildingBumpsVersion(t *testing.T) {
	g := NewGrid(4, 4)
	v := g.Version()
	require.NoError(t, g.PlaceBuilding(C(0, 0), Building{Kind: BuildingFence}))
	assert.Greater(t, g.Version(), v)

	v = g.Version()
	b, err := g.RemoveBuilding(C(0, 0))
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, BuildingFence, b.Kind)
	assert.Greater(t, g.Version(), v)
}

func TestTerraformClearsCrop(t *testing.T) {
	g := NewGrid(4, 4)
	require.NoError(t, g.Terraform(C(1, 2), TerrainFarmland))
	tile, err := g.Tile(C(1, 2))
	require.NoError(t, err)
	tile.Farm = &FarmData{Crop: "wheat"}

	require.NoError(t, g.Terraform(C(1, 2), TerrainGrass))
	assert.Nil(t, tile.Farm)
	assert.Equal(t, TerrainGrass, tile.Terrain)
}

func TestParseTerrain(t *testing.T) {
	for _, name := range []string{"water", "Water", "WATER"} {
		got, ok := ParseTerrain(name)
		require.True(t, ok, name)
		assert.Equal(t, TerrainWater, got)
	}
	_, ok := ParseTerrain("lava")
	assert.False(t, ok)
}

func TestVisibleClipsToRect(t *testing.T) {
	g := NewGrid(20, 20)
	c := TileCenter(C(5, 5))
	vis := g.Visible(c.Sub(Vec{X: 1, Y: 1}), c.Add(Vec{X: 1, Y: 1}))
	require.NotEmpty(t, vis)
	assert.Less(t, len(vis), g.TileCount())

	found := false
	for _, tile := range vis {
		if tile.Coord == C(5, 5) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestGenerateIsDeterministic(t *testing.T) {
	cfg := SmallTestConfig()
	a := Generate(cfg)
	b := Generate(cfg)
	assert.Equal(t, TerrainCounts(a), TerrainCounts(b))

	spawn := FindSpawn(a)
	assert.True(t, a.IsWalkable(spawn))
	assert.Equal(t, spawn, FindSpawn(b))
}

func TestGenerateLaysLanes(t *testing.T) {
	cfg := SmallTestConfig()
	g := Generate(cfg)
	mid := C(cfg.Width/2, cfg.Height/2)
	tile, err := g.Tile(mid)
	require.NoError(t, err)
	assert.Equal(t, TerrainRoad, tile.Terrain)
	assert.Positive(t, TerrainCounts(g)[TerrainRoad])
}

func TestPlaceHousesSpacing(t *testing.T) {
	g := NewGrid(12, 12)
	for col := 0; col < 12; col++ {
		require.NoError(t, g.Terraform(C(col, 6), TerrainRoad))
	}
	placed := PlaceHouses(g, 7, 4)
	require.Len(t, placed, 4)
	for i := range placed {
		for j := i + 1; j < len(placed); j++ {
			assert.GreaterOrEqual(t, Chebyshev(placed[i], placed[j]), 2)
		}
	}
	first, err := g.Tile(placed[0])
	require.NoError(t, err)
	assert.Equal(t, BuildingWell, first.Building.Kind)
}
