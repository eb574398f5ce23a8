package farm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/taixu/internal/calendar"
	"github.com/talgya/taixu/internal/world"
)

type fixedClock struct{ day int }

func (c *fixedClock) TotalDays() int { return c.day }

func newField(t *testing.T) (*world.Grid, *System, *fixedClock) {
	t.Helper()
	g := world.NewGrid(6, 6)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			require.NoError(t, g.Terraform(world.C(col, row), world.TerrainFarmland))
		}
	}
	clock := &fixedClock{}
	return g, NewSystem(g, clock), clock
}

func farmAt(t *testing.T, g *world.Grid, c world.Coord) *world.FarmData {
	t.Helper()
	tile, err := g.Tile(c)
	require.NoError(t, err)
	return tile.Farm
}

func TestWheatGrowthScenario(t *testing.T) {
	g, fs, _ := newField(t)
	at := world.C(1, 1)
	require.NoError(t, fs.Plant(at, Wheat))

	fs.TickGrowth(2)
	assert.Equal(t, 0, farmAt(t, g, at).Stage)

	fs.TickGrowth(3)
	assert.Equal(t, 1, farmAt(t, g, at).Stage)

	fs.TickGrowth(9)
	assert.Equal(t, 2, farmAt(t, g, at).Stage)
	st, err := fs.Status(at)
	require.NoError(t, err)
	assert.Equal(t, StatusHarvestable, st)

	// Never beyond the max stage.
	fs.TickGrowth(10)
	assert.Equal(t, 2, farmAt(t, g, at).Stage)
}

func TestTickGrowthIdempotentForSameDay(t *testing.T) {
	g, fs, _ := newField(t)
	at := world.C(0, 0)
	require.NoError(t, fs.Plant(at, Wheat))

	changes := fs.TickGrowth(3)
	require.Len(t, changes, 1)
	before := *farmAt(t, g, at)

	assert.Empty(t, fs.TickGrowth(3))
	assert.Equal(t, before, *farmAt(t, g, at))
}

func TestTickGrowthOneStagePerCall(t *testing.T) {
	g, fs, _ := newField(t)
	at := world.C(0, 0)
	require.NoError(t, fs.Plant(at, Rice))

	fs.TickGrowth(100)
	assert.Equal(t, 1, farmAt(t, g, at).Stage)
	fs.TickGrowth(100)
	assert.Equal(t, 1, farmAt(t, g, at).Stage)
}

func TestStageNeverDecreases(t *testing.T) {
	g, fs, _ := newField(t)
	at := world.C(2, 2)
	require.NoError(t, fs.Plant(at, Bean))

	crop, _ := Lookup(Bean)
	last := 0
	for day := 0; day <= 90; day++ {
		fs.TickGrowth(day)
		f := farmAt(t, g, at)
		require.NotNil(t, f)
		assert.GreaterOrEqual(t, f.Stage, last)
		assert.LessOrEqual(t, f.Stage, crop.MaxStage())
		last = f.Stage
	}
}

func TestHarvestBeforeRipeLeavesDataUnchanged(t *testing.T) {
	g, fs, _ := newField(t)
	at := world.C(1, 0)
	require.NoError(t, fs.Plant(at, Wheat))
	fs.TickGrowth(3)
	before := *farmAt(t, g, at)

	n, err := fs.Harvest(at)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, ErrNotHarvestable)
	var te *world.TileError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, at, te.Coord)
	assert.Equal(t, before, *farmAt(t, g, at))
}

func TestHarvestRipeWheat(t *testing.T) {
	g, fs, _ := newField(t)
	at := world.C(1, 0)
	require.NoError(t, fs.Plant(at, Wheat))
	for _, day := range []int{3, 6} {
		fs.TickGrowth(day)
	}

	n, err := fs.Harvest(at)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Nil(t, farmAt(t, g, at))

	st, err := fs.Status(at)
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, st)
}

func TestPlantRejectsInvalidTiles(t *testing.T) {
	g, fs, _ := newField(t)

	// Grass.
	assert.ErrorIs(t, fs.Plant(world.C(4, 4), Wheat), ErrInvalidTile)

	// Already planted.
	require.NoError(t, fs.Plant(world.C(0, 0), Wheat))
	assert.ErrorIs(t, fs.Plant(world.C(0, 0), Rice), ErrInvalidTile)

	// Building on farmland.
	require.NoError(t, g.PlaceBuilding(world.C(0, 1), world.Building{Kind: world.BuildingFence}))
	assert.ErrorIs(t, fs.Plant(world.C(0, 1), Wheat), ErrInvalidTile)

	assert.ErrorIs(t, fs.Plant(world.C(-1, 0), Wheat), world.ErrOutOfBounds)
	assert.ErrorIs(t, fs.Plant(world.C(1, 1), "turnip"), ErrUnknownCrop)
}

func TestPlantedTileRejectsBuilding(t *testing.T) {
	g, fs, _ := newField(t)
	require.NoError(t, fs.Plant(world.C(2, 0), Wheat))
	assert.ErrorIs(t, g.PlaceBuilding(world.C(2, 0), world.Building{Kind: world.BuildingHouse}), world.ErrOccupied)
}

func TestBeanSeasons(t *testing.T) {
	g, fs, clock := newField(t)

	clock.day = calendar.DaysPerSeason // first day of summer
	assert.ErrorIs(t, fs.Plant(world.C(0, 0), Bean), ErrOutOfSeason)
	assert.Nil(t, farmAt(t, g, world.C(0, 0)))

	clock.day = 0
	at := world.C(1, 1)
	require.NoError(t, fs.Plant(at, Bean))
	assert.Equal(t, 10, farmAt(t, g, at).Seeds)

	for day := 1; day <= 60; day++ {
		fs.TickGrowth(day)
	}
	st, err := fs.Status(at)
	require.NoError(t, err)
	assert.Equal(t, StatusHarvestable, st)
	assert.Equal(t, calendar.Autumn, calendar.Time{TotalDays: 60}.Season())

	n, err := fs.Harvest(at)
	require.NoError(t, err)
	assert.Equal(t, 30, n)
}

func TestBeanWithersInWinter(t *testing.T) {
	g, fs, clock := newField(t)
	clock.day = 29
	at := world.C(0, 2)
	require.NoError(t, fs.Plant(at, Bean))

	for day := 30; day <= 90; day++ {
		fs.TickGrowth(day)
	}
	f := farmAt(t, g, at)
	require.NotNil(t, f)
	assert.True(t, f.Withered)

	st, err := fs.Status(at)
	require.NoError(t, err)
	assert.Equal(t, StatusWithered, st)

	n, err := fs.Harvest(at)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Nil(t, farmAt(t, g, at))
}

func TestRipeWheatWithersAfterWindow(t *testing.T) {
	g, fs, _ := newField(t)
	at := world.C(2, 1)
	require.NoError(t, fs.Plant(at, Wheat))
	fs.TickGrowth(3)
	fs.TickGrowth(6)

	fs.TickGrowth(9)
	assert.False(t, farmAt(t, g, at).Withered)
	changes := fs.TickGrowth(10)
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Withered)
}

func TestProgress(t *testing.T) {
	_, fs, clock := newField(t)
	at := world.C(0, 0)
	require.NoError(t, fs.Plant(at, Wheat))

	p, err := fs.Progress(at)
	require.NoError(t, err)
	assert.Equal(t, 0, p)

	clock.day = 3
	fs.TickGrowth(3)
	p, err = fs.Progress(at)
	require.NoError(t, err)
	assert.Equal(t, 50, p)

	clock.day = 6
	fs.TickGrowth(6)
	p, err = fs.Progress(at)
	require.NoError(t, err)
	assert.Equal(t, 100, p)
}

func TestNearby(t *testing.T) {
	_, fs, _ := newField(t)

	_, ok := fs.Nearby(world.C(5, 5), InteractionDistance)
	assert.False(t, ok)

	in, ok := fs.Nearby(world.C(3, 2), InteractionDistance)
	require.True(t, ok)
	assert.Equal(t, world.C(2, 2), in.Coord)
	assert.Equal(t, ActionPlant, in.Action)

	require.NoError(t, fs.Plant(world.C(2, 2), Wheat))
	in, ok = fs.Nearby(world.C(3, 2), InteractionDistance)
	require.True(t, ok)
	assert.Equal(t, StatusGrowing, in.Status)
	assert.Equal(t, ActionInspect, in.Action)
	assert.Equal(t, Wheat, in.Crop)

	fs.TickGrowth(3)
	fs.TickGrowth(6)
	in, ok = fs.Nearby(world.C(3, 2), InteractionDistance)
	require.True(t, ok)
	assert.Equal(t, ActionHarvest, in.Action)
}
