package world

import "math"

// Isometric tile footprint in world pixels.
const (
	TileWidth  = 64.0
	TileHeight = 38.4
)

// Vec is a continuous 2D vector in world or screen pixels.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec) Add(o Vec) Vec { return Vec{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec { return Vec{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec) Scale(f float64) Vec { return Vec{X: v.X * f, Y: v.Y * f} }
func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }
func (v Vec) IsZero() bool { return v.X == 0 && v.Y == 0 }

// Normalize returns the unit vector in v's direction, or zero for a zero vector.
func (v Vec) Normalize() Vec {
	l := v.Len()
	if l == 0 {
		return Vec{}
	}
	return Vec{X: v.X / l, Y: v.Y / l}
}

// GridToScreen returns the world-space origin of the tile's diamond:
// x = (col-row)·W/2, y = (col+row)·H/2.
func GridToScreen(c Coord) Vec {
	return Vec{
		X: float64(c.Col-c.Row) * (TileWidth / 2),
		Y: float64(c.Col+c.Row) * (TileHeight / 2),
	}
}

// TileCenter returns the world-space centre of a tile.
func TileCenter(c Coord) Vec {
	return GridToScreen(c).Add(Vec{X: TileWidth / 2, Y: TileHeight / 2})
}

// ScreenToGrid inverts TileCenter, rounding to the nearest tile centre.
func ScreenToGrid(p Vec) Coord {
	x := (p.X - TileWidth/2) / (TileWidth / 2)  // col - row
	y := (p.Y - TileHeight/2) / (TileHeight / 2) // col + row
	return Coord{
		Col: int(math.Round((x + y) / 2)),
		Row: int(math.Round((y - x) / 2)),
	}
}
