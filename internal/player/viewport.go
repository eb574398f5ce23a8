package player

import "github.com/talgya/taixu/internal/world"

// Viewport describes the client screen. Screen = world·Zoom + offset.
type Viewport struct {
	ScreenWidth  float64 `json:"screen_width"`
	ScreenHeight float64 `json:"screen_height"`
	Zoom         float64 `json:"zoom"`
}

func (v Viewport) center() world.Vec {
	return world.Vec{X: v.ScreenWidth / 2, Y: v.ScreenHeight / 2}
}

func (v Viewport) zoom() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}

// OffsetForCenter returns the offset that puts tile c's centre under the
// player at the middle of the screen.
func (v Viewport) OffsetForCenter(c world.Coord) world.Vec {
	return v.center().Sub(world.TileCenter(c).Scale(v.zoom()))
}

// WorldAt returns the world point drawn at the screen centre for offset.
func (v Viewport) WorldAt(offset world.Vec) world.Vec {
	return v.center().Sub(offset).Scale(1 / v.zoom())
}

// GridAt recovers the player's tile from a viewport offset.
func (v Viewport) GridAt(offset world.Vec) world.Coord {
	return world.ScreenToGrid(v.WorldAt(offset))
}

// Visible returns the world-space rectangle covered by the screen.
func (v Viewport) Visible(offset world.Vec) (minPt, maxPt world.Vec) {
	z := v.zoom()
	minPt = offset.Scale(-1 / z)
	maxPt = world.Vec{X: v.ScreenWidth, Y: v.ScreenHeight}.Sub(offset).Scale(1 / z)
	return minPt, maxPt
}
