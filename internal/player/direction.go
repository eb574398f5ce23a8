// Package player moves the viewport under a player fixed at the screen
// centre, from held direction keys or from click-to-move paths.
package player

import (
	"fmt"
	"math"

	"github.com/talgya/taixu/internal/world"
)

// Direction is one of the eight compass facings, in screen space.
// North is up the screen.
type Direction uint8

const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

var directionNames = [8]string{
	"north", "northeast", "east", "southeast",
	"south", "southwest", "west", "northwest",
}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	dir, ok := ParseDirection(string(b))
	if !ok {
		return fmt.Errorf("unknown direction %q", b)
	}
	*d = dir
	return nil
}

// ParseDirection maps a compass name back to its Direction.
func ParseDirection(s string) (Direction, bool) {
	for i, n := range directionNames {
		if n == s {
			return Direction(i), true
		}
	}
	return 0, false
}

// FacingFromVector returns the compass octant of a nonzero screen vector.
// ok is false for the zero vector.
func FacingFromVector(v world.Vec) (Direction, bool) {
	if v.IsZero() {
		return 0, false
	}
	// Screen y grows downward; flip it so north is +90°.
	deg := math.Atan2(-v.Y, v.X) * 180 / math.Pi
	// East is 0°, counter-clockwise. Octant 0 = east.
	octant := int(math.Floor((deg+22.5)/45)) & 7
	return [8]Direction{East, NorthEast, North, NorthWest, West, SouthWest, South, SouthEast}[octant], true
}

// FacingFromGridDelta returns the facing for a single grid step.
// A column step runs southeast on screen and a row step southwest, so
// (-1,0) faces northwest, (0,-1) northeast, (-1,-1) north and (1,-1) east.
func FacingFromGridDelta(d world.Coord) (Direction, bool) {
	return FacingFromVector(world.GridToScreen(d))
}
