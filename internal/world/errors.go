package world

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds is returned for coordinates outside the lattice.
	ErrOutOfBounds = errors.New("out of bounds")
	// ErrOccupied is returned when a tile already holds a building or a crop.
	ErrOccupied = errors.New("tile occupied")
	// ErrUnbuildable is returned when the terrain cannot carry a building.
	ErrUnbuildable = errors.New("terrain cannot be built on")
)

// TileError reports a failed tile operation and the coordinate it targeted.
type TileError struct {
	Op    string
	Coord Coord
	Err   error
}

func (e *TileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Coord, e.Err)
}

func (e *TileError) Unwrap() error {
	return e.Err
}

// NewTileError wraps err with the operation and coordinate.
func NewTileError(op string, c Coord, err error) error {
	return &TileError{Op: op, Coord: c, Err: err}
}
