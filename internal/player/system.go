package player

import (
	"errors"
	"fmt"
	"slices"

	"github.com/talgya/taixu/internal/world"
)

// Config sets per-tick speeds in screen pixels.
type Config struct {
	MoveSpeed  float64 // Held-key speed
	PathSpeed  float64 // Click-to-move interpolation speed
	RouteCache int     // Cached routes
}

// DefaultConfig matches five tiles a second at 30 frames a second.
func DefaultConfig() Config {
	return Config{
		MoveSpeed:  world.TileWidth * 5 / 30,
		PathSpeed:  world.TileWidth * 5 / 30,
		RouteCache: 256,
	}
}

// State is the part of the player that survives a save.
type State struct {
	Offset world.Vec     `json:"offset"`
	Facing Direction     `json:"facing"`
	Path   []world.Coord `json:"path,omitempty"`
}

// StepResult summarises one Step.
type StepResult struct {
	Moved     bool
	Arrived   bool // Final path step reached this step
	Cancelled bool // Pending path dropped by held keys
}

// System owns the viewport offset. The player is always drawn at the screen
// centre; walking moves the world underneath.
type System struct {
	grid   *world.Grid
	view   Viewport
	cfg    Config
	router *Router

	offset   world.Vec
	facing   Direction
	held     [numKeys]bool
	path     []world.Coord
	lastStep world.Coord // Tile the current path step leaves from

	queue []Event

	// Outcome of queued input applied outside Step, reported by the next Step.
	cancelled bool
	errs      []error
}

// NewSystem places the player on spawn, facing south.
func NewSystem(g *world.Grid, view Viewport, spawn world.Coord, cfg Config) (*System, error) {
	if cfg.RouteCache <= 0 {
		cfg.RouteCache = DefaultConfig().RouteCache
	}
	r, err := NewRouter(g, cfg.RouteCache)
	if err != nil {
		return nil, fmt.Errorf("route cache: %w", err)
	}
	return &System{
		grid:     g,
		view:     view,
		cfg:      cfg,
		router:   r,
		offset:   view.OffsetForCenter(spawn),
		facing:   South,
		lastStep: spawn,
	}, nil
}

// Offset returns the current viewport offset.
func (s *System) Offset() world.Vec { return s.offset }

// Facing returns the direction of the most recent movement.
func (s *System) Facing() Direction { return s.facing }

// Viewport returns the screen description in use.
func (s *System) Viewport() Viewport { return s.view }

// Router exposes the route cache.
func (s *System) Router() *Router { return s.router }

// GridPosition is the tile under the player, derived from the offset.
func (s *System) GridPosition() world.Coord {
	return s.view.GridAt(s.offset)
}

// PendingPath returns a copy of the remaining click-to-move steps.
func (s *System) PendingPath() []world.Coord {
	return slices.Clone(s.path)
}

// Enqueue queues an input event for the next Step.
func (s *System) Enqueue(ev Event) {
	s.queue = append(s.queue, ev)
}

// SetViewport changes the screen size or zoom, keeping the player on the
// same world point.
func (s *System) SetViewport(v Viewport) {
	at := s.view.WorldAt(s.offset)
	s.view = v
	s.offset = v.center().Sub(at.Scale(v.zoom()))
}

// Teleport recentres the player on c and drops any pending path.
func (s *System) Teleport(c world.Coord) error {
	if !s.grid.IsWalkable(c) {
		return world.NewTileError("teleport", c, ErrNoPath)
	}
	s.offset = s.view.OffsetForCenter(c)
	s.path = nil
	s.lastStep = c
	return nil
}

// Click plans a walk from the current tile to target. Input queued before
// the click is applied first so events keep their order. On failure the
// previous path, if any, is kept.
func (s *System) Click(target world.Coord) error {
	if s.applyQueue() {
		s.cancelled = true
	}
	return s.plan(target)
}

func (s *System) plan(target world.Coord) error {
	from := s.GridPosition()
	p, err := s.router.Route(from, target)
	if err != nil {
		return err
	}
	// Re-centre on the current tile first so every step lands on a centre.
	if s.offset != s.view.OffsetForCenter(from) {
		p = append([]world.Coord{from}, p...)
	}
	if len(p) == 0 {
		p = nil
	}
	s.path = p
	s.lastStep = from
	return nil
}

// applyQueue consumes queued input in arrival order and reports whether a
// key press dropped the pending path. Failed clicks are kept for Step.
func (s *System) applyQueue() (cancelled bool) {
	for _, ev := range s.queue {
		switch ev.Kind {
		case EventKeyDown:
			if ev.Key < numKeys {
				s.held[ev.Key] = true
				if s.path != nil {
					s.path = nil
					cancelled = true
				}
			}
		case EventKeyUp:
			if ev.Key < numKeys {
				s.held[ev.Key] = false
			}
		case EventTileClicked:
			if err := s.plan(ev.Tile); err != nil {
				s.errs = append(s.errs, err)
			}
		}
	}
	s.queue = s.queue[:0]
	return cancelled
}

// Step consumes queued input and moves the player by one frame. Click
// failures are returned joined; they never stop the frame.
func (s *System) Step() (StepResult, error) {
	res := StepResult{Cancelled: s.applyQueue() || s.cancelled}
	err := errors.Join(s.errs...)
	s.cancelled, s.errs = false, nil

	if s.anyHeld() {
		if s.path != nil {
			s.path = nil
			res.Cancelled = true
		}
		res.Moved = s.moveHeld()
		return res, err
	}

	if len(s.path) > 0 {
		res.Moved, res.Arrived = s.followPath()
	}
	return res, err
}

func (s *System) anyHeld() bool {
	for _, h := range s.held {
		if h {
			return true
		}
	}
	return false
}

// heldVector sums the held keys' screen vectors. Opposite keys cancel.
func (s *System) heldVector() world.Vec {
	var v world.Vec
	for k, h := range s.held {
		if h {
			v = v.Add(keyVectors[k])
		}
	}
	return v.Normalize()
}

func (s *System) moveHeld() bool {
	dir := s.heldVector()
	if dir.IsZero() {
		return false
	}
	v := dir.Scale(s.cfg.MoveSpeed)
	next := s.offset.Sub(v)
	if !s.grid.IsWalkable(s.view.GridAt(next)) {
		return false
	}
	s.offset = next
	if f, ok := FacingFromVector(v); ok {
		s.facing = f
	}
	return true
}

// followPath moves linearly toward the next step's centre and pops the
// step once the offset lands on it exactly.
func (s *System) followPath() (moved, arrived bool) {
	next := s.path[0]
	target := s.view.OffsetForCenter(next)
	delta := target.Sub(s.offset)

	if !delta.IsZero() {
		if f, ok := FacingFromGridDelta(next.Sub(s.lastStep)); ok {
			s.facing = f
		}
		if delta.Len() <= s.cfg.PathSpeed {
			s.offset = target
		} else {
			s.offset = s.offset.Add(delta.Normalize().Scale(s.cfg.PathSpeed))
		}
		moved = true
	}

	if s.offset == target {
		s.lastStep = next
		s.path = s.path[1:]
		if len(s.path) == 0 {
			s.path = nil
			arrived = true
		}
	}
	return moved, arrived
}

// State returns the persistent player state.
func (s *System) State() State {
	return State{Offset: s.offset, Facing: s.facing, Path: slices.Clone(s.path)}
}

// Restore replaces the player state with st. Held keys are released.
func (s *System) Restore(st State) {
	s.offset = st.Offset
	s.facing = st.Facing
	s.path = slices.Clone(st.Path)
	s.held = [numKeys]bool{}
	s.queue = nil
	s.cancelled, s.errs = false, nil
	s.lastStep = s.GridPosition()
}
