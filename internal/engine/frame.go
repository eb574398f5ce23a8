package engine

import (
	"github.com/talgya/taixu/internal/calendar"
	"github.com/talgya/taixu/internal/farm"
	"github.com/talgya/taixu/internal/player"
	"github.com/talgya/taixu/internal/world"
)

// PlayerView is the player as the renderer needs it.
type PlayerView struct {
	Offset   world.Vec        `json:"offset"`
	Facing   player.Direction `json:"facing"`
	Grid     world.Coord      `json:"grid"`
	Path     []world.Coord    `json:"path,omitempty"`
	Viewport player.Viewport  `json:"viewport"`
}

// Frame is a read-only render snapshot. The core never draws.
type Frame struct {
	Tick     uint64            `json:"tick"`
	Hour     int               `json:"hour"`
	Calendar calendar.Display  `json:"calendar"`
	Player   PlayerView        `json:"player"`
	Tiles    []world.Tile      `json:"tiles"`
	Nearby   *farm.Interaction `json:"nearby,omitempty"`
}

// Frame builds a fresh frame from current state. Loop goroutine only.
func (s *Simulation) Frame() *Frame {
	view := s.Player.Viewport()
	minPt, maxPt := view.Visible(s.Player.Offset())

	f := &Frame{
		Tick:     s.LastTick,
		Hour:     HourOf(s.LastTick),
		Calendar: calendar.DisplayOf(s.Calendar.Now()),
		Player: PlayerView{
			Offset:   s.Player.Offset(),
			Facing:   s.Player.Facing(),
			Grid:     s.Player.GridPosition(),
			Path:     s.Player.PendingPath(),
			Viewport: view,
		},
		Tiles: s.Grid.Visible(minPt, maxPt),
	}
	if in, ok := s.Nearby(); ok {
		f.Nearby = &in
	}
	return f
}

// LatestFrame returns the most recently published frame. Safe from any goroutine.
func (s *Simulation) LatestFrame() *Frame {
	return s.latest.Load()
}

func (s *Simulation) publish() {
	s.latest.Store(s.Frame())
}
