// Package engine provides the tick-based simulation loop and the
// simulation context that wires calendar, farm and player systems together.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/talgya/taixu/internal/calendar"
	"github.com/talgya/taixu/internal/metrics"
)

// TickSchedule defines when each layer runs relative to the tick counter.
const (
	TicksPerDay      = 30  // One in-game day
	TicksPerDayCycle = 450 // One day/night cycle
)

// ErrStopped is returned by Do when the loop is not running.
var ErrStopped = errors.New("engine stopped")

type command struct {
	fn   func()
	done chan struct{}
}

// Engine drives the simulation forward on a single goroutine. Other
// goroutines reach simulation state only through Do.
type Engine struct {
	Tick        uint64        // Current tick counter (monotonic, never resets)
	Speed       float64       // Multiplier: 1.0 = real-time, 0 = paused
	Interval    time.Duration // Base tick interval
	TicksPerDay uint64

	// Callbacks for each tick layer, populated during setup.
	OnTick func(tick uint64) // Every tick (one frame)
	OnDay  func(tick uint64) // Every TicksPerDay ticks

	cmds    chan command
	running atomic.Bool
}

// NewEngine creates a simulation engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		Speed:       1.0,
		Interval:    time.Second / 30,
		TicksPerDay: TicksPerDay,
		cmds:        make(chan command, 64),
	}
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run drives the loop until ctx is cancelled. Commands queued with Do run
// between ticks, also while paused.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine already running")
	}
	defer e.running.Store(false)
	slog.Info("simulation engine started", "tick", e.Tick, "speed", e.Speed)

	timer := time.NewTimer(e.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.drain()
			slog.Info("simulation engine stopped", "tick", e.Tick)
			return nil
		case c := <-e.cmds:
			c.fn()
			close(c.done)
		case <-timer.C:
			if e.Speed > 0 {
				start := time.Now()
				e.Step()
				metrics.TickDuration.Observe(time.Since(start).Seconds())
			}
			timer.Reset(e.nextDelay())
		}
	}
}

// drain releases callers still waiting on queued commands.
func (e *Engine) drain() {
	for {
		select {
		case c := <-e.cmds:
			c.fn()
			close(c.done)
		default:
			return
		}
	}
}

func (e *Engine) nextDelay() time.Duration {
	if e.Speed <= 0 {
		// Paused; check again shortly.
		return 100 * time.Millisecond
	}
	return time.Duration(float64(e.Interval) / e.Speed)
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (e *Engine) Do(ctx context.Context, fn func()) error {
	if !e.Running() {
		return ErrStopped
	}
	c := command{fn: fn, done: make(chan struct{})}
	select {
	case e.cmds <- c:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetSpeed changes the speed multiplier. Call from the loop goroutine.
func (e *Engine) SetSpeed(speed float64) {
	e.Speed = speed
	slog.Info("speed changed", "speed", speed)
}

// Step advances the simulation by one tick.
func (e *Engine) Step() {
	e.Tick++
	metrics.Ticks.Inc()

	// Every in-game day: calendar first, then growth.
	if e.TicksPerDay > 0 && e.Tick%e.TicksPerDay == 0 && e.OnDay != nil {
		e.OnDay(e.Tick)
	}

	// Every tick: input resolution and viewport interpolation.
	if e.OnTick != nil {
		e.OnTick(e.Tick)
	}
}

// HourOf returns the hour of the day/night cycle (0–23) at tick.
func HourOf(tick uint64) int {
	return int((tick % TicksPerDayCycle) * 24 / TicksPerDayCycle)
}

// SimTime returns a human-readable time string for a calendar day and tick.
func SimTime(days int, tick uint64) string {
	t := calendar.Time{TotalDays: days}
	return fmt.Sprintf("%s %s%d日 %02d時 (%s)",
		calendar.YearLabel(t.Year()), calendar.MonthName(t.Month()), t.DayOfMonth(),
		HourOf(tick), t.SolarTerm().Zh())
}
