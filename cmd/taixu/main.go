// Command taixu runs the Taixu town simulation and its HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/taixu/internal/api"
	"github.com/talgya/taixu/internal/config"
	"github.com/talgya/taixu/internal/engine"
	"github.com/talgya/taixu/internal/festival"
	"github.com/talgya/taixu/internal/logger"
	"github.com/talgya/taixu/internal/persistence"
	"github.com/talgya/taixu/internal/player"
	"github.com/talgya/taixu/internal/world"
)

func main() {
	if err := run(); err != nil {
		slog.Error("taixu exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	slog.Info("太虛 town simulation", "seed", cfg.Seed, "size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Load or Generate World ────────────────────────────────────────
	pcfg := player.Config{
		MoveSpeed:  cfg.MoveSpeed,
		PathSpeed:  cfg.PathSpeed,
		RouteCache: cfg.RouteCache,
	}
	view := player.Viewport{ScreenWidth: cfg.ScreenWidth, ScreenHeight: cfg.ScreenHeight, Zoom: cfg.Zoom}

	ctx := context.Background()
	sim, err := db.LoadWorld(ctx, pcfg)
	fresh := errors.Is(err, persistence.ErrNoState)
	switch {
	case fresh:
		slog.Info("no saved state found, generating new town...")
		sim, err = generate(cfg, view, pcfg)
		if err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("load world: %w", err)
	default:
		// The screen may have changed since the last run.
		sim.Player.SetViewport(view)
		slog.Info("world state restored",
			"session", sim.SessionID,
			"tick", sim.LastTick,
			"sim_time", engine.SimTime(sim.Calendar.TotalDays(), sim.LastTick),
		)
	}
	festival.Register(sim.Calendar, sim)

	if fresh {
		if err := db.SaveWorldState(ctx, sim); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Tick = sim.LastTick
	eng.Speed = cfg.Speed
	eng.Interval = cfg.TickInterval
	eng.TicksPerDay = cfg.TicksPerDay

	eng.OnTick = sim.TickFrame
	eng.OnDay = func(tick uint64) {
		sim.TickDay(tick)
		if !cfg.AutoSave {
			return
		}
		if err := db.SaveWorldState(ctx, sim); err != nil {
			slog.Error("daily save failed", "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("TAIXU_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	srv := &api.Server{
		Sim:         sim,
		Eng:         eng,
		DB:          db,
		Addr:        cfg.Addr(),
		AdminKey:    cfg.AdminKey,
		CORSOrigins: cfg.CORSOrigins,
		Limiter:     api.NewRateLimiter(600, time.Minute),
	}
	srv.Start()

	// ── Start ─────────────────────────────────────────────────────────
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\n太虛 is alive: %s tiles, %d buildings.\n",
		humanize.Comma(int64(sim.Grid.TileCount())), sim.Stats.Buildings)
	fmt.Printf("API: http://localhost%s/api/v1/status\n", cfg.Addr())
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	if err := eng.Run(runCtx); err != nil {
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown", "error", err)
	}

	// The loop has stopped, so state is ours to read.
	slog.Info("final save...")
	if err := db.SaveWorldState(ctx, sim); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	fmt.Println("Simulation stopped. World state saved.")
	return nil
}

// generate builds a fresh town from the configured seed.
func generate(cfg *config.Config, view player.Viewport, pcfg player.Config) (*engine.Simulation, error) {
	gen := world.DefaultGenConfig()
	gen.Seed = cfg.Seed
	gen.Width, gen.Height = cfg.Width, cfg.Height
	grid := world.Generate(gen)

	for t, n := range world.TerrainCounts(grid) {
		slog.Info("terrain", "type", world.TerrainName(t), "count", humanize.Comma(int64(n)))
	}

	spawn := world.FindSpawn(grid)
	sim, err := engine.NewSimulation(grid, engine.Options{
		Spawn:  spawn,
		View:   view,
		Player: pcfg,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("town ready", "session", sim.SessionID, "spawn", spawn, "buildings", sim.Stats.Buildings)
	return sim, nil
}
