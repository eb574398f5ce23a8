// Package persistence provides SQLite-based town state storage.
package persistence

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/talgya/taixu/internal/engine"
	"github.com/talgya/taixu/internal/metrics"
	"github.com/talgya/taixu/internal/player"
	"github.com/talgya/taixu/internal/world"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNoState is returned by LoadSnapshot when nothing has been saved yet.
var ErrNoState = errors.New("no saved world state")

// Meta keys.
const (
	metaSessionID = "session_id"
	metaWidth     = "width"
	metaHeight    = "height"
	metaBounds    = "bounds"
	metaTotalDays = "total_days"
	metaTick      = "last_tick"
	metaViewport  = "viewport"
	metaPlayer    = "player"
	metaStats     = "stats"
)

// DB wraps a SQLite connection for town state persistence.
type DB struct {
	conn *sqlx.DB

	// Sequence number of the last stored event.
	savedSeq uint64
}

// Open opens or creates a SQLite database at the given path and applies
// pending migrations.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer; sqlite serialises anyway.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Up(db.conn.DB, "migrations")
}

type tileRow struct {
	Col             int            `db:"tile_col"`
	Row             int            `db:"tile_row"`
	Terrain         uint8          `db:"terrain"`
	Building        uint8          `db:"building"`
	Crop            sql.NullString `db:"crop"`
	PlantedDay      int            `db:"planted_day"`
	StageStartedDay int            `db:"stage_started_day"`
	Stage           int            `db:"stage"`
	Seeds           int            `db:"seeds"`
	Withered        bool           `db:"withered"`
}

type eventRow struct {
	Tick        uint64         `db:"tick"`
	Day         int            `db:"day"`
	Description string         `db:"description"`
	Category    string         `db:"category"`
	MetaJSON    sql.NullString `db:"meta_json"`
}

// SaveSnapshot writes the full snapshot (tiles, storehouse and meta) in
// one transaction, replacing what was there.
func (db *DB) SaveSnapshot(ctx context.Context, snap *engine.Snapshot) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tiles"); err != nil {
		return err
	}
	stmt, err := tx.PreparexContext(ctx, `INSERT INTO tiles
		(tile_col, tile_row, terrain, building, crop, planted_day, stage_started_day, stage, seeds, withered)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range snap.Tiles {
		r := tileRow{Col: t.Col, Row: t.Row, Terrain: uint8(t.Terrain), Building: uint8(t.Building)}
		if f := t.Farm; f != nil {
			r.Crop = sql.NullString{String: string(f.Crop), Valid: true}
			r.PlantedDay, r.StageStartedDay, r.Stage = f.PlantedDay, f.StageStartedDay, f.Stage
			r.Seeds, r.Withered = f.Seeds, f.Withered
		}
		if _, err := stmt.ExecContext(ctx,
			r.Col, r.Row, r.Terrain, r.Building, r.Crop,
			r.PlantedDay, r.StageStartedDay, r.Stage, r.Seeds, r.Withered,
		); err != nil {
			return fmt.Errorf("insert tile (%d,%d): %w", t.Col, t.Row, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM storehouse"); err != nil {
		return err
	}
	for crop, n := range snap.Storehouse {
		if _, err := tx.ExecContext(ctx, "INSERT INTO storehouse (crop, amount) VALUES (?, ?)", string(crop), n); err != nil {
			return fmt.Errorf("insert storehouse %s: %w", crop, err)
		}
	}

	meta := map[string]string{
		metaSessionID: snap.SessionID,
		metaWidth:     strconv.Itoa(snap.Width),
		metaHeight:    strconv.Itoa(snap.Height),
		metaTotalDays: strconv.Itoa(snap.TotalDays),
		metaTick:      strconv.FormatUint(snap.Tick, 10),
	}
	for key, v := range map[string]any{
		metaBounds:   snap.Bounds,
		metaViewport: snap.Viewport,
		metaPlayer:   snap.Player,
		metaStats:    snap.Stats,
	} {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		meta[key] = string(b)
	}
	for key, value := range meta {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", key, value,
		); err != nil {
			return fmt.Errorf("save meta %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("world state saved", "tiles", len(snap.Tiles), "day", snap.TotalDays, "tick", snap.Tick)
	return nil
}

// LoadSnapshot reads the saved snapshot. Returns ErrNoState if none exists.
func (db *DB) LoadSnapshot(ctx context.Context) (*engine.Snapshot, error) {
	if !db.HasWorldState() {
		return nil, ErrNoState
	}

	meta := make(map[string]string)
	rows, err := db.conn.QueryxContext(ctx, "SELECT key, value FROM world_meta")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return nil, err
		}
		meta[k] = v
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	snap := &engine.Snapshot{SessionID: meta[metaSessionID]}
	ints := []struct {
		key string
		dst *int
	}{
		{metaWidth, &snap.Width},
		{metaHeight, &snap.Height},
		{metaTotalDays, &snap.TotalDays},
	}
	for _, f := range ints {
		n, err := strconv.Atoi(meta[f.key])
		if err != nil {
			return nil, fmt.Errorf("meta %s: %w", f.key, err)
		}
		*f.dst = n
	}
	if snap.Tick, err = strconv.ParseUint(meta[metaTick], 10, 64); err != nil {
		return nil, fmt.Errorf("meta %s: %w", metaTick, err)
	}
	for key, dst := range map[string]any{
		metaBounds:   &snap.Bounds,
		metaViewport: &snap.Viewport,
		metaPlayer:   &snap.Player,
		metaStats:    &snap.Stats,
	} {
		if err := json.Unmarshal([]byte(meta[key]), dst); err != nil {
			return nil, fmt.Errorf("meta %s: %w", key, err)
		}
	}

	var tiles []tileRow
	if err := db.conn.SelectContext(ctx, &tiles, `SELECT
		tile_col, tile_row, terrain, building, crop, planted_day, stage_started_day, stage, seeds, withered
		FROM tiles ORDER BY tile_row, tile_col`); err != nil {
		return nil, fmt.Errorf("load tiles: %w", err)
	}
	snap.Tiles = make([]engine.TileRecord, 0, len(tiles))
	for _, r := range tiles {
		rec := engine.TileRecord{
			Col:      r.Col,
			Row:      r.Row,
			Terrain:  world.Terrain(r.Terrain),
			Building: world.BuildingKind(r.Building),
		}
		if r.Crop.Valid {
			rec.Farm = &world.FarmData{
				Crop:            world.CropType(r.Crop.String),
				PlantedDay:      r.PlantedDay,
				StageStartedDay: r.StageStartedDay,
				Stage:           r.Stage,
				Seeds:           r.Seeds,
				Withered:        r.Withered,
			}
		}
		snap.Tiles = append(snap.Tiles, rec)
	}

	var store []struct {
		Crop   string `db:"crop"`
		Amount int    `db:"amount"`
	}
	if err := db.conn.SelectContext(ctx, &store, "SELECT crop, amount FROM storehouse"); err != nil {
		return nil, fmt.Errorf("load storehouse: %w", err)
	}
	snap.Storehouse = make(map[world.CropType]int, len(store))
	for _, s := range store {
		snap.Storehouse[world.CropType(s.Crop)] = s.Amount
	}

	slog.Info("world state loaded", "tiles", len(snap.Tiles), "day", snap.TotalDays, "tick", snap.Tick)
	return snap, nil
}

// HasWorldState returns true if a snapshot has been saved.
func (db *DB) HasWorldState() bool {
	var count int
	if err := db.conn.Get(&count, "SELECT COUNT(*) FROM world_meta WHERE key = ?", metaTotalDays); err != nil {
		return false
	}
	return count > 0
}

// SaveEvents appends events to the event history.
func (db *DB) SaveEvents(ctx context.Context, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		var meta sql.NullString
		if len(e.Meta) > 0 {
			b, err := json.Marshal(e.Meta)
			if err != nil {
				return fmt.Errorf("encode event meta: %w", err)
			}
			meta = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO events (tick, day, description, category, meta_json) VALUES (?, ?, ?, ?, ?)",
			e.Tick, e.Day, e.Description, e.Category, meta,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentEvents returns the most recent limit events, newest first.
func (db *DB) RecentEvents(ctx context.Context, limit int) ([]engine.Event, error) {
	var rows []eventRow
	if err := db.conn.SelectContext(ctx, &rows,
		"SELECT tick, day, description, category, meta_json FROM events ORDER BY id DESC LIMIT ?",
		limit,
	); err != nil {
		return nil, err
	}

	events := make([]engine.Event, 0, len(rows))
	for _, r := range rows {
		e := engine.Event{Tick: r.Tick, Day: r.Day, Description: r.Description, Category: r.Category}
		if r.MetaJSON.Valid {
			if err := json.Unmarshal([]byte(r.MetaJSON.String), &e.Meta); err != nil {
				return nil, fmt.Errorf("decode event meta: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// SaveWorldState snapshots sim and saves it along with events emitted
// since the last save. Must run on the engine loop goroutine.
func (db *DB) SaveWorldState(ctx context.Context, sim *engine.Simulation) error {
	snap := sim.Snapshot()
	events := sim.Events.After(db.savedSeq)
	if err := db.SaveSnapshot(ctx, snap); err != nil {
		metrics.SnapshotSaves.WithLabelValues("error").Inc()
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := db.SaveEvents(ctx, events); err != nil {
		metrics.SnapshotSaves.WithLabelValues("error").Inc()
		return fmt.Errorf("save events: %w", err)
	}
	if n := len(events); n > 0 {
		db.savedSeq = events[n-1].Seq
	}
	metrics.SnapshotSaves.WithLabelValues("ok").Inc()
	return nil
}

// LoadWorld restores the saved simulation.
func (db *DB) LoadWorld(ctx context.Context, pcfg player.Config) (*engine.Simulation, error) {
	snap, err := db.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	db.savedSeq = 0
	return engine.Restore(snap, pcfg)
}
