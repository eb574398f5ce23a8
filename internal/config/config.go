// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every tunable of the taixu binary.
type Config struct {
	// World
	Seed   int64 `env:"SEED" envDefault:"42"`
	Width  int   `env:"WIDTH" envDefault:"48" validate:"min=8,max=512"`
	Height int   `env:"HEIGHT" envDefault:"48" validate:"min=8,max=512"`

	// Storage
	DBPath   string `env:"DB_PATH" envDefault:"data/taixu.db" validate:"required"`
	AutoSave bool   `env:"AUTOSAVE" envDefault:"true"`

	// API
	Port        int      `env:"PORT" envDefault:"8080" validate:"min=1,max=65535"`
	AdminKey    string   `env:"ADMIN_KEY"`
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`

	// Loop
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"33ms" validate:"min=1ms"`
	Speed        float64       `env:"SPEED" envDefault:"1" validate:"gte=0,lte=100"`
	TicksPerDay  uint64        `env:"TICKS_PER_DAY" envDefault:"30" validate:"min=1"`

	// Player and viewport
	ScreenWidth  float64 `env:"SCREEN_WIDTH" envDefault:"1280" validate:"gt=0"`
	ScreenHeight float64 `env:"SCREEN_HEIGHT" envDefault:"720" validate:"gt=0"`
	Zoom         float64 `env:"ZOOM" envDefault:"1" validate:"gt=0,lte=8"`
	MoveSpeed    float64 `env:"MOVE_SPEED" envDefault:"10.666667" validate:"gt=0"`
	PathSpeed    float64 `env:"PATH_SPEED" envDefault:"10.666667" validate:"gt=0"`
	RouteCache   int     `env:"ROUTE_CACHE" envDefault:"256" validate:"min=1"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn warning error"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`
}

// Prefix is prepended to every variable name.
const Prefix = "TAIXU_"

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse(env.Options{Prefix: Prefix})
}

// Parse builds a Config from the environment described by opts and
// validates it.
func Parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Addr is the listen address for the API server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
