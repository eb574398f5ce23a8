package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, vars map[string]string) (*Config, error) {
	t.Helper()
	return Parse(env.Options{Prefix: Prefix, Environment: vars})
}

func TestDefaults(t *testing.T) {
	cfg, err := parse(t, map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 48, cfg.Width)
	assert.Equal(t, "data/taixu.db", cfg.DBPath)
	assert.Equal(t, 33*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, uint64(30), cfg.TicksPerDay)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.True(t, cfg.AutoSave)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestOverrides(t *testing.T) {
	cfg, err := parse(t, map[string]string{
		"TAIXU_SEED":         "7",
		"TAIXU_PORT":         "9000",
		"TAIXU_ZOOM":         "1.5",
		"TAIXU_LOG_FORMAT":   "json",
		"TAIXU_CORS_ORIGINS": "http://a.test,http://b.test",
		"TAIXU_AUTOSAVE":     "false",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 1.5, cfg.Zoom)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.False(t, cfg.AutoSave)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"tiny grid", map[string]string{"TAIXU_WIDTH": "2"}},
		{"zero zoom", map[string]string{"TAIXU_ZOOM": "0"}},
		{"bad port", map[string]string{"TAIXU_PORT": "70000"}},
		{"unknown format", map[string]string{"TAIXU_LOG_FORMAT": "xml"}},
		{"negative speed", map[string]string{"TAIXU_SPEED": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.vars)
			var verrs validator.ValidationErrors
			assert.ErrorAs(t, err, &verrs)
		})
	}

	_, err := parse(t, map[string]string{"TAIXU_SEED": "abc"})
	assert.Error(t, err)
}
