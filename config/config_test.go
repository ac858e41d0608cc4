package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"session-pacer/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Motion.PointCount)
	assert.Equal(t, 100, cfg.Motion.ControlOffset)
	assert.Equal(t, 0.001, cfg.Motion.BaseSpeed)
	assert.Equal(t, core.IntRange{Min: 3, Max: 7}, cfg.Pacing.BrowseScrolls)
	assert.Equal(t, core.IntRange{Min: 2, Max: 4}, cfg.Pacing.ThreadScrolls)
	assert.Equal(t, 5, cfg.Browser.ElementTimeout)
	assert.Empty(t, cfg.Session.LinkSelector)
	assert.Equal(t, core.IntRange{Min: 2, Max: 4}, cfg.Pacing.Interactions)
	assert.Equal(t, core.IntRange{Min: 2, Max: 5}, cfg.Pacing.SkipInterval)
	assert.Equal(t, core.FloatRange{Min: 4, Max: 5}, cfg.Pacing.AfterClick)
	assert.Equal(t, 500, cfg.Pacing.ScrollAmount)
	assert.Equal(t, 10, cfg.Pacing.MaxScanAttempts)
	assert.Equal(t, "data/pacer.db", cfg.Database.Path)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
motion:
  point_count: 30
  base_speed: 0.002
pacing:
  interactions:
    min: 1
    max: 6
  after_click:
    min: 0.5
    max: 0.75
browser:
  debugger_address: localhost:9222
session:
  url: https://example.com/forums
  target_selector: "//bdi[contains(text(), 'Like')]"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Motion.PointCount)
	assert.Equal(t, 0.002, cfg.Motion.BaseSpeed)
	assert.Equal(t, core.IntRange{Min: 1, Max: 6}, cfg.Pacing.Interactions)
	assert.Equal(t, core.FloatRange{Min: 0.5, Max: 0.75}, cfg.Pacing.AfterClick)
	assert.Equal(t, "localhost:9222", cfg.Browser.DebuggerAddress)
	assert.Equal(t, "https://example.com/forums", cfg.Session.URL)
	assert.Equal(t, "//bdi[contains(text(), 'Like')]", cfg.Session.TargetSelector)

	// Unset keys keep their defaults
	assert.Equal(t, core.IntRange{Min: 2, Max: 5}, cfg.Pacing.SkipInterval)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PACER_MOTION_POINT_COUNT", "12")
	t.Setenv("PACER_PACING_INTERACTIONS_MAX", "9")

	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Motion.PointCount)
	assert.Equal(t, 9, cfg.Pacing.Interactions.Max)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidRange(t *testing.T) {
	path := writeConfig(t, `
pacing:
  interactions:
    min: 5
    max: 2
`)
	_, err := Load(path)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestValidate(t *testing.T) {
	valid := func() *core.Config {
		cfg, err := Load(writeConfig(t, "{}\n"))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(cfg *core.Config)
	}{
		{"degenerate point count", func(c *core.Config) { c.Motion.PointCount = 1 }},
		{"negative speed", func(c *core.Config) { c.Motion.BaseSpeed = -1 }},
		{"inverted jitter", func(c *core.Config) { c.Motion.JitterMin, c.Motion.JitterMax = 2, 1 }},
		{"zero skip interval", func(c *core.Config) { c.Pacing.SkipInterval = core.IntRange{Min: 0, Max: 3} }},
		{"inverted delay", func(c *core.Config) { c.Pacing.AfterClick = core.FloatRange{Min: 5, Max: 4} }},
		{"negative delay", func(c *core.Config) { c.Pacing.RescanDelay = core.FloatRange{Min: -1, Max: 4} }},
		{"zero scroll amount", func(c *core.Config) { c.Pacing.ScrollAmount = 0 }},
		{"unbounded rescans", func(c *core.Config) { c.Pacing.MaxScanAttempts = 0 }},
		{"inverted thread scrolls", func(c *core.Config) { c.Pacing.ThreadScrolls = core.IntRange{Min: 4, Max: 2} }},
		{"negative element timeout", func(c *core.Config) { c.Browser.ElementTimeout = -1 }},
		{"infinite delay", func(c *core.Config) { c.Pacing.AfterClick = core.FloatRange{Min: 1, Max: math.Inf(1)} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorIs(t, Validate(cfg), core.ErrInvalidArgument)
		})
	}

	t.Run("missing database path", func(t *testing.T) {
		cfg := valid()
		cfg.Database.Path = ""
		assert.Error(t, Validate(cfg))
	})
}
