package config

import (
	"errors"
	"fmt"
	"strings"

	"session-pacer/internal/core"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PACER_MOTION_BASE_SPEED
const EnvPrefix = "PACER"

// Load loads configuration from a YAML file, .env and environment variables
func Load(configPath string) (*core.Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, continue with defaults and env vars
	}

	cfg := &core.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Motion
	v.SetDefault("motion.point_count", 50)
	v.SetDefault("motion.control_offset", 100)
	v.SetDefault("motion.base_speed", 0.001)
	v.SetDefault("motion.jitter_min", 0.8)
	v.SetDefault("motion.jitter_max", 1.5)

	// Pacing
	v.SetDefault("pacing.browse_scrolls.min", 3)
	v.SetDefault("pacing.browse_scrolls.max", 7)
	v.SetDefault("pacing.thread_scrolls.min", 2)
	v.SetDefault("pacing.thread_scrolls.max", 4)
	v.SetDefault("pacing.batch_scrolls.min", 1)
	v.SetDefault("pacing.batch_scrolls.max", 3)
	v.SetDefault("pacing.interactions.min", 2)
	v.SetDefault("pacing.interactions.max", 4)
	v.SetDefault("pacing.skip_interval.min", 2)
	v.SetDefault("pacing.skip_interval.max", 5)
	v.SetDefault("pacing.scroll_amount", 500)
	v.SetDefault("pacing.scroll_chunk.min", 50)
	v.SetDefault("pacing.scroll_chunk.max", 200)
	v.SetDefault("pacing.scroll_pause.min", 1.0)
	v.SetDefault("pacing.scroll_pause.max", 2.0)
	v.SetDefault("pacing.scroll_delay", 2.0)
	v.SetDefault("pacing.settle_delay.min", 2.0)
	v.SetDefault("pacing.settle_delay.max", 3.0)
	v.SetDefault("pacing.after_click.min", 4.0)
	v.SetDefault("pacing.after_click.max", 5.0)
	v.SetDefault("pacing.rescan_delay.min", 1.0)
	v.SetDefault("pacing.rescan_delay.max", 3.0)
	v.SetDefault("pacing.max_scan_attempts", 10)
	v.SetDefault("pacing.max_batches", 50)

	// Browser
	v.SetDefault("browser.debugger_address", "")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.viewport_width", 1920)
	v.SetDefault("browser.viewport_height", 1080)
	v.SetDefault("browser.element_timeout", 5)

	// Session
	v.SetDefault("session.url", "")
	v.SetDefault("session.target_selector", "")
	v.SetDefault("session.link_selector", "")

	// Database
	v.SetDefault("database.path", "data/pacer.db")
}

// Validate checks that every range is well formed and counts are usable
func Validate(cfg *core.Config) error {
	if cfg.Motion.PointCount < 2 {
		return fmt.Errorf("%w: motion.point_count must be at least 2, got %d", core.ErrInvalidArgument, cfg.Motion.PointCount)
	}
	if cfg.Motion.BaseSpeed < 0 {
		return fmt.Errorf("%w: motion.base_speed must not be negative", core.ErrInvalidArgument)
	}
	if err := (core.FloatRange{Min: cfg.Motion.JitterMin, Max: cfg.Motion.JitterMax}).Validate(); err != nil {
		return fmt.Errorf("motion.jitter: %w", err)
	}

	p := cfg.Pacing
	intRanges := map[string]core.IntRange{
		"pacing.browse_scrolls": p.BrowseScrolls,
		"pacing.thread_scrolls": p.ThreadScrolls,
		"pacing.batch_scrolls":  p.BatchScrolls,
		"pacing.interactions":   p.Interactions,
		"pacing.skip_interval":  p.SkipInterval,
		"pacing.scroll_chunk":   p.ScrollChunk,
	}
	for name, r := range intRanges {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if r.Min < 0 {
			return fmt.Errorf("%w: %s must not be negative", core.ErrInvalidArgument, name)
		}
	}
	if p.SkipInterval.Min < 1 {
		return fmt.Errorf("%w: pacing.skip_interval must be at least 1", core.ErrInvalidArgument)
	}
	if p.ScrollChunk.Min < 1 {
		return fmt.Errorf("%w: pacing.scroll_chunk must be at least 1", core.ErrInvalidArgument)
	}

	floatRanges := map[string]core.FloatRange{
		"pacing.scroll_pause": p.ScrollPause,
		"pacing.settle_delay": p.SettleDelay,
		"pacing.after_click":  p.AfterClick,
		"pacing.rescan_delay": p.RescanDelay,
	}
	for name, r := range floatRanges {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if r.Min < 0 {
			return fmt.Errorf("%w: %s must not be negative", core.ErrInvalidArgument, name)
		}
	}

	if p.ScrollAmount == 0 {
		return fmt.Errorf("%w: pacing.scroll_amount must not be zero", core.ErrInvalidArgument)
	}
	if p.MaxScanAttempts < 1 {
		return fmt.Errorf("%w: pacing.max_scan_attempts must be at least 1", core.ErrInvalidArgument)
	}
	if p.MaxBatches < 0 {
		return fmt.Errorf("%w: pacing.max_batches must not be negative", core.ErrInvalidArgument)
	}

	if cfg.Browser.ElementTimeout < 0 {
		return fmt.Errorf("%w: browser.element_timeout must not be negative", core.ErrInvalidArgument)
	}

	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}
