package humanize

import (
	"context"
	"fmt"
	"math"
	"time"

	"session-pacer/internal/core"
	"session-pacer/pkg/utils"
)

var (
	// DefaultSpeedJitter scales each step delay
	DefaultSpeedJitter = core.FloatRange{Min: 0.8, Max: 1.5}

	// DefaultSkipInterval is the stride used when walking scanned targets
	DefaultSkipInterval = core.IntRange{Min: 2, Max: 5}
)

// SchedulerConfig holds the fixed ranges of a Scheduler. Zero ranges select defaults.
type SchedulerConfig struct {
	SpeedJitter  core.FloatRange
	SkipInterval core.IntRange
	Sleep        core.Sleeper
}

// Scheduler draws the randomized counts and delays that pace a session
type Scheduler struct {
	rng          core.RandomSource
	speedJitter  core.FloatRange
	skipInterval core.IntRange
	sleep        core.Sleeper
}

// NewScheduler creates a Scheduler. cfg may be nil.
func NewScheduler(rng core.RandomSource, cfg *SchedulerConfig) (*Scheduler, error) {
	s := &Scheduler{
		rng:          rng,
		speedJitter:  DefaultSpeedJitter,
		skipInterval: DefaultSkipInterval,
		sleep:        SleepContext,
	}
	if cfg == nil {
		return s, nil
	}

	if cfg.SpeedJitter != (core.FloatRange{}) {
		if err := cfg.SpeedJitter.Validate(); err != nil {
			return nil, err
		}
		s.speedJitter = cfg.SpeedJitter
	}
	if cfg.SkipInterval != (core.IntRange{}) {
		if err := cfg.SkipInterval.Validate(); err != nil {
			return nil, err
		}
		if cfg.SkipInterval.Min < 1 {
			return nil, fmt.Errorf("%w: skip interval must be at least 1", core.ErrInvalidArgument)
		}
		s.skipInterval = cfg.SkipInterval
	}
	if cfg.Sleep != nil {
		s.sleep = cfg.Sleep
	}

	return s, nil
}

// SampleCount draws an integer uniformly from [r.Min, r.Max]
func (s *Scheduler) SampleCount(r core.IntRange) (int, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	return s.rng.UniformInt(r.Min, r.Max), nil
}

// SampleDelay draws seconds uniformly from [r.Min, r.Max]
func (s *Scheduler) SampleDelay(r core.FloatRange) (float64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	if r.Min == r.Max {
		return r.Min, nil
	}
	return s.rng.UniformFloat(r.Min, r.Max), nil
}

// SampleDuration is SampleDelay converted to a time.Duration
func (s *Scheduler) SampleDuration(r core.FloatRange) (time.Duration, error) {
	secs, err := s.SampleDelay(r)
	if err != nil {
		return 0, err
	}
	return utils.Seconds(secs), nil
}

// StepDelay returns the seconds to wait before moving distance pixels:
// baseSpeed * jitter * distance^0.75. Negative inputs count as zero.
func (s *Scheduler) StepDelay(distance, baseSpeed float64) float64 {
	if distance <= 0 || baseSpeed <= 0 || math.IsNaN(distance) || math.IsNaN(baseSpeed) {
		return 0
	}
	jitter := s.rng.UniformFloat(s.speedJitter.Min, s.speedJitter.Max)
	return baseSpeed * jitter * math.Pow(distance, 0.75)
}

// SkipInterval draws the stride for walking one scan's targets
func (s *Scheduler) SkipInterval() int {
	return s.rng.UniformInt(s.skipInterval.Min, s.skipInterval.Max)
}

// Sleep blocks for d through the configured sleeper
func (s *Scheduler) Sleep(ctx context.Context, d time.Duration) error {
	return s.sleep(ctx, d)
}

// SleepRange draws a delay from r and sleeps for it
func (s *Scheduler) SleepRange(ctx context.Context, r core.FloatRange) (time.Duration, error) {
	d, err := s.SampleDuration(r)
	if err != nil {
		return 0, err
	}
	return d, s.sleep(ctx, d)
}
