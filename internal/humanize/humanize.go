// Package humanize generates pointer paths, scroll plans and randomized
// pacing so that automated interaction looks less mechanical.
package humanize

import (
	"session-pacer/internal/core"

	"go.uber.org/zap"
)

// Humanizer coordinates path, pacing and scroll components built from one
// random source and one configuration
type Humanizer struct {
	paths  *PathGenerator
	pacing *Scheduler
	scroll *ScrollPlanner
	motion core.MotionConfig
}

// New creates a Humanizer. A nil rng selects a clock-seeded source and a nil
// sleep selects SleepContext.
func New(motion core.MotionConfig, pacing core.PacingConfig, rng core.RandomSource, sleep core.Sleeper) (*Humanizer, error) {
	if rng == nil {
		rng = NewRandom()
	}

	scheduler, err := NewScheduler(rng, &SchedulerConfig{
		SpeedJitter:  core.FloatRange{Min: motion.JitterMin, Max: motion.JitterMax},
		SkipInterval: pacing.SkipInterval,
		Sleep:        sleep,
	})
	if err != nil {
		return nil, err
	}

	return &Humanizer{
		paths:  NewPathGenerator(rng, motion.ControlOffset),
		pacing: scheduler,
		scroll: NewScrollPlanner(rng),
		motion: motion,
	}, nil
}

// Mover returns a Mover that drives device with the configured motion parameters
func (h *Humanizer) Mover(device core.PointerDevice, logger *zap.Logger) *Mover {
	return NewMover(device, h.paths, h.pacing, h.motion.PointCount, h.motion.BaseSpeed, logger)
}

// Paths returns the path generator
func (h *Humanizer) Paths() *PathGenerator {
	return h.paths
}

// Pacing returns the scheduler
func (h *Humanizer) Pacing() *Scheduler {
	return h.pacing
}

// Scroll returns the scroll planner
func (h *Humanizer) Scroll() *ScrollPlanner {
	return h.scroll
}
