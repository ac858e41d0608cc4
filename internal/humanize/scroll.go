package humanize

import (
	"fmt"
	"math"
	"time"

	"session-pacer/internal/core"
)

// ScrollAction represents one wheel step
type ScrollAction struct {
	Distance int           // Pixels to scroll, negative is up
	Delay    time.Duration // Delay after scrolling
}

// ScrollPlanner splits a scroll into chunks with acceleration/deceleration
type ScrollPlanner struct {
	rng core.RandomSource
}

// NewScrollPlanner creates a new ScrollPlanner
func NewScrollPlanner(rng core.RandomSource) *ScrollPlanner {
	return &ScrollPlanner{rng: rng}
}

// Plan generates wheel steps covering distance pixels:
// - chunked, not smooth
// - eased so middle chunks are largest
// - longer pauses on the first and last chunk
// A trailing zero-distance action holds the reading pause.
func (s *ScrollPlanner) Plan(distance int, chunk core.IntRange) ([]ScrollAction, error) {
	if err := chunk.Validate(); err != nil {
		return nil, err
	}
	if chunk.Min < 1 {
		return nil, fmt.Errorf("%w: scroll chunk must be at least 1px", core.ErrInvalidArgument)
	}

	multiplier := 1
	if distance < 0 {
		multiplier = -1
		distance = -distance
	}
	if distance == 0 {
		return nil, nil
	}

	avgChunkSize := (chunk.Min + chunk.Max) / 2
	numChunks := int(math.Ceil(float64(distance) / float64(avgChunkSize)))
	if numChunks < 1 {
		numChunks = 1
	}

	actions := make([]ScrollAction, 0, numChunks+1)
	remaining := distance

	for i := 0; remaining > 0; i++ {
		t := 0.5
		if numChunks > 1 {
			t = math.Min(float64(i)/float64(numChunks-1), 1)
		}

		base := float64(chunk.Min) + easeInOutCubic(t)*float64(chunk.Max-chunk.Min)
		size := int(base * s.rng.UniformFloat(0.7, 1.3))
		if size < 1 {
			size = 1
		}
		if size > remaining {
			size = remaining
		}

		// Larger chunks wait longer; edges wait longest
		baseDelay := 50.0 + float64(size)*0.5
		if i == 0 || i >= numChunks-1 {
			baseDelay *= s.rng.UniformFloat(1.5, 2.0)
		} else {
			baseDelay *= s.rng.UniformFloat(0.7, 1.0)
		}
		delay := time.Duration((baseDelay + s.rng.UniformFloat(0, 20)) * float64(time.Millisecond))

		actions = append(actions, ScrollAction{
			Distance: size * multiplier,
			Delay:    delay,
		})
		remaining -= size
	}

	actions = append(actions, ScrollAction{
		Distance: 0,
		Delay:    time.Duration(s.rng.UniformInt(200, 499)) * time.Millisecond,
	})

	return actions, nil
}

// easeInOutCubic is slow at both ends and fast in the middle
func easeInOutCubic(t float64) float64 {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}
