package humanize

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Random is a RandomSource backed by math/rand
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a Random seeded from the clock
func NewRandom() *Random {
	return NewSeededRandom(time.Now().UnixNano())
}

// NewSeededRandom creates a Random with a fixed seed so sequences repeat
func NewSeededRandom(seed int64) *Random {
	return &Random{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// UniformInt returns a random integer between min and max (inclusive).
// Callers validate the range; an inverted one is swapped.
func (r *Random) UniformInt(min, max int) int {
	if min > max {
		min, max = max, min
	}
	if min == max {
		return min
	}

	// The span is computed in uint64 so ranges wider than MaxInt do not overflow
	span := uint64(max) - uint64(min)
	if span < math.MaxInt64 {
		return int(uint64(min) + uint64(r.rng.Int63n(int64(span)+1)))
	}
	return int(uint64(min) + r.uint64n(span))
}

// uint64n returns a value in [0, span] without modulo bias
func (r *Random) uint64n(span uint64) uint64 {
	if span == math.MaxUint64 {
		return r.rng.Uint64()
	}
	n := span + 1
	limit := math.MaxUint64 - math.MaxUint64%n
	for {
		if v := r.rng.Uint64(); v < limit {
			return v % n
		}
	}
}

// UniformFloat returns a random float64 between min and max
func (r *Random) UniformFloat(min, max float64) float64 {
	if min > max {
		min, max = max, min
	}
	// Interpolating avoids max-min, which overflows to +Inf for wide ranges
	u := r.rng.Float64()
	v := (1-u)*min + u*max
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// SleepContext sleeps for d, returning early with ctx.Err() on cancellation
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
