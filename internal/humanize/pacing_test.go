package humanize

import (
	"context"
	"math"
	"testing"
	"time"

	"session-pacer/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, seed int64) *Scheduler {
	t.Helper()
	s, err := NewScheduler(NewSeededRandom(seed), nil)
	require.NoError(t, err)
	return s
}

func TestSampleCount_BoundsAndUniformity(t *testing.T) {
	s := newTestScheduler(t, 2024)
	r := core.IntRange{Min: 1, Max: 6}
	const samples = 10000

	counts := make(map[int]int)
	for i := 0; i < samples; i++ {
		n, err := s.SampleCount(r)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, r.Min)
		require.LessOrEqual(t, n, r.Max)
		counts[n]++
	}

	buckets := r.Max - r.Min + 1
	expected := float64(samples) / float64(buckets)
	chiSquare := 0.0
	for v := r.Min; v <= r.Max; v++ {
		diff := float64(counts[v]) - expected
		chiSquare += diff * diff / expected
	}

	// df=5; 30 is far beyond the 0.999 quantile (20.5)
	assert.Less(t, chiSquare, 30.0)
}

func TestSampleCount_SmallRangeCoversAllValues(t *testing.T) {
	s := newTestScheduler(t, 5)
	seen := make(map[int]int)

	for i := 0; i < 1000; i++ {
		n, err := s.SampleCount(core.IntRange{Min: 2, Max: 4})
		require.NoError(t, err)
		seen[n]++
	}

	assert.Len(t, seen, 3)
	for _, v := range []int{2, 3, 4} {
		assert.Positive(t, seen[v], "value %d never drawn", v)
	}
}

func TestSampleCount_RejectsInvertedRange(t *testing.T) {
	s := newTestScheduler(t, 1)
	_, err := s.SampleCount(core.IntRange{Min: 5, Max: 2})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestSampleCount_WideRanges(t *testing.T) {
	s := newTestScheduler(t, 11)
	ranges := []core.IntRange{
		{Min: 0, Max: math.MaxInt},
		{Min: math.MinInt, Max: math.MaxInt},
		{Min: math.MinInt, Max: 0},
		{Min: -1, Max: math.MaxInt},
	}

	for _, r := range ranges {
		for i := 0; i < 1000; i++ {
			n, err := s.SampleCount(r)
			require.NoError(t, err)
			require.GreaterOrEqual(t, n, r.Min)
			require.LessOrEqual(t, n, r.Max)
		}
	}
}

func TestSampleDelay_WideRange(t *testing.T) {
	s := newTestScheduler(t, 13)
	r := core.FloatRange{Min: -math.MaxFloat64, Max: math.MaxFloat64}

	for i := 0; i < 1000; i++ {
		d, err := s.SampleDelay(r)
		require.NoError(t, err)
		require.False(t, math.IsInf(d, 0))
		require.GreaterOrEqual(t, d, r.Min)
		require.LessOrEqual(t, d, r.Max)
	}

	_, err := s.SampleDelay(core.FloatRange{Min: 0, Max: math.Inf(1)})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestSampleDelay(t *testing.T) {
	s := newTestScheduler(t, 3)

	t.Run("degenerate range returns the value", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			d, err := s.SampleDelay(core.FloatRange{Min: 2.5, Max: 2.5})
			require.NoError(t, err)
			assert.Equal(t, 2.5, d)
		}
	})

	t.Run("within bounds", func(t *testing.T) {
		for i := 0; i < 10000; i++ {
			d, err := s.SampleDelay(core.FloatRange{Min: 4, Max: 5})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, d, 4.0)
			assert.LessOrEqual(t, d, 5.0)
		}
	})

	t.Run("inverted range", func(t *testing.T) {
		_, err := s.SampleDelay(core.FloatRange{Min: 3, Max: 1})
		assert.ErrorIs(t, err, core.ErrInvalidArgument)
	})

	t.Run("NaN bound", func(t *testing.T) {
		_, err := s.SampleDelay(core.FloatRange{Min: math.NaN(), Max: 1})
		assert.ErrorIs(t, err, core.ErrInvalidArgument)
	})
}

func TestSampleDuration(t *testing.T) {
	s := newTestScheduler(t, 3)
	d, err := s.SampleDuration(core.FloatRange{Min: 1.5, Max: 1.5})
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)
}

func TestStepDelay(t *testing.T) {
	s, err := NewScheduler(&stubRandom{}, nil)
	require.NoError(t, err)

	tests := []struct {
		name      string
		distance  float64
		baseSpeed float64
		expected  float64
	}{
		{"zero distance", 0, 0.001, 0},
		{"zero distance large speed", 0, 1000, 0},
		{"negative distance", -5, 0.001, 0},
		{"negative speed", 16, -1, 0},
		// jitter stub returns 0.8; 16^0.75 = 8
		{"scaled", 16, 0.001, 0.001 * 0.8 * 8},
		{"unit", 1, 0.5, 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, s.StepDelay(tt.distance, tt.baseSpeed), 1e-12)
		})
	}
}

func TestStepDelay_JitterBounds(t *testing.T) {
	s := newTestScheduler(t, 11)
	const distance, base = 81.0, 0.01 // 81^0.75 = 27

	for i := 0; i < 1000; i++ {
		d := s.StepDelay(distance, base)
		assert.GreaterOrEqual(t, d, base*0.8*27-1e-9)
		assert.LessOrEqual(t, d, base*1.5*27+1e-9)
	}
}

func TestSkipInterval(t *testing.T) {
	s := newTestScheduler(t, 8)
	seen := make(map[int]bool)
	for i := 0; i < 500; i++ {
		n := s.SkipInterval()
		require.GreaterOrEqual(t, n, 2)
		require.LessOrEqual(t, n, 5)
		seen[n] = true
	}
	assert.Len(t, seen, 4)
}

func TestNewScheduler_Config(t *testing.T) {
	_, err := NewScheduler(NewSeededRandom(1), &SchedulerConfig{
		SpeedJitter: core.FloatRange{Min: 2, Max: 1},
	})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = NewScheduler(NewSeededRandom(1), &SchedulerConfig{
		SkipInterval: core.IntRange{Min: 0, Max: 3},
	})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	s, err := NewScheduler(NewSeededRandom(1), &SchedulerConfig{
		SkipInterval: core.IntRange{Min: 3, Max: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, s.SkipInterval())
}

func TestSleepRange_UsesInjectedSleeper(t *testing.T) {
	var slept []time.Duration
	s, err := NewScheduler(NewSeededRandom(1), &SchedulerConfig{
		Sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	})
	require.NoError(t, err)

	d, err := s.SleepRange(context.Background(), core.FloatRange{Min: 0.25, Max: 0.25})
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)
	assert.Equal(t, []time.Duration{250 * time.Millisecond}, slept)
}

func TestSleepContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := SleepContext(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
