package humanize

import (
	"fmt"
	"math"

	"session-pacer/internal/core"
)

const (
	// DefaultPointCount is the number of points in a generated path
	DefaultPointCount = 50

	// DefaultControlOffset bounds the random control point offset on each axis
	DefaultControlOffset = 100
)

// PathGenerator builds quadratic Bézier paths through one randomized control point
type PathGenerator struct {
	rng           core.RandomSource
	controlOffset int
}

// NewPathGenerator creates a PathGenerator. A non-positive controlOffset
// selects DefaultControlOffset.
func NewPathGenerator(rng core.RandomSource, controlOffset int) *PathGenerator {
	if controlOffset <= 0 {
		controlOffset = DefaultControlOffset
	}
	return &PathGenerator{
		rng:           rng,
		controlOffset: controlOffset,
	}
}

// GeneratePath builds a path with the default control offset
func GeneratePath(rng core.RandomSource, start, end core.Point, pointCount int) (core.Path, error) {
	return NewPathGenerator(rng, DefaultControlOffset).Generate(start, end, pointCount)
}

// Generate returns pointCount points from start to end, both inclusive.
// Coordinates are truncated to integers. Every call draws a new control point,
// so two calls with the same arguments almost never return the same path.
func (g *PathGenerator) Generate(start, end core.Point, pointCount int) (core.Path, error) {
	if pointCount < 2 {
		return nil, fmt.Errorf("%w: point count %d, need at least 2", core.ErrInvalidArgument, pointCount)
	}

	control := g.controlPoint(start)

	path := make(core.Path, pointCount)
	for i := 0; i < pointCount; i++ {
		t := float64(i) / float64(pointCount-1)
		p := quadraticBezier(start, control, end, t)
		path[i] = core.Point{X: math.Trunc(p.X), Y: math.Trunc(p.Y)}
	}

	return path, nil
}

// controlPoint offsets start by independent integers in [-offset, offset]
func (g *PathGenerator) controlPoint(start core.Point) core.Point {
	return core.Point{
		X: start.X + float64(g.rng.UniformInt(-g.controlOffset, g.controlOffset)),
		Y: start.Y + float64(g.rng.UniformInt(-g.controlOffset, g.controlOffset)),
	}
}

// quadraticBezier evaluates B(t) = (1-t)²P₀ + 2(1-t)tP₁ + t²P₂
func quadraticBezier(p0, p1, p2 core.Point, t float64) core.Point {
	mt := 1 - t
	a := mt * mt
	b := 2 * mt * t
	c := t * t

	return core.Point{
		X: a*p0.X + b*p1.X + c*p2.X,
		Y: a*p0.Y + b*p1.Y + c*p2.Y,
	}
}
