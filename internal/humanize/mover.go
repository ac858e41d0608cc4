package humanize

import (
	"context"
	"fmt"

	"session-pacer/internal/core"
	"session-pacer/pkg/utils"

	"go.uber.org/zap"
)

// Mover replays generated paths through a PointerDevice
type Mover struct {
	device     core.PointerDevice
	paths      *PathGenerator
	pacing     *Scheduler
	pointCount int
	baseSpeed  float64
	logger     *zap.Logger
}

// NewMover creates a Mover for device
func NewMover(device core.PointerDevice, paths *PathGenerator, pacing *Scheduler, pointCount int, baseSpeed float64, logger *zap.Logger) *Mover {
	if pointCount == 0 {
		pointCount = DefaultPointCount
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mover{
		device:     device,
		paths:      paths,
		pacing:     pacing,
		pointCount: pointCount,
		baseSpeed:  baseSpeed,
		logger:     logger,
	}
}

// MoveTo moves the pointer from its current position to target along a fresh
// Bézier path. Each step waits StepDelay for the distance it covers before the
// pointer is set. The traversed path is returned.
func (m *Mover) MoveTo(ctx context.Context, target core.Point) (core.Path, error) {
	start, err := m.device.Position()
	if err != nil {
		return nil, fmt.Errorf("failed to read pointer position: %w", err)
	}

	path, err := m.paths.Generate(start, target, m.pointCount)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Moving pointer",
		zap.Float64("from_x", start.X),
		zap.Float64("from_y", start.Y),
		zap.Float64("to_x", target.X),
		zap.Float64("to_y", target.Y),
		zap.Int("points", len(path)),
	)

	current := start
	for _, p := range path {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		delay := m.pacing.StepDelay(current.Distance(p), m.baseSpeed)
		if delay > 0 {
			if err := m.pacing.Sleep(ctx, utils.Seconds(delay)); err != nil {
				return nil, err
			}
		}

		if err := m.device.SetPosition(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to set pointer position: %w", err)
		}
		current = p
	}

	return path, nil
}
