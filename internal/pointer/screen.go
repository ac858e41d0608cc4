// Package pointer provides a PointerDevice for the system cursor.
package pointer

import (
	"context"
	"math"

	"session-pacer/internal/core"

	"github.com/go-vgo/robotgo"
)

// Screen drives the OS cursor through robotgo. Coordinates are screen pixels.
type Screen struct {
	displayID int
}

// NewScreen creates a Screen device for the given display. A negative id
// selects the main display.
func NewScreen(displayID int) *Screen {
	return &Screen{displayID: displayID}
}

// Position returns the current cursor location
func (s *Screen) Position() (core.Point, error) {
	x, y := robotgo.Location()
	return core.Point{X: float64(x), Y: float64(y)}, nil
}

// SetPosition warps the cursor to p
func (s *Screen) SetPosition(ctx context.Context, p core.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	x, y := int(math.Round(p.X)), int(math.Round(p.Y))
	if s.displayID >= 0 {
		robotgo.Move(x, y, s.displayID)
	} else {
		robotgo.Move(x, y)
	}
	return nil
}

// Bounds returns the main screen size, for clamping targets before a move
func (s *Screen) Bounds() (width, height int) {
	return robotgo.GetScreenSize()
}

// Clamp keeps p inside the screen bounds
func (s *Screen) Clamp(p core.Point) core.Point {
	w, h := s.Bounds()
	return core.Point{
		X: math.Max(0, math.Min(p.X, float64(w-1))),
		Y: math.Max(0, math.Min(p.Y, float64(h-1))),
	}
}
