package core

import (
	"context"
	"time"
)

// RandomSource is the only source of randomness used by path and pacing code
type RandomSource interface {
	// UniformInt returns an integer in [min, max], both inclusive
	UniformInt(min, max int) int

	// UniformFloat returns a float in [min, max]
	UniformFloat(min, max float64) float64
}

// PointerDevice abstracts the single pointer a session moves
type PointerDevice interface {
	// Position returns the current pointer position
	Position() (Point, error)

	// SetPosition moves the pointer to p in one step
	SetPosition(ctx context.Context, p Point) error
}

// Sleeper blocks for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// BrowserPort defines the browser operations a session needs
type BrowserPort interface {
	// Initialize attaches to or launches the browser
	Initialize(ctx context.Context) error

	// Navigate loads a URL and waits for the page
	Navigate(ctx context.Context, url string) error

	// ScrollBy scrolls the page vertically by distance pixels in eased chunks
	ScrollBy(ctx context.Context, distance int) error

	// FindTargets returns visible elements matching selector
	FindTargets(ctx context.Context, selector string) ([]Target, error)

	// FindLinks returns the absolute href of every element matching selector
	FindLinks(ctx context.Context, selector string) ([]string, error)

	// Click presses and releases the primary button at p
	Click(ctx context.Context, p Point) error

	// Close releases the browser connection
	Close(ctx context.Context) error
}

// RepositoryPort defines the interface for session persistence
type RepositoryPort interface {
	// Run operations
	CreateRun(ctx context.Context, run *SessionRun) error
	FinishRun(ctx context.Context, runID uint, completed int, runErr error) error
	RecentRuns(ctx context.Context, limit int) ([]*SessionRun, error)

	// Interaction operations
	RecordInteraction(ctx context.Context, interaction *Interaction) error
	CountInteractionsSince(ctx context.Context, since time.Time) (int64, error)
	InteractionsForRun(ctx context.Context, runID uint) ([]*Interaction, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
