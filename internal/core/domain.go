package core

import (
	"fmt"
	"math"
	"time"
)

// Point is a planar coordinate. There is no bounds checking against the screen;
// callers keep targets on-screen.
type Point struct {
	X, Y float64
}

// Distance returns the Euclidean distance between p and q
func (p Point) Distance(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Path is an ordered start-to-end sequence of points for a single motion
type Path []Point

// IntRange is a closed integer interval sampled uniformly
type IntRange struct {
	Min int `mapstructure:"min"`
	Max int `mapstructure:"max"`
}

// Validate reports ErrInvalidArgument when Min > Max
func (r IntRange) Validate() error {
	if r.Min > r.Max {
		return fmt.Errorf("%w: range min %d > max %d", ErrInvalidArgument, r.Min, r.Max)
	}
	return nil
}

// FloatRange is a closed float interval sampled uniformly
type FloatRange struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// Validate reports ErrInvalidArgument when Min > Max or either bound is NaN
func (r FloatRange) Validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) {
		return fmt.Errorf("%w: range bound is NaN", ErrInvalidArgument)
	}
	if math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
		return fmt.Errorf("%w: range bound is infinite", ErrInvalidArgument)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%w: range min %g > max %g", ErrInvalidArgument, r.Min, r.Max)
	}
	return nil
}

// Target is an interactable element found by a page scan
type Target struct {
	Index  int    `json:"index"`
	Key    string `json:"key"`   // Stable identity used to avoid repeat interactions
	Label  string `json:"label"` // Visible text, for logging only
	Center Point  `json:"center"`
}

// Run statuses
const (
	RunStatusRunning   = "Running"
	RunStatusCompleted = "Completed"
	RunStatusFailed    = "Failed"
)

// SessionRun represents one engagement session in the database
type SessionRun struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	URL         string     `gorm:"index" json:"url"`
	Status      string     `gorm:"index;not null" json:"status"`
	TargetCount int        `json:"target_count"` // Interactions drawn for the run
	Completed   int        `json:"completed"`
	Error       string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt   time.Time  `gorm:"index;not null" json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Interaction represents a single click performed during a run
type Interaction struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RunID      uint      `gorm:"index;not null" json:"run_id"`
	TargetKey  string    `gorm:"index" json:"target_key"`
	Label      string    `json:"label"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	PathPoints int       `json:"path_points"`
	Timestamp  time.Time `gorm:"index;not null" json:"timestamp"`
}

// MotionConfig holds pointer path and speed parameters
type MotionConfig struct {
	PointCount    int     `mapstructure:"point_count"`    // Points per path, >= 2
	ControlOffset int     `mapstructure:"control_offset"` // Max control point offset in px
	BaseSpeed     float64 `mapstructure:"base_speed"`     // Seconds per px^0.75
	JitterMin     float64 `mapstructure:"jitter_min"`
	JitterMax     float64 `mapstructure:"jitter_max"`
}

// PacingConfig holds the randomized ranges that drive a session
type PacingConfig struct {
	BrowseScrolls   IntRange   `mapstructure:"browse_scrolls"`
	ThreadScrolls   IntRange   `mapstructure:"thread_scrolls"` // Scrolls after opening a random link
	BatchScrolls    IntRange   `mapstructure:"batch_scrolls"`
	Interactions    IntRange   `mapstructure:"interactions"`
	SkipInterval    IntRange   `mapstructure:"skip_interval"`
	ScrollAmount    int        `mapstructure:"scroll_amount"` // Pixels per scroll
	ScrollChunk     IntRange   `mapstructure:"scroll_chunk"`
	ScrollPause     FloatRange `mapstructure:"scroll_pause"` // Seconds after each scroll
	ScrollDelay     float64    `mapstructure:"scroll_delay"` // Fixed seconds between scrolls
	SettleDelay     FloatRange `mapstructure:"settle_delay"` // Seconds after navigation
	AfterClick      FloatRange `mapstructure:"after_click"`  // Seconds after an interaction
	RescanDelay     FloatRange `mapstructure:"rescan_delay"` // Seconds before rescanning an empty page
	MaxScanAttempts int        `mapstructure:"max_scan_attempts"`
	MaxBatches      int        `mapstructure:"max_batches"`
}

// BrowserConfig holds browser attachment settings
type BrowserConfig struct {
	DebuggerAddress string `mapstructure:"debugger_address"` // Attach to an existing browser when set
	Headless        bool   `mapstructure:"headless"`
	ViewportWidth   int    `mapstructure:"viewport_width"`
	ViewportHeight  int    `mapstructure:"viewport_height"`
	ElementTimeout  int    `mapstructure:"element_timeout"` // Seconds to wait for a selector; 0 disables
}

// SessionConfig holds what the session targets
type SessionConfig struct {
	URL            string `mapstructure:"url"`
	TargetSelector string `mapstructure:"target_selector"` // CSS, or XPath when prefixed with "//"
	LinkSelector   string `mapstructure:"link_selector"`   // Links to pick a random page from; empty stays on URL
}

// Config represents the application configuration
type Config struct {
	Motion  MotionConfig  `mapstructure:"motion"`
	Pacing  PacingConfig  `mapstructure:"pacing"`
	Browser BrowserConfig `mapstructure:"browser"`
	Session SessionConfig `mapstructure:"session"`

	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
}
