package core

import "errors"

var (
	// ErrInvalidArgument is returned for malformed ranges and degenerate point counts
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTargetsExhausted is returned when repeated scans find nothing to interact with
	ErrTargetsExhausted = errors.New("no targets found after maximum scan attempts")

	// ErrNotInitialized is returned by browser operations before Initialize
	ErrNotInitialized = errors.New("browser not initialized")
)
