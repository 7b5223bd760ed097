package domain

import "errors"

// Error kinds for failures that occur before any process is spawned.
// Subprocess failures are never errors; they surface as unsuccessful outcomes
// carrying the diagnostics parsed from the tool's own output.
var (
	// ErrInvalidParameter marks an unrecognized mode/compiler string or an
	// out-of-range field in a request.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrToolNotFound marks a required binary that could not be resolved
	// on PATH.
	ErrToolNotFound = errors.New("tool not found")
)
