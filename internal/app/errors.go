package app

import "errors"

// Sentinel kinds for orchestrator errors.
var (
	ErrNotStarted = errors.New("orchestrator not started")
	ErrNoSource   = errors.New("no artifact source configured")
)
