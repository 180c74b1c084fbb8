package artifact

import "errors"

// Sentinel kinds for artifact source errors.
var (
	ErrFetchFailed = errors.New("artifact fetch failed")
	ErrNoArtifacts = errors.New("run has no artifacts")
)
