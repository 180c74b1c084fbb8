package transform

import "errors"

// Sentinel kinds for validation errors. Each report class unwraps to one of
// these so callers can use errors.Is across the taxonomy.
var (
	ErrMalformedEntry        = errors.New("malformed artifact entry")
	ErrMissingContributorID  = errors.New("missing contributor id")
	ErrInvalidTimestamp      = errors.New("invalid timestamp")
	ErrMissingReward         = errors.New("missing reward")
	ErrValidationFailed      = errors.New("validation failed")
	ErrUnknownValidationMode = errors.New("unknown validation mode")
)
