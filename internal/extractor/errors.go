package extractor

import (
	"errors"
	"fmt"
)

// Sentinel kinds for extraction errors.
var (
	ErrInvalidContainer = errors.New("invalid archive container")
	ErrMissingEntry     = errors.New("payload entry not found in archive")
	ErrMalformedPayload = errors.New("malformed payload")
)

// MissingEntryError reports the entry names that were present so callers can
// see what the archive actually contained.
type MissingEntryError struct {
	Want    string
	Entries []string
}

func (e *MissingEntryError) Error() string {
	return fmt.Sprintf("payload entry %q not found in archive; entries found: %v", e.Want, e.Entries)
}

// Unwrap allows errors.Is(err, ErrMissingEntry).
func (e *MissingEntryError) Unwrap() error { return ErrMissingEntry }
