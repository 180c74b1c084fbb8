// Package snapshot persists the canonical structure per run identifier.
//
// Writes are whole-value replacements keyed by run ID; there is no merge
// path, so a reader either sees the previous snapshot or the new one.
package snapshot

import (
	"context"
	"errors"
	"time"
)

// Sentinel kinds for snapshot store errors.
var (
	ErrStoreUnavailable = errors.New("snapshot store unavailable")
	ErrStoreClosed      = errors.New("snapshot store closed")
)

// Store is the minimal persistence contract the orchestrator relies on.
type Store interface {
	// Get returns the stored snapshot bytes for a run, with ok=false when
	// no snapshot exists.
	Get(ctx context.Context, runID string) ([]byte, bool, error)

	// Put replaces the snapshot for a run.
	Put(ctx context.Context, runID string, data []byte) error

	// Close releases the underlying resources.
	Close() error
}

// Ager is an optional extension reporting when a run's snapshot was written.
// Implementations that track write times expose it for the stats surface.
type Ager interface {
	StoredAt(ctx context.Context, runID string) (time.Time, bool, error)
}
