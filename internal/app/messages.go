package app

import (
	"github.com/okian/xpboard/internal/aggregate"
	"github.com/okian/xpboard/internal/transform"
)

// Phase names one stage of the refresh pipeline.
type Phase string

// Refresh phases in execution order.
const (
	PhaseFetch     Phase = "fetch"
	PhaseExtract   Phase = "extract"
	PhaseTransform Phase = "transform"
	PhasePersist   Phase = "persist"
	PhaseAggregate Phase = "aggregate"
)

// Kind discriminates the message variants a load request can receive.
type Kind int

// Message kinds. A request sees zero or more Progress messages followed by
// exactly one terminal Failure or Result; results from the snapshot cache
// may precede them.
const (
	KindProgress Kind = iota
	KindFailure
	KindResult
)

// Progress reports refresh advancement. Percent is non-decreasing within a
// phase.
type Progress struct {
	Phase   Phase   `json:"phase"`
	Percent float64 `json:"percent"`
	Detail  string  `json:"detail,omitempty"`
}

// Result delivers one aggregation pass.
type Result struct {
	Bundle *aggregate.Bundle `json:"bundle"`

	// FromCache marks the immediate delivery served from the snapshot store.
	FromCache bool `json:"from_cache"`

	// Empty marks the zeroed delivery of a never-loaded run.
	Empty bool `json:"empty"`

	// Report carries lenient-mode validation diagnostics, if any.
	Report *transform.Report `json:"-"`
}

// Message is one update delivered to a load request.
type Message struct {
	Kind      Kind
	RequestID string
	RunID     string

	Progress *Progress // set when Kind == KindProgress
	Err      error     // set when Kind == KindFailure
	Result   *Result   // set when Kind == KindResult
}
