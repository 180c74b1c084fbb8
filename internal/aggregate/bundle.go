package aggregate

import (
	"time"

	"github.com/okian/xpboard/internal/domain/model"
	"github.com/okian/xpboard/pkg/metrics"
)

// Bundle carries one full aggregation pass, the shape delivered to the
// rendering layer.
type Bundle struct {
	Leaderboard   []LeaderboardEntry           `json:"leaderboard"`
	TimeSeries    map[string][]TimeSeriesPoint `json:"time_series"`
	Breakdown     map[string]*BreakdownEntry   `json:"breakdown"`
	Quality       map[string]*QualitySummary   `json:"quality"`
	ReviewMetrics map[string]*ReviewSummary    `json:"review_metrics"`
	GeneratedAt   time.Time                    `json:"generated_at"`
}

// Compute runs all five engines over the canonical structure.
func Compute(data model.RunData) *Bundle {
	start := time.Now()
	defer func() {
		metrics.RecordAggregateLatency(float64(time.Since(start).Milliseconds()))
	}()

	return &Bundle{
		Leaderboard:   Leaderboard(data),
		TimeSeries:    TimeSeries(data),
		Breakdown:     Breakdown(data),
		Quality:       Quality(data),
		ReviewMetrics: ReviewMetrics(data),
		GeneratedAt:   time.Now().UTC(),
	}
}

// Empty returns a zeroed bundle for the never-loaded state.
func Empty() *Bundle {
	return &Bundle{
		Leaderboard:   []LeaderboardEntry{},
		TimeSeries:    map[string][]TimeSeriesPoint{},
		Breakdown:     map[string]*BreakdownEntry{},
		Quality:       map[string]*QualitySummary{},
		ReviewMetrics: map[string]*ReviewSummary{},
		GeneratedAt:   time.Now().UTC(),
	}
}
