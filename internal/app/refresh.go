package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/okian/xpboard/internal/adapters/artifact"
	"github.com/okian/xpboard/internal/aggregate"
	"github.com/okian/xpboard/internal/domain/model"
	"github.com/okian/xpboard/internal/transform"
	"github.com/okian/xpboard/pkg/logger"
	"github.com/okian/xpboard/pkg/metrics"
)

// runLoad joins the per-run refresh, forwards its progress to this request's
// channel, and delivers the terminal message. Concurrent loads for the same
// run share one refresh through the singleflight group; different runs
// refresh independently.
func (s *Service) runLoad(reqID, runID string, ch chan Message) {
	defer s.wg.Done()
	defer close(ch)

	sub := s.hubs.subscribe(runID, reqID, ch)
	v, err, _ := s.flight.Do(runID, func() (interface{}, error) {
		return s.refreshRun(s.baseCtx, runID)
	})
	s.hubs.unsubscribe(runID, sub)

	if err != nil {
		ch <- Message{Kind: KindFailure, RequestID: reqID, RunID: runID, Err: err}
		return
	}

	res := v.(*refreshOutcome)
	bundle := aggregate.Compute(res.data)
	ch <- Message{
		Kind:      KindResult,
		RequestID: reqID,
		RunID:     runID,
		Result:    &Result{Bundle: bundle, Report: res.report},
	}
	metrics.RecordLoadCompleted()
}

// refreshOutcome is what one shared refresh produces.
type refreshOutcome struct {
	data   model.RunData
	report *transform.Report
}

// refreshRun executes the download -> extract -> transform -> persist
// pipeline for one run. The snapshot write happens before the outcome is
// returned, so every follower aggregates data a subsequent load will also
// see. A failure at any phase leaves the previously cached snapshot intact.
func (s *Service) refreshRun(ctx context.Context, runID string) (*refreshOutcome, error) {
	s.trackRefresh(1)
	defer s.trackRefresh(-1)

	s.logger.Info(ctx, "refresh started", logger.String("run", runID))

	// Fetch.
	fetchStart := time.Now()
	data, err := s.fetchArtifact(ctx, runID)
	metrics.RecordFetchLatency(float64(time.Since(fetchStart).Milliseconds()))
	if err != nil {
		metrics.RecordRefreshFailure(string(PhaseFetch))
		return nil, err
	}

	// Extract.
	s.hubs.publish(runID, Progress{Phase: PhaseExtract, Percent: 0})
	extractStart := time.Now()
	entries, err := s.extractor.Extract(data)
	metrics.RecordExtractLatency(float64(time.Since(extractStart).Milliseconds()))
	if err != nil {
		metrics.RecordRefreshFailure(string(PhaseExtract))
		return nil, fmt.Errorf("extract run %q: %w", runID, err)
	}
	s.hubs.publish(runID, Progress{Phase: PhaseExtract, Percent: 100})

	// Transform.
	s.hubs.publish(runID, Progress{Phase: PhaseTransform, Percent: 0})
	transformStart := time.Now()
	runData, report, err := s.transformer.Transform(ctx, runID, entries)
	metrics.RecordTransformLatency(float64(time.Since(transformStart).Milliseconds()))
	if err != nil {
		metrics.RecordRefreshFailure(string(PhaseTransform))
		return nil, fmt.Errorf("transform run %q: %w", runID, err)
	}
	s.hubs.publish(runID, Progress{Phase: PhaseTransform, Percent: 100})

	// Persist before anyone aggregates, so a subsequent load sees the
	// fresh snapshot.
	s.hubs.publish(runID, Progress{Phase: PhasePersist, Percent: 0})
	raw, err := json.Marshal(runData)
	if err != nil {
		metrics.RecordRefreshFailure(string(PhasePersist))
		return nil, fmt.Errorf("encode snapshot for run %q: %w", runID, err)
	}
	if err := s.store.Put(ctx, runID, raw); err != nil {
		metrics.RecordRefreshFailure(string(PhasePersist))
		return nil, fmt.Errorf("persist run %q: %w", runID, err)
	}
	s.hubs.publish(runID, Progress{Phase: PhasePersist, Percent: 100})

	s.mu.Lock()
	s.lastRefresh[runID] = time.Now()
	s.mu.Unlock()

	s.logger.Info(ctx, "refresh completed",
		logger.String("run", runID),
		logger.Int("repos", len(runData)),
		logger.Int("violations", report.Total()),
	)
	return &refreshOutcome{data: runData, report: report}, nil
}

// fetchArtifact lists the run's artifacts, picks the reward container and
// downloads it, publishing fetch progress.
func (s *Service) fetchArtifact(ctx context.Context, runID string) ([]byte, error) {
	s.hubs.publish(runID, Progress{Phase: PhaseFetch, Percent: 0, Detail: "listing artifacts"})

	artifacts, err := s.source.List(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts for run %q: %w", runID, err)
	}
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("run %q: %w", runID, artifact.ErrNoArtifacts)
	}

	chosen := pickArtifact(artifacts)
	s.hubs.publish(runID, Progress{Phase: PhaseFetch, Percent: 0, Detail: "downloading " + chosen.Name})

	data, err := s.source.Download(ctx, chosen.URL, func(pct float64) {
		s.hubs.publish(runID, Progress{Phase: PhaseFetch, Percent: pct, Detail: chosen.Name})
	})
	if err != nil {
		return nil, fmt.Errorf("download %q for run %q: %w", chosen.Name, runID, err)
	}
	return data, nil
}

// pickArtifact prefers the first zip container, else the first artifact.
func pickArtifact(artifacts []artifact.Artifact) artifact.Artifact {
	for _, a := range artifacts {
		if strings.HasSuffix(strings.ToLower(a.Name), ".zip") {
			return a
		}
	}
	return artifacts[0]
}

// trackRefresh keeps the in-flight gauge and stats counter in step.
func (s *Service) trackRefresh(delta int) {
	s.mu.Lock()
	s.inflight += delta
	n := s.inflight
	s.mu.Unlock()
	metrics.UpdateInflightRefreshes(n)
}
