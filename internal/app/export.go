package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/okian/xpboard/internal/aggregate"
	"github.com/okian/xpboard/internal/domain/model"
)

// ExportRows flattens a run's canonical structure for tabular export. A
// cached snapshot is used directly; otherwise a full load runs first so the
// export never fabricates an empty file for a run that merely was not
// cached yet.
func (s *Service) ExportRows(ctx context.Context, runID string) ([]aggregate.Row, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	raw, ok, err := s.store.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := s.loadAndWait(ctx, runID); err != nil {
			return nil, err
		}
		raw, ok, err = s.store.Get(ctx, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("run %q: snapshot missing after refresh", runID)
		}
	}

	var data model.RunData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode snapshot for run %q: %w", runID, err)
	}
	return aggregate.Flatten(runID, data), nil
}

// loadAndWait runs a load to its terminal message.
func (s *Service) loadAndWait(ctx context.Context, runID string) error {
	msgs, err := s.Load(ctx, runID)
	if err != nil {
		return err
	}
	var terminal error
	for msg := range msgs {
		switch msg.Kind {
		case KindFailure:
			terminal = msg.Err
		case KindResult, KindProgress:
			// The persisted snapshot is what ExportRows reads; the bundle
			// itself is not needed here.
		}
	}
	return terminal
}
