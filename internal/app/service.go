// Package app provides the cache-first load orchestrator that coordinates
// the snapshot store, the artifact source and the aggregation engines.
package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/okian/xpboard/internal/adapters/artifact"
	"github.com/okian/xpboard/internal/adapters/snapshot"
	"github.com/okian/xpboard/internal/aggregate"
	"github.com/okian/xpboard/internal/domain/model"
	"github.com/okian/xpboard/internal/extractor"
	"github.com/okian/xpboard/internal/transform"
	"github.com/okian/xpboard/pkg/logger"
	"github.com/okian/xpboard/pkg/metrics"
)

const (
	defaultRefreshBuffer = 16
	stopTimeout          = 30 * time.Second
)

// Source abstracts the remote artifact collaborator.
type Source interface {
	List(ctx context.Context, runID string) ([]artifact.Artifact, error)
	Download(ctx context.Context, url string, progress artifact.ProgressFunc) ([]byte, error)
}

// Service is the load orchestrator. One Service owns its refresh handles;
// there is no process-wide shared worker.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	store       snapshot.Store
	source      Source
	extractor   *extractor.Extractor
	transformer *transform.Transformer

	// In-flight refresh coordination, keyed by run ID.
	flight singleflight.Group
	hubs   *hubSet

	// State
	started     bool
	baseCtx     context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	inflight    int
	lastRefresh map[string]time.Time

	// Configuration
	buffer int

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the snapshot store.
func WithStore(store snapshot.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSource sets the artifact source.
func WithSource(source Source) Option {
	return func(s *Service) {
		if source != nil {
			s.source = source
		}
	}
}

// WithExtractor sets the archive extractor.
func WithExtractor(e *extractor.Extractor) Option {
	return func(s *Service) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithTransformer sets the payload transformer.
func WithTransformer(t *transform.Transformer) Option {
	return func(s *Service) {
		if t != nil {
			s.transformer = t
		}
	}
}

// WithRefreshBuffer sizes each load request's message channel.
func WithRefreshBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.buffer = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		buffer:      defaultRefreshBuffer,
		hubs:        newHubSet(),
		lastRefresh: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("orchestrator")
	}
	if s.store == nil {
		s.store = snapshot.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory snapshot store")
	}
	if s.extractor == nil {
		s.extractor = extractor.New()
	}
	if s.transformer == nil {
		s.transformer = transform.New()
	}
	if s.source == nil {
		return ErrNoSource
	}

	// Refreshes outlive individual load requests; they run under the
	// service lifetime context, not the caller's.
	s.baseCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.started = true
	s.logger.Info(ctx, "orchestrator started",
		logger.String("validation_mode", s.transformer.Mode().String()),
	)
	return nil
}

// Stop waits for in-flight refreshes and releases the snapshot store.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopTimeout):
		s.logger.Warn(context.Background(), "stop timed out waiting for refreshes")
	}

	s.cancel()
	if err := s.store.Close(); err != nil {
		s.logger.Error(context.Background(), "closing snapshot store", logger.Error(err))
	}
	s.logger.Info(context.Background(), "orchestrator stopped")
}

// Load satisfies one "load analytics for run" request. The returned channel
// first carries the cached (or empty) result, then refresh progress, then
// exactly one terminal result or failure, and is closed afterwards.
func (s *Service) Load(ctx context.Context, runID string) (<-chan Message, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	metrics.RecordLoadStarted()
	reqID := uuid.NewString()
	ch := make(chan Message, s.buffer)

	// Serve the snapshot before any network work so the caller can render
	// immediately.
	first := s.cachedResult(ctx, runID)
	first.RequestID = reqID
	ch <- first

	s.wg.Add(1)
	go s.runLoad(reqID, runID, ch)

	return ch, nil
}

// cachedResult builds the immediate delivery from the snapshot store. Any
// store or decode trouble degrades to the empty result; the refresh that
// follows is the authoritative path.
func (s *Service) cachedResult(ctx context.Context, runID string) Message {
	raw, ok, err := s.store.Get(ctx, runID)
	if err != nil {
		s.logger.Warn(ctx, "snapshot read failed", logger.String("run", runID), logger.Error(err))
		ok = false
	}
	if ok {
		var data model.RunData
		if err := json.Unmarshal(raw, &data); err != nil {
			s.logger.Warn(ctx, "cached snapshot undecodable", logger.String("run", runID), logger.Error(err))
			ok = false
		} else {
			metrics.RecordCacheHit()
			return Message{
				Kind:   KindResult,
				RunID:  runID,
				Result: &Result{Bundle: aggregate.Compute(data), FromCache: true},
			}
		}
	}
	metrics.RecordCacheMiss()
	return Message{
		Kind:   KindResult,
		RunID:  runID,
		Result: &Result{Bundle: aggregate.Empty(), FromCache: false, Empty: true},
	}
}

// GetStats returns orchestrator statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	last := make(map[string]string, len(s.lastRefresh))
	for runID, ts := range s.lastRefresh {
		last[runID] = ts.UTC().Format(time.RFC3339)
	}
	stats := map[string]interface{}{
		"started":         s.started,
		"inflight":        s.inflight,
		"runs_refreshed":  len(s.lastRefresh),
		"last_refresh":    last,
		"validation_mode": s.transformerMode(),
	}

	if ager, ok := s.store.(snapshot.Ager); ok {
		ages := make(map[string]string, len(s.lastRefresh))
		for runID := range s.lastRefresh {
			if ts, found, err := ager.StoredAt(context.Background(), runID); err == nil && found {
				ages[runID] = ts.UTC().Format(time.RFC3339)
			}
		}
		stats["snapshot_stored_at"] = ages
	}
	return stats
}

func (s *Service) transformerMode() string {
	if s.transformer == nil {
		return transform.Lenient.String()
	}
	return s.transformer.Mode().String()
}
