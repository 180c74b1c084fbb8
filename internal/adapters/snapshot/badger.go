package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/okian/xpboard/pkg/logger"
	"github.com/okian/xpboard/pkg/metrics"
)

// Key prefixes inside the badger keyspace.
const (
	runKeyPrefix  = "run/"
	metaKeyPrefix = "meta/"
)

// BadgerStore implements Store on a local badger database.
type BadgerStore struct {
	db     *badger.DB
	logger logger.Logger
}

// BadgerOption applies a configuration option to the BadgerStore.
type BadgerOption func(*BadgerStore)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) BadgerOption {
	return func(s *BadgerStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewBadgerStore opens (or creates) the snapshot database at path.
func NewBadgerStore(path string, opts ...BadgerOption) (*BadgerStore, error) {
	dbOpts := badger.DefaultOptions(path)
	dbOpts.Logger = nil      // badger's internal logging is too chatty
	dbOpts.SyncWrites = true // snapshots must survive a crash

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", ErrStoreUnavailable, path, err)
	}

	s := &BadgerStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("snapshot")
	}
	s.logger.Info(context.Background(), "snapshot store opened", logger.String("path", path))
	return s, nil
}

// Get returns the stored snapshot bytes for a run.
func (s *BadgerStore) Get(ctx context.Context, runID string) ([]byte, bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordSnapshotGetLatency(float64(time.Since(start).Milliseconds()))
	}()

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(runKeyPrefix + runID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		metrics.RecordSnapshotError("get")
		return nil, false, fmt.Errorf("%w: get run %q: %v", ErrStoreUnavailable, runID, err)
	}
	return data, true, nil
}

// Put replaces the snapshot for a run and records the write time.
func (s *BadgerStore) Put(ctx context.Context, runID string, data []byte) error {
	start := time.Now()
	defer func() {
		metrics.RecordSnapshotPutLatency(float64(time.Since(start).Milliseconds()))
	}()

	storedAt := time.Now().UTC().Format(time.RFC3339)
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(runKeyPrefix+runID), data); err != nil {
			return err
		}
		return txn.Set([]byte(metaKeyPrefix+runID), []byte(storedAt))
	})
	if err != nil {
		metrics.RecordSnapshotError("put")
		return fmt.Errorf("%w: put run %q: %v", ErrStoreUnavailable, runID, err)
	}
	s.logger.Debug(ctx, "snapshot stored",
		logger.String("run", runID),
		logger.Int("bytes", len(data)),
	)
	return nil
}

// StoredAt returns when the run's snapshot was last written.
func (s *BadgerStore) StoredAt(ctx context.Context, runID string) (time.Time, bool, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaKeyPrefix + runID))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: meta for run %q: %v", ErrStoreUnavailable, runID, err)
	}
	ts, err := time.Parse(time.RFC3339, string(raw))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: meta for run %q: %v", ErrStoreUnavailable, runID, err)
	}
	return ts, true, nil
}

// Close releases the badger database.
func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close snapshot store: %w", err)
	}
	return nil
}
