package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/storage"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
// It also backs the joined lifecycle reads, so it holds references to
// the sibling execution and outcome stores.
type SignalStore struct {
	mu      sync.RWMutex
	data    map[string]*domain.Signal // keyed by signal_id
	natural map[string]string         // (ts|symbol|timeframe) -> signal_id

	execs    *ExecutionStore
	outcomes *OutcomeStore
}

// NewSignalStore creates a new in-memory signal store joined to the
// given execution and outcome stores.
func NewSignalStore(execs *ExecutionStore, outcomes *OutcomeStore) *SignalStore {
	return &SignalStore{
		data:     make(map[string]*domain.Signal),
		natural:  make(map[string]string),
		execs:    execs,
		outcomes: outcomes,
	}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

// Insert adds a new signal. A duplicate natural key is an idempotent
// no-op reported as (false, nil).
func (s *SignalStore) Insert(_ context.Context, sig *domain.Signal) (bool, error) {
	if sig == nil || sig.SignalID == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := naturalKey(sig.TimestampMs, sig.Symbol, sig.Timeframe)
	if _, exists := s.natural[key]; exists {
		return false, nil
	}
	if _, exists := s.data[sig.SignalID]; exists {
		return false, nil
	}

	copy := *sig
	s.data[sig.SignalID] = &copy
	s.natural[key] = sig.SignalID
	return true, nil
}

// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(_ context.Context, signalID string) (*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sig, exists := s.data[signalID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *sig
	return &copy, nil
}

// GetBySymbol retrieves signals for a symbol/timeframe within [start, end].
func (s *SignalStore) GetBySymbol(_ context.Context, symbol, timeframe string, start, end int64) ([]*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Signal
	for _, sig := range s.data {
		if sig.Symbol != symbol || sig.Timeframe != timeframe {
			continue
		}
		if sig.TimestampMs < start || sig.TimestampMs > end {
			continue
		}
		copy := *sig
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}

// GetRows retrieves joined signal+execution+outcome rows within
// [start, end]. Empty symbol matches all symbols.
func (s *SignalStore) GetRows(ctx context.Context, symbol string, start, end int64) ([]*domain.LifecycleRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LifecycleRow
	for _, sig := range s.data {
		if symbol != "" && sig.Symbol != symbol {
			continue
		}
		if sig.TimestampMs < start || sig.TimestampMs > end {
			continue
		}
		result = append(result, s.joinLocked(ctx, sig))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Signal.TimestampMs < result[j].Signal.TimestampMs
	})
	return result, nil
}

// GetOpenPositions retrieves rows with an execution but no outcome and
// a non-HOLD label.
func (s *SignalStore) GetOpenPositions(ctx context.Context) ([]*domain.LifecycleRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LifecycleRow
	for _, sig := range s.data {
		if sig.Label == domain.LabelHold {
			continue
		}
		row := s.joinLocked(ctx, sig)
		if !row.Open() {
			continue
		}
		result = append(result, row)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Signal.TimestampMs < result[j].Signal.TimestampMs
	})
	return result, nil
}

// PurgeOlderThan deletes signals created before cutoff along with
// their executions and outcomes.
func (s *SignalStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoffMs := cutoff.UnixMilli()
	var removed int64
	for id, sig := range s.data {
		if sig.TimestampMs >= cutoffMs {
			continue
		}
		delete(s.data, id)
		delete(s.natural, naturalKey(sig.TimestampMs, sig.Symbol, sig.Timeframe))
		s.execs.delete(id)
		s.outcomes.delete(id)
		removed++
	}
	return removed, nil
}

func (s *SignalStore) joinLocked(ctx context.Context, sig *domain.Signal) *domain.LifecycleRow {
	row := &domain.LifecycleRow{Signal: *sig}
	if exec, err := s.execs.GetBySignalID(ctx, sig.SignalID); err == nil {
		row.Execution = exec
	}
	if out, err := s.outcomes.GetBySignalID(ctx, sig.SignalID); err == nil {
		row.Outcome = out
	}
	return row
}

func naturalKey(ts int64, symbol, timeframe string) string {
	return fmt.Sprintf("%d|%s|%s", ts, symbol, timeframe)
}
