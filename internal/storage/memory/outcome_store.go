package memory

import (
	"context"
	"sort"
	"sync"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/storage"
)

// OutcomeStore is an in-memory implementation of storage.OutcomeStore.
type OutcomeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Outcome // keyed by signal_id
}

// NewOutcomeStore creates a new in-memory outcome store.
func NewOutcomeStore() *OutcomeStore {
	return &OutcomeStore{
		data: make(map[string]*domain.Outcome),
	}
}

// Compile-time interface check.
var _ storage.OutcomeStore = (*OutcomeStore)(nil)

// Insert adds the outcome for a signal. Returns ErrDuplicateKey if the
// signal is already closed.
func (s *OutcomeStore) Insert(_ context.Context, o *domain.Outcome) error {
	if o == nil || o.SignalID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[o.SignalID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *o
	s.data[o.SignalID] = &copy
	return nil
}

// GetBySignalID retrieves the outcome for a signal. Returns
// ErrNotFound if not exists.
func (s *OutcomeStore) GetBySignalID(_ context.Context, signalID string) (*domain.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, exists := s.data[signalID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *o
	return &copy, nil
}

// GetClosedSince retrieves outcomes with exit_ts >= since, ordered by
// exit_ts ASC.
func (s *OutcomeStore) GetClosedSince(_ context.Context, since int64) ([]*domain.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Outcome
	for _, o := range s.data {
		if o.ExitTsMs < since {
			continue
		}
		copy := *o
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ExitTsMs < result[j].ExitTsMs
	})
	return result, nil
}

// delete removes the outcome for a signal, for retention cascade.
func (s *OutcomeStore) delete(signalID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, signalID)
}
