package memory

import (
	"context"
	"sync"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/storage"
)

// ExecutionStore is an in-memory implementation of storage.ExecutionStore.
type ExecutionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Execution // keyed by signal_id
}

// NewExecutionStore creates a new in-memory execution store.
func NewExecutionStore() *ExecutionStore {
	return &ExecutionStore{
		data: make(map[string]*domain.Execution),
	}
}

// Compile-time interface check.
var _ storage.ExecutionStore = (*ExecutionStore)(nil)

// Insert adds the execution for a signal. Returns ErrDuplicateKey if
// the signal already has one.
func (s *ExecutionStore) Insert(_ context.Context, e *domain.Execution) error {
	if e == nil || e.SignalID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.SignalID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *e
	s.data[e.SignalID] = &copy
	return nil
}

// GetBySignalID retrieves the execution for a signal. Returns
// ErrNotFound if not exists.
func (s *ExecutionStore) GetBySignalID(_ context.Context, signalID string) (*domain.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[signalID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *e
	return &copy, nil
}

// delete removes the execution for a signal, for retention cascade.
func (s *ExecutionStore) delete(signalID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, signalID)
}
