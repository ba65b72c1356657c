package memory

import (
	"context"
	"sort"
	"sync"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data []*domain.PerformanceSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a new snapshot.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.PerformanceSnapshot) error {
	if snap == nil || snap.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *snap
	s.data = append(s.data, &copy)
	return nil
}

// GetBySymbol retrieves snapshots for a symbol/timeframe, ordered by
// snapshot_ts ASC.
func (s *SnapshotStore) GetBySymbol(_ context.Context, symbol, timeframe string) ([]*domain.PerformanceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PerformanceSnapshot
	for _, snap := range s.data {
		if snap.Symbol != symbol || snap.Timeframe != timeframe {
			continue
		}
		copy := *snap
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SnapshotTsMs < result[j].SnapshotTsMs
	})
	return result, nil
}

// GetLatest retrieves the most recent snapshot for a symbol/timeframe.
func (s *SnapshotStore) GetLatest(ctx context.Context, symbol, timeframe string) (*domain.PerformanceSnapshot, error) {
	snaps, err := s.GetBySymbol(ctx, symbol, timeframe)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, storage.ErrNotFound
	}
	return snaps[len(snaps)-1], nil
}
