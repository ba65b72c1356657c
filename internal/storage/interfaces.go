package storage

import (
	"context"
	"time"

	"trading-signal-lab/internal/domain"
)

// SignalStore provides access to signals storage.
type SignalStore interface {
	// Insert adds a new signal. The natural key is
	// (ts, symbol, timeframe); inserting a duplicate is an idempotent
	// no-op reported as (false, nil). Returns true when a row was
	// actually written.
	Insert(ctx context.Context, s *domain.Signal) (bool, error)

	// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, signalID string) (*domain.Signal, error)

	// GetBySymbol retrieves signals for a symbol/timeframe within
	// [start, end] (inclusive), ordered by ts ASC.
	GetBySymbol(ctx context.Context, symbol, timeframe string, start, end int64) ([]*domain.Signal, error)

	// GetRows retrieves joined signal+execution+outcome rows for a
	// symbol within [start, end], ordered by ts ASC. Empty symbol
	// matches all symbols.
	GetRows(ctx context.Context, symbol string, start, end int64) ([]*domain.LifecycleRow, error)

	// GetOpenPositions retrieves rows with an execution but no outcome
	// and a non-HOLD label.
	GetOpenPositions(ctx context.Context) ([]*domain.LifecycleRow, error)

	// PurgeOlderThan deletes signals created before cutoff, cascading
	// to their executions and outcomes. Returns the number of signals
	// removed.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ExecutionStore provides access to executions storage.
type ExecutionStore interface {
	// Insert adds the execution for a signal. At most one execution
	// per signal id; a second insert returns ErrDuplicateKey.
	Insert(ctx context.Context, e *domain.Execution) error

	// GetBySignalID retrieves the execution for a signal.
	// Returns ErrNotFound if not exists.
	GetBySignalID(ctx context.Context, signalID string) (*domain.Execution, error)
}

// OutcomeStore provides access to outcomes storage.
type OutcomeStore interface {
	// Insert adds the outcome for a signal. Exactly one outcome per
	// signal id; a second insert returns ErrDuplicateKey.
	Insert(ctx context.Context, o *domain.Outcome) error

	// GetBySignalID retrieves the outcome for a signal.
	// Returns ErrNotFound if not exists.
	GetBySignalID(ctx context.Context, signalID string) (*domain.Outcome, error)

	// GetClosedSince retrieves outcomes with exit_ts >= since,
	// ordered by exit_ts ASC.
	GetClosedSince(ctx context.Context, since int64) ([]*domain.Outcome, error)
}

// SnapshotStore provides access to performance_snapshots storage.
type SnapshotStore interface {
	// Insert adds a new snapshot.
	Insert(ctx context.Context, s *domain.PerformanceSnapshot) error

	// GetBySymbol retrieves snapshots for a symbol/timeframe,
	// ordered by snapshot_ts ASC.
	GetBySymbol(ctx context.Context, symbol, timeframe string) ([]*domain.PerformanceSnapshot, error)

	// GetLatest retrieves the most recent snapshot for a
	// symbol/timeframe. Returns ErrNotFound if none exist.
	GetLatest(ctx context.Context, symbol, timeframe string) (*domain.PerformanceSnapshot, error)
}
