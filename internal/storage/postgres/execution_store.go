package postgres

import (
	"context"
	"fmt"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/storage"
)

// ExecutionStore implements storage.ExecutionStore using PostgreSQL.
type ExecutionStore struct {
	pool *Pool
}

// NewExecutionStore creates a new ExecutionStore.
func NewExecutionStore(pool *Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ExecutionStore = (*ExecutionStore)(nil)

// Insert adds the execution for a signal. Returns ErrDuplicateKey if
// the signal already has one.
func (s *ExecutionStore) Insert(ctx context.Context, e *domain.Execution) error {
	query := `
		INSERT INTO executions (
			signal_id, side, entry, stop_loss, tp1, tp2,
			qty, fees, slippage, spread, risk_amount
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11
		)
	`

	_, err := s.pool.Exec(ctx, query,
		e.SignalID, e.Side, e.Entry, e.StopLoss, e.TP1, e.TP2,
		e.Qty, e.Fees, e.Slippage, e.Spread, e.RiskAmount,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetBySignalID retrieves the execution for a signal. Returns
// ErrNotFound if not exists.
func (s *ExecutionStore) GetBySignalID(ctx context.Context, signalID string) (*domain.Execution, error) {
	query := `
		SELECT
			signal_id, side, entry, stop_loss, tp1, tp2,
			qty, fees, slippage, spread, risk_amount
		FROM executions
		WHERE signal_id = $1
	`

	var e domain.Execution
	err := s.pool.QueryRow(ctx, query, signalID).Scan(
		&e.SignalID, &e.Side, &e.Entry, &e.StopLoss, &e.TP1, &e.TP2,
		&e.Qty, &e.Fees, &e.Slippage, &e.Spread, &e.RiskAmount,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get execution by signal id: %w", err)
	}
	return &e, nil
}
