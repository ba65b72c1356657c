package postgres

import (
	"context"
	"fmt"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/storage"
)

// OutcomeStore implements storage.OutcomeStore using PostgreSQL.
type OutcomeStore struct {
	pool *Pool
}

// NewOutcomeStore creates a new OutcomeStore.
func NewOutcomeStore(pool *Pool) *OutcomeStore {
	return &OutcomeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OutcomeStore = (*OutcomeStore)(nil)

// Insert adds the outcome for a signal. Returns ErrDuplicateKey if the
// signal is already closed.
func (s *OutcomeStore) Insert(ctx context.Context, o *domain.Outcome) error {
	query := `
		INSERT INTO outcomes (
			signal_id, exit_ts, exit_price, pnl, pnl_pct,
			rr, reason, duration_mins
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8
		)
	`

	_, err := s.pool.Exec(ctx, query,
		o.SignalID, o.ExitTsMs, o.ExitPrice, o.PnL, o.PnLPct,
		o.RR, o.Reason, o.DurationMins,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// GetBySignalID retrieves the outcome for a signal. Returns
// ErrNotFound if not exists.
func (s *OutcomeStore) GetBySignalID(ctx context.Context, signalID string) (*domain.Outcome, error) {
	query := `
		SELECT
			signal_id, exit_ts, exit_price, pnl, pnl_pct,
			rr, reason, duration_mins
		FROM outcomes
		WHERE signal_id = $1
	`

	o, err := scanOutcomeRow(s.pool.QueryRow(ctx, query, signalID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get outcome by signal id: %w", err)
	}
	return o, nil
}

// GetClosedSince retrieves outcomes with exit_ts >= since.
func (s *OutcomeStore) GetClosedSince(ctx context.Context, since int64) ([]*domain.Outcome, error) {
	query := `
		SELECT
			signal_id, exit_ts, exit_price, pnl, pnl_pct,
			rr, reason, duration_mins
		FROM outcomes
		WHERE exit_ts >= $1
		ORDER BY exit_ts ASC
	`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("get outcomes since: %w", err)
	}
	defer rows.Close()

	var outcomes []*domain.Outcome
	for rows.Next() {
		o, err := scanOutcomeRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outcome row: %w", err)
		}
		outcomes = append(outcomes, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome rows: %w", err)
	}

	return outcomes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOutcomeRow(row rowScanner) (*domain.Outcome, error) {
	var o domain.Outcome

	err := row.Scan(
		&o.SignalID, &o.ExitTsMs, &o.ExitPrice, &o.PnL, &o.PnLPct,
		&o.RR, &o.Reason, &o.DurationMins,
	)
	if err != nil {
		return nil, err
	}

	return &o, nil
}
