package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

// Insert adds a new signal. A signal with the same (ts, symbol,
// timeframe) is silently skipped; the return value reports whether a
// row was written.
func (s *SignalStore) Insert(ctx context.Context, sig *domain.Signal) (bool, error) {
	query := `
		INSERT INTO signals (
			signal_id, ts, symbol, label, score, confidence,
			timeframe, regime, htf_bias, mtf_aligned, summary
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11
		)
		ON CONFLICT (ts, symbol, timeframe) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, query,
		sig.SignalID, sig.TimestampMs, sig.Symbol, sig.Label, sig.Score, sig.Confidence,
		sig.Timeframe, sig.Regime, sig.HTFBias, sig.MTFAligned, sig.Summary,
	)
	if err != nil {
		return false, fmt.Errorf("insert signal: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(ctx context.Context, signalID string) (*domain.Signal, error) {
	query := `
		SELECT
			signal_id, ts, symbol, label, score, confidence,
			timeframe, regime, htf_bias, mtf_aligned, summary
		FROM signals
		WHERE signal_id = $1
	`

	row := s.pool.QueryRow(ctx, query, signalID)
	sig, err := scanSignal(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get signal by id: %w", err)
	}
	return sig, nil
}

// GetBySymbol retrieves signals for a symbol/timeframe within [start, end].
func (s *SignalStore) GetBySymbol(ctx context.Context, symbol, timeframe string, start, end int64) ([]*domain.Signal, error) {
	query := `
		SELECT
			signal_id, ts, symbol, label, score, confidence,
			timeframe, regime, htf_bias, mtf_aligned, summary
		FROM signals
		WHERE symbol = $1 AND timeframe = $2 AND ts >= $3 AND ts <= $4
		ORDER BY ts ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol, timeframe, start, end)
	if err != nil {
		return nil, fmt.Errorf("get signals by symbol: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// GetRows retrieves joined signal+execution+outcome rows within
// [start, end]. Empty symbol matches all symbols.
func (s *SignalStore) GetRows(ctx context.Context, symbol string, start, end int64) ([]*domain.LifecycleRow, error) {
	query := lifecycleSelect + `
		WHERE s.ts >= $1 AND s.ts <= $2 AND ($3 = '' OR s.symbol = $3)
		ORDER BY s.ts ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end, symbol)
	if err != nil {
		return nil, fmt.Errorf("get lifecycle rows: %w", err)
	}
	defer rows.Close()

	return scanLifecycleRows(rows)
}

// GetOpenPositions retrieves rows with an execution but no outcome and
// a non-HOLD label.
func (s *SignalStore) GetOpenPositions(ctx context.Context) ([]*domain.LifecycleRow, error) {
	query := lifecycleSelect + `
		WHERE e.signal_id IS NOT NULL AND o.signal_id IS NULL AND s.label <> $1
		ORDER BY s.ts ASC
	`

	rows, err := s.pool.Query(ctx, query, domain.LabelHold)
	if err != nil {
		return nil, fmt.Errorf("get open positions: %w", err)
	}
	defer rows.Close()

	return scanLifecycleRows(rows)
}

// PurgeOlderThan deletes signals created before cutoff. Executions and
// outcomes follow via ON DELETE CASCADE.
func (s *SignalStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM signals WHERE ts < $1`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge signals: %w", err)
	}
	return tag.RowsAffected(), nil
}

const lifecycleSelect = `
		SELECT
			s.signal_id, s.ts, s.symbol, s.label, s.score, s.confidence,
			s.timeframe, s.regime, s.htf_bias, s.mtf_aligned, s.summary,
			e.signal_id, e.side, e.entry, e.stop_loss, e.tp1, e.tp2,
			e.qty, e.fees, e.slippage, e.spread, e.risk_amount,
			o.signal_id, o.exit_ts, o.exit_price, o.pnl, o.pnl_pct,
			o.rr, o.reason, o.duration_mins
		FROM signals s
		LEFT JOIN executions e ON e.signal_id = s.signal_id
		LEFT JOIN outcomes o ON o.signal_id = s.signal_id
`

// scanSignal scans a single row into a Signal.
func scanSignal(row pgx.Row) (*domain.Signal, error) {
	var sig domain.Signal

	err := row.Scan(
		&sig.SignalID, &sig.TimestampMs, &sig.Symbol, &sig.Label, &sig.Score, &sig.Confidence,
		&sig.Timeframe, &sig.Regime, &sig.HTFBias, &sig.MTFAligned, &sig.Summary,
	)
	if err != nil {
		return nil, err
	}

	return &sig, nil
}

// scanSignals scans multiple rows into a slice of Signal.
func scanSignals(rows pgx.Rows) ([]*domain.Signal, error) {
	var signals []*domain.Signal

	for rows.Next() {
		var sig domain.Signal

		err := rows.Scan(
			&sig.SignalID, &sig.TimestampMs, &sig.Symbol, &sig.Label, &sig.Score, &sig.Confidence,
			&sig.Timeframe, &sig.Regime, &sig.HTFBias, &sig.MTFAligned, &sig.Summary,
		)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}

		signals = append(signals, &sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}

	return signals, nil
}

// scanLifecycleRows scans joined rows. Execution and outcome columns
// are NULL when the stage has not been reached.
func scanLifecycleRows(rows pgx.Rows) ([]*domain.LifecycleRow, error) {
	var result []*domain.LifecycleRow

	for rows.Next() {
		var (
			r domain.LifecycleRow

			execID   *string
			side     *domain.Side
			entry    *float64
			stopLoss *float64
			tp1, tp2 *float64
			qty      *float64
			fees     *float64
			slip     *float64
			spread   *float64
			riskAmt  *float64

			outID     *string
			exitTs    *int64
			exitPrice *float64
			pnl       *float64
			pnlPct    *float64
			rr        *float64
			reason    *string
			durMins   *int64
		)

		err := rows.Scan(
			&r.Signal.SignalID, &r.Signal.TimestampMs, &r.Signal.Symbol, &r.Signal.Label,
			&r.Signal.Score, &r.Signal.Confidence, &r.Signal.Timeframe, &r.Signal.Regime,
			&r.Signal.HTFBias, &r.Signal.MTFAligned, &r.Signal.Summary,
			&execID, &side, &entry, &stopLoss, &tp1, &tp2,
			&qty, &fees, &slip, &spread, &riskAmt,
			&outID, &exitTs, &exitPrice, &pnl, &pnlPct,
			&rr, &reason, &durMins,
		)
		if err != nil {
			return nil, fmt.Errorf("scan lifecycle row: %w", err)
		}

		if execID != nil {
			r.Execution = &domain.Execution{
				SignalID:   *execID,
				Side:       *side,
				Entry:      *entry,
				StopLoss:   stopLoss,
				TP1:        tp1,
				TP2:        tp2,
				Qty:        qty,
				Fees:       fees,
				Slippage:   slip,
				Spread:     spread,
				RiskAmount: riskAmt,
			}
		}
		if outID != nil {
			r.Outcome = &domain.Outcome{
				SignalID:     *outID,
				ExitTsMs:     *exitTs,
				ExitPrice:    *exitPrice,
				PnL:          *pnl,
				PnLPct:       pnlPct,
				RR:           *rr,
				Reason:       *reason,
				DurationMins: durMins,
			}
		}

		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lifecycle rows: %w", err)
	}

	return result, nil
}
