package clickhouse

import (
	"context"
	"fmt"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a new snapshot.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.PerformanceSnapshot) error {
	query := `
		INSERT INTO performance_snapshots (
			snapshot_ts, symbol, timeframe, window_days,
			total_signals, closed_trades, win_rate, total_pnl, avg_rr,
			profit_factor, expectancy, max_drawdown, sharpe_ratio
		) VALUES (
			?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?, ?
		)
	`

	err := s.conn.Exec(ctx, query,
		snap.SnapshotTsMs, snap.Symbol, snap.Timeframe, snap.WindowDays,
		snap.TotalSignals, snap.ClosedTrades, snap.WinRate, snap.TotalPnL, snap.AvgRR,
		snap.ProfitFactor, snap.Expectancy, snap.MaxDrawdown, snap.SharpeRatio,
	)
	if err != nil {
		return fmt.Errorf("insert performance snapshot: %w", err)
	}
	return nil
}

// GetBySymbol retrieves snapshots for a symbol/timeframe.
func (s *SnapshotStore) GetBySymbol(ctx context.Context, symbol, timeframe string) ([]*domain.PerformanceSnapshot, error) {
	query := `
		SELECT
			snapshot_ts, symbol, timeframe, window_days,
			total_signals, closed_trades, win_rate, total_pnl, avg_rr,
			profit_factor, expectancy, max_drawdown, sharpe_ratio
		FROM performance_snapshots FINAL
		WHERE symbol = ? AND timeframe = ?
		ORDER BY snapshot_ts ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, timeframe)
	if err != nil {
		return nil, fmt.Errorf("query snapshots by symbol: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.PerformanceSnapshot
	for rows.Next() {
		var snap domain.PerformanceSnapshot
		err := rows.Scan(
			&snap.SnapshotTsMs, &snap.Symbol, &snap.Timeframe, &snap.WindowDays,
			&snap.TotalSignals, &snap.ClosedTrades, &snap.WinRate, &snap.TotalPnL, &snap.AvgRR,
			&snap.ProfitFactor, &snap.Expectancy, &snap.MaxDrawdown, &snap.SharpeRatio,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snaps = append(snaps, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snaps, nil
}

// GetLatest retrieves the most recent snapshot for a symbol/timeframe.
func (s *SnapshotStore) GetLatest(ctx context.Context, symbol, timeframe string) (*domain.PerformanceSnapshot, error) {
	query := `
		SELECT
			snapshot_ts, symbol, timeframe, window_days,
			total_signals, closed_trades, win_rate, total_pnl, avg_rr,
			profit_factor, expectancy, max_drawdown, sharpe_ratio
		FROM performance_snapshots FINAL
		WHERE symbol = ? AND timeframe = ?
		ORDER BY snapshot_ts DESC
		LIMIT 1
	`

	var snap domain.PerformanceSnapshot
	err := s.conn.QueryRow(ctx, query, symbol, timeframe).Scan(
		&snap.SnapshotTsMs, &snap.Symbol, &snap.Timeframe, &snap.WindowDays,
		&snap.TotalSignals, &snap.ClosedTrades, &snap.WinRate, &snap.TotalPnL, &snap.AvgRR,
		&snap.ProfitFactor, &snap.Expectancy, &snap.MaxDrawdown, &snap.SharpeRatio,
	)
	if err != nil {
		return nil, storage.ErrNotFound
	}

	return &snap, nil
}
