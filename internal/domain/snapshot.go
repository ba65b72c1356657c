package domain

// PerformanceSnapshot is a periodic aggregate of closed-signal
// statistics, stored for historical comparison.
// Corresponds to the performance_snapshots table.
type PerformanceSnapshot struct {
	SnapshotTsMs int64
	Symbol       string
	Timeframe    string
	WindowDays   int64

	TotalSignals int64
	ClosedTrades int64
	WinRate      float64
	TotalPnL     float64
	AvgRR        float64
	ProfitFactor float64
	Expectancy   float64
	MaxDrawdown  float64
	SharpeRatio  float64
}
