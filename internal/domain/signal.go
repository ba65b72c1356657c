package domain

// Signal is a persisted trading decision. Natural key is
// (TimestampMs, Symbol, Timeframe); duplicate inserts on that key are
// no-ops. Never mutated after creation, deleted only by retention cleanup.
type Signal struct {
	SignalID    string // deterministic hash of the natural key
	TimestampMs int64
	Symbol      string
	Label       Label
	Score       float64
	Confidence  *float64
	Timeframe   string
	Regime      *string
	HTFBias     *string // higher-timeframe bias
	MTFAligned  *bool   // multi-timeframe alignment
	Summary     *string
}

// Side of an execution.
type Side string

// Side constants.
const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Execution is the persisted fill for one signal. At most one per
// signal; HOLD signals never produce one. Immutable after creation.
type Execution struct {
	SignalID   string
	Side       Side
	Entry      float64
	StopLoss   *float64
	TP1        *float64
	TP2        *float64
	Qty        *float64
	Fees       *float64
	Slippage   *float64
	Spread     *float64
	RiskAmount *float64
}

// Outcome is the persisted resolution of one signal. A signal has zero
// outcomes while open and exactly one once closed, never more.
type Outcome struct {
	SignalID     string
	ExitTsMs     int64
	ExitPrice    float64
	PnL          float64
	PnLPct       *float64
	RR           float64 // realized R multiple
	Reason       string  // exit reason code
	DurationMins *int64
}

// LifecycleRow is the joined signal + execution + outcome view.
// Execution and Outcome are nil at the stages not yet reached.
type LifecycleRow struct {
	Signal    Signal
	Execution *Execution
	Outcome   *Outcome
}

// Open reports whether the row is an open position: an execution
// exists but no outcome does.
func (r LifecycleRow) Open() bool {
	return r.Execution != nil && r.Outcome == nil
}
