package domain

// Exit reason codes for simulated trades.
const (
	ExitReasonStopLoss   = "stop_loss"
	ExitReasonTakeProfit = "take_profit"
	ExitReasonTimeout    = "timeout"     // exit-race horizon exhausted
	ExitReasonEndOfData  = "end_of_data" // candle series ended first
)

// TradeRecord is one simulated trade produced by the backtest engine.
type TradeRecord struct {
	Symbol    string
	Timeframe string
	Side      Side

	// Entry
	EntryTsMs  int64
	EntryPrice float64 // fill after slippage
	StopLoss   float64
	TakeProfit float64 // first target

	// Exit
	ExitTsMs   int64
	ExitPrice  float64
	ExitReason string

	// Economics
	GrossPnL  float64
	Cost      float64 // fee + slippage + spread
	NetPnL    float64
	RMultiple float64 // |exit-entry| / |entry-stop|, signed by profitability

	HoldCandles int

	// Decision context
	Score      float64
	Confidence float64
	Summary    string
}

// TradePoint is the minimal realized-PnL unit the metrics engine
// consumes: one closed trade in chronological order.
type TradePoint struct {
	TsMs int64
	PnL  float64
}

// EquityPoint is one step of the derived equity curve.
// Peak is the running maximum of Equity; Drawdown = Peak - Equity >= 0.
type EquityPoint struct {
	TsMs     int64
	Equity   float64
	Drawdown float64
	Peak     float64
}
