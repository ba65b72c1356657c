package domain

// TradingLevels holds entry, stop and take-profit prices derived from a
// confluence result and current volatility. Stop and targets are always
// on the correct side of entry for the label; HOLD still yields a
// conservative symmetric bracket so consumers always get usable levels.
type TradingLevels struct {
	Entry      float64
	StopLoss   float64
	TakeProfit []float64 // at least one target, ordered nearest first
	RiskReward float64   // |TakeProfit[0]-Entry| / |Entry-StopLoss|
}
