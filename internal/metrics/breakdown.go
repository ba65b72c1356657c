package metrics

import (
	"fmt"
	"sort"
	"time"

	"trading-signal-lab/internal/domain"
)

// Period is the grouping granularity for trade breakdowns.
type Period string

// Period constants.
const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// PeriodStats is the per-period aggregate of a trade breakdown.
type PeriodStats struct {
	Key     string // e.g. "2024-03-01", "2024-W09", "2024-03"
	PnL     float64
	Trades  int
	Wins    int
	WinRate float64 // percent
}

// Breakdown groups trades by day, week or month (UTC) and reports
// per-period pnl, trade count and win rate, sorted chronologically.
func Breakdown(trades []domain.TradePoint, period Period) []PeriodStats {
	byKey := make(map[string]*PeriodStats)

	for _, t := range trades {
		key := periodKey(t.TsMs, period)
		st, ok := byKey[key]
		if !ok {
			st = &PeriodStats{Key: key}
			byKey[key] = st
		}
		st.PnL += t.PnL
		st.Trades++
		if t.PnL > 0 {
			st.Wins++
		}
	}

	out := make([]PeriodStats, 0, len(byKey))
	for _, st := range byKey {
		st.PnL = round2(st.PnL)
		if st.Trades > 0 {
			st.WinRate = round2(float64(st.Wins) / float64(st.Trades) * 100)
		}
		out = append(out, *st)
	}

	// Keys are zero-padded, so lexical order is chronological.
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func periodKey(tsMs int64, period Period) string {
	t := time.UnixMilli(tsMs).UTC()
	switch period {
	case PeriodWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case PeriodMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}
