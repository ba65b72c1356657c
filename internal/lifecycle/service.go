// Package lifecycle tracks signals from publication through execution
// to their resolved outcome: durable writes first, advisory events
// after.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/events"
	"trading-signal-lab/internal/idhash"
	"trading-signal-lab/internal/metrics"
	"trading-signal-lab/internal/observability"
	"trading-signal-lab/internal/storage"
)

// ReasonInvalidated closes a signal that was withdrawn before it
// triggered.
const ReasonInvalidated = "invalidated"

// statsEquityBase is the nominal equity the trailing-window ratio
// statistics are computed against.
const statsEquityBase = 10_000.0

// Service wraps the lifecycle stores. Every mutation writes durably
// first and then emits a fire-and-forget event; emission failures are
// logged, never propagated.
type Service struct {
	signals   storage.SignalStore
	execs     storage.ExecutionStore
	outcomes  storage.OutcomeStore
	snapshots storage.SnapshotStore // optional
	emitter   events.Emitter
	log       zerolog.Logger
}

// NewService creates a lifecycle service over the given stores.
func NewService(signals storage.SignalStore, execs storage.ExecutionStore, outcomes storage.OutcomeStore, emitter events.Emitter, log zerolog.Logger) *Service {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Service{
		signals:  signals,
		execs:    execs,
		outcomes: outcomes,
		emitter:  emitter,
		log:      log,
	}
}

// WithSnapshots attaches a snapshot store for TakeSnapshot.
func (s *Service) WithSnapshots(store storage.SnapshotStore) *Service {
	s.snapshots = store
	return s
}

// PublishSignal stores a new signal. The id is derived from the
// natural key when unset. A duplicate natural key is reported as
// (false, nil) and emits nothing. Non-HOLD signals emit a published
// event; rr comes from lvls when given.
func (s *Service) PublishSignal(ctx context.Context, sig *domain.Signal, lvls *domain.TradingLevels) (bool, error) {
	if sig == nil || sig.Symbol == "" || sig.Timeframe == "" {
		return false, storage.ErrInvalidInput
	}
	if sig.SignalID == "" {
		sig.SignalID = idhash.ComputeSignalID(sig.TimestampMs, sig.Symbol, sig.Timeframe)
	}

	inserted, err := s.signals.Insert(ctx, sig)
	if err != nil {
		return false, fmt.Errorf("store signal: %w", err)
	}
	if !inserted {
		observability.RecordDuplicateSignal()
		return false, nil
	}
	observability.RecordSignalStored(string(sig.Label))
	if sig.Label == domain.LabelHold {
		return true, nil
	}

	rr := 0.0
	if lvls != nil {
		rr = lvls.RiskReward
	}
	s.emit(ctx, events.Event{
		Type: events.TypePublished,
		TsMs: sig.TimestampMs,
		Payload: events.Published{
			SignalID:        sig.SignalID,
			Symbol:          sig.Symbol,
			ConfluenceScore: sig.Score,
			RR:              rr,
		},
	})
	return true, nil
}

// RecordExecution stores the fill for a signal and emits a triggered
// event. A second execution for the same signal is ErrDuplicateKey.
func (s *Service) RecordExecution(ctx context.Context, e *domain.Execution, triggeredAtMs int64) error {
	if e == nil || e.SignalID == "" {
		return storage.ErrInvalidInput
	}

	sig, err := s.signals.GetByID(ctx, e.SignalID)
	if err != nil {
		return fmt.Errorf("load signal %s: %w", e.SignalID, err)
	}

	if err := s.execs.Insert(ctx, e); err != nil {
		return fmt.Errorf("store execution: %w", err)
	}
	observability.DefaultMetrics.ExecutionsStored.Inc()

	s.emit(ctx, events.Event{
		Type: events.TypeTriggered,
		TsMs: triggeredAtMs,
		Payload: events.Triggered{
			SignalID:        e.SignalID,
			Symbol:          sig.Symbol,
			EntryFill:       e.Entry,
			TimeToTriggerMs: triggeredAtMs - sig.TimestampMs,
		},
	})
	return nil
}

// RecordOutcome stores the resolution of a signal and emits a closed
// event. A second outcome for the same signal is ErrDuplicateKey.
func (s *Service) RecordOutcome(ctx context.Context, o *domain.Outcome) error {
	if o == nil || o.SignalID == "" {
		return storage.ErrInvalidInput
	}

	sig, err := s.signals.GetByID(ctx, o.SignalID)
	if err != nil {
		return fmt.Errorf("load signal %s: %w", o.SignalID, err)
	}

	if err := s.outcomes.Insert(ctx, o); err != nil {
		return fmt.Errorf("store outcome: %w", err)
	}
	observability.RecordOutcomeStored(o.Reason)

	s.emit(ctx, events.Event{
		Type: events.TypeClosed,
		TsMs: o.ExitTsMs,
		Payload: events.Closed{
			SignalID:      o.SignalID,
			Symbol:        sig.Symbol,
			RRRealized:    o.RR,
			TimeInTradeMs: o.ExitTsMs - sig.TimestampMs,
			ExitReason:    o.Reason,
		},
	})
	return nil
}

// Invalidate withdraws a signal that never resolved, closing it with a
// zero-P&L outcome so it leaves the open set exactly once.
func (s *Service) Invalidate(ctx context.Context, signalID, reason string, atMs int64) error {
	sig, err := s.signals.GetByID(ctx, signalID)
	if err != nil {
		return fmt.Errorf("load signal %s: %w", signalID, err)
	}
	if reason == "" {
		reason = ReasonInvalidated
	}

	exitPrice := 0.0
	if exec, err := s.execs.GetBySignalID(ctx, signalID); err == nil {
		exitPrice = exec.Entry
	}

	out := &domain.Outcome{
		SignalID:  signalID,
		ExitTsMs:  atMs,
		ExitPrice: exitPrice,
		Reason:    ReasonInvalidated,
	}
	if err := s.outcomes.Insert(ctx, out); err != nil {
		return fmt.Errorf("store invalidation outcome: %w", err)
	}

	s.emit(ctx, events.Event{
		Type: events.TypeInvalidated,
		TsMs: atMs,
		Payload: events.Invalidated{
			SignalID: signalID,
			Symbol:   sig.Symbol,
			Reason:   reason,
		},
	})
	return nil
}

// Rows returns the joined lifecycle view for a symbol and time range.
// Empty symbol matches all symbols.
func (s *Service) Rows(ctx context.Context, symbol string, start, end int64) ([]*domain.LifecycleRow, error) {
	return s.signals.GetRows(ctx, symbol, start, end)
}

// OpenPositions returns triggered signals that have not resolved.
func (s *Service) OpenPositions(ctx context.Context) ([]*domain.LifecycleRow, error) {
	return s.signals.GetOpenPositions(ctx)
}

// Stats aggregates closed outcomes for a symbol/timeframe over the
// trailing window ending at now.
func (s *Service) Stats(ctx context.Context, symbol, timeframe string, windowDays int64, now time.Time) (*domain.PerformanceSnapshot, error) {
	end := now.UnixMilli()
	start := now.AddDate(0, 0, -int(windowDays)).UnixMilli()

	rows, err := s.signals.GetRows(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("load lifecycle rows: %w", err)
	}

	snap := &domain.PerformanceSnapshot{
		SnapshotTsMs: end,
		Symbol:       symbol,
		Timeframe:    timeframe,
		WindowDays:   windowDays,
	}

	var trades []domain.TradePoint
	var rrSum float64
	for _, row := range rows {
		if row.Signal.Timeframe != timeframe {
			continue
		}
		snap.TotalSignals++
		if row.Outcome == nil || row.Outcome.Reason == ReasonInvalidated {
			continue
		}
		snap.ClosedTrades++
		rrSum += row.Outcome.RR
		trades = append(trades, domain.TradePoint{TsMs: row.Outcome.ExitTsMs, PnL: row.Outcome.PnL})
	}

	m := metrics.Compute(trades, statsEquityBase)
	snap.WinRate = m.WinRate
	snap.TotalPnL = m.TotalPnL
	snap.ProfitFactor = m.ProfitFactor
	snap.Expectancy = m.Expectancy
	snap.MaxDrawdown = m.MaxDrawdown
	snap.SharpeRatio = m.SharpeRatio
	if snap.ClosedTrades > 0 {
		snap.AvgRR = rrSum / float64(snap.ClosedTrades)
	}
	return snap, nil
}

// TakeSnapshot computes trailing-window stats and persists them to the
// snapshot store.
func (s *Service) TakeSnapshot(ctx context.Context, symbol, timeframe string, windowDays int64, now time.Time) (*domain.PerformanceSnapshot, error) {
	if s.snapshots == nil {
		return nil, fmt.Errorf("no snapshot store configured")
	}

	snap, err := s.Stats(ctx, symbol, timeframe, windowDays, now)
	if err != nil {
		return nil, err
	}
	if err := s.snapshots.Insert(ctx, snap); err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}
	return snap, nil
}

// Cleanup removes signals older than maxAge along with their
// executions and outcomes. Returns the number of signals purged.
func (s *Service) Cleanup(ctx context.Context, maxAge time.Duration, now time.Time) (int64, error) {
	removed, err := s.signals.PurgeOlderThan(ctx, now.Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("purge signals: %w", err)
	}
	if removed > 0 {
		s.log.Info().Int64("signals", removed).Msg("retention cleanup removed signals")
	}
	return removed, nil
}

// emit publishes an event, logging and swallowing any failure.
func (s *Service) emit(ctx context.Context, ev events.Event) {
	if err := s.emitter.Emit(ctx, ev); err != nil {
		observability.RecordEventDropped(ev.Type)
		s.log.Warn().Err(err).Str("type", ev.Type).Msg("event emission failed")
		return
	}
	observability.RecordEventEmitted(ev.Type)
}

// errIsDuplicate reports whether err is the duplicate-key sentinel.
func errIsDuplicate(err error) bool {
	return errors.Is(err, storage.ErrDuplicateKey)
}
