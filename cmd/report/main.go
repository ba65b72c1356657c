package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"trading-signal-lab/internal/config"
	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/events"
	"trading-signal-lab/internal/lifecycle"
	"trading-signal-lab/internal/logging"
	"trading-signal-lab/internal/metrics"
	chstore "trading-signal-lab/internal/storage/clickhouse"
	"trading-signal-lab/internal/storage/migrations"
	pgstore "trading-signal-lab/internal/storage/postgres"
)

func main() {
	symbol := flag.String("symbol", "", "Trading symbol to report on (empty = all)")
	timeframe := flag.String("timeframe", "1h", "Candle timeframe label")
	windowDays := flag.Int64("window-days", 30, "Trailing window in days")
	period := flag.String("period", "day", "Breakdown period: day, week, month")

	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (required)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (required with --snapshot)")
	snapshot := flag.Bool("snapshot", false, "Persist the computed window stats as a performance snapshot")

	outputJSON := flag.Bool("json", false, "Output as JSON")
	logLevel := flag.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	configPath := flag.String("config", "", "YAML config file supplying defaults for unset flags")

	flag.Parse()

	if *configPath != "" {
		explicit := map[string]bool{}
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

		cfg, err := config.LoadWithEnv(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !explicit["postgres-dsn"] {
			*postgresDSN = cfg.Postgres.DSN
		}
		if !explicit["clickhouse-dsn"] && cfg.ClickHouse.Enabled {
			*clickhouseDSN = cfg.ClickHouse.DSN
		}
		if !explicit["window-days"] {
			*windowDays = cfg.Snapshot.WindowDays
		}
		if !explicit["log-level"] {
			*logLevel = cfg.Log.Level
		}
	}

	log, err := logging.New(*logLevel, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log = log.With().Str("component", "report").Logger()

	if *postgresDSN == "" {
		log.Fatal().Msg("--postgres-dsn is required")
	}
	if *snapshot && *clickhouseDSN == "" {
		log.Fatal().Msg("--clickhouse-dsn is required with --snapshot")
	}
	p := metrics.Period(*period)
	if p != metrics.PeriodDay && p != metrics.PeriodWeek && p != metrics.PeriodMonth {
		log.Fatal().Str("period", *period).Msg("invalid period, must be day, week or month")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	svc := lifecycle.NewService(
		pgstore.NewSignalStore(pool),
		pgstore.NewExecutionStore(pool),
		pgstore.NewOutcomeStore(pool),
		events.NopEmitter{},
		log,
	)

	if *snapshot {
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("prepare clickhouse")
		}
		defer conn.Close()
		svc.WithSnapshots(chstore.NewSnapshotStore(conn))
	}

	now := time.Now().UTC()

	var stats *domain.PerformanceSnapshot
	if *snapshot {
		stats, err = svc.TakeSnapshot(ctx, *symbol, *timeframe, *windowDays, now)
	} else {
		stats, err = svc.Stats(ctx, *symbol, *timeframe, *windowDays, now)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("compute window stats")
	}

	start := now.AddDate(0, 0, -int(*windowDays)).UnixMilli()
	rows, err := svc.Rows(ctx, *symbol, start, now.UnixMilli())
	if err != nil {
		log.Fatal().Err(err).Msg("load lifecycle rows")
	}
	breakdown := metrics.Breakdown(closedTrades(rows, *timeframe), p)

	if *outputJSON {
		output, _ := json.MarshalIndent(struct {
			Stats     *domain.PerformanceSnapshot
			Breakdown []metrics.PeriodStats
		}{stats, breakdown}, "", "  ")
		fmt.Println(string(output))
		return
	}

	printReport(stats, breakdown, rows)
	if *snapshot {
		fmt.Println()
		fmt.Println("Snapshot persisted.")
	}
}

// closedTrades converts closed, non-invalidated lifecycle rows into
// realized trade points for the breakdown.
func closedTrades(rows []*domain.LifecycleRow, timeframe string) []domain.TradePoint {
	var trades []domain.TradePoint
	for _, r := range rows {
		if r.Signal.Timeframe != timeframe {
			continue
		}
		if r.Outcome == nil || r.Outcome.Reason == lifecycle.ReasonInvalidated {
			continue
		}
		trades = append(trades, domain.TradePoint{
			TsMs: r.Outcome.ExitTsMs,
			PnL:  r.Outcome.PnL,
		})
	}
	return trades
}

// printReport outputs a human-readable window report.
func printReport(s *domain.PerformanceSnapshot, breakdown []metrics.PeriodStats, rows []*domain.LifecycleRow) {
	symbol := s.Symbol
	if symbol == "" {
		symbol = "(all)"
	}

	open := 0
	for _, r := range rows {
		if r.Signal.Timeframe == s.Timeframe && r.Open() {
			open++
		}
	}

	fmt.Println()
	fmt.Println("=== Signal Performance Report ===")
	fmt.Printf("Symbol:             %s %s\n", symbol, s.Timeframe)
	fmt.Printf("Window:             trailing %d days (as of %s)\n",
		s.WindowDays, time.UnixMilli(s.SnapshotTsMs).Format(time.RFC3339))
	fmt.Println()

	fmt.Printf("Signals:            %d (%d closed, %d open)\n", s.TotalSignals, s.ClosedTrades, open)
	fmt.Printf("Win Rate:           %.2f%%\n", s.WinRate)
	fmt.Printf("Total PnL:          %.2f\n", s.TotalPnL)
	fmt.Printf("Avg RR:             %.2f\n", s.AvgRR)
	fmt.Printf("Profit Factor:      %.2f\n", s.ProfitFactor)
	fmt.Printf("Expectancy:         %.2f\n", s.Expectancy)
	fmt.Printf("Max Drawdown:       %.2f\n", s.MaxDrawdown)
	fmt.Printf("Sharpe:             %.2f\n", s.SharpeRatio)

	if len(breakdown) > 0 {
		fmt.Println()
		fmt.Println("Breakdown:")
		for _, b := range breakdown {
			fmt.Printf("  %-10s  trades %3d  wins %3d  win rate %6.2f%%  pnl %+.2f\n",
				b.Key, b.Trades, b.Wins, b.WinRate, b.PnL)
		}
	}
}
