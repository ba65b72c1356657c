package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"trading-signal-lab/internal/backtest"
	"trading-signal-lab/internal/candlefile"
	"trading-signal-lab/internal/config"
	"trading-signal-lab/internal/confluence"
	"trading-signal-lab/internal/events"
	"trading-signal-lab/internal/lifecycle"
	"trading-signal-lab/internal/logging"
	"trading-signal-lab/internal/observability"
	"trading-signal-lab/internal/storage"
	"trading-signal-lab/internal/storage/memory"
	"trading-signal-lab/internal/storage/migrations"
	pgstore "trading-signal-lab/internal/storage/postgres"
)

func main() {
	// Input
	csvPath := flag.String("csv", "", "Path to candle CSV file (required)")
	symbol := flag.String("symbol", "", "Trading symbol, e.g. BTCUSDT (required)")
	timeframe := flag.String("timeframe", "1h", "Candle timeframe label")
	warmup := flag.Int("warmup", backtest.DefaultWarmup, "Candles consumed before the first evaluation")
	maxTrades := flag.Int("max-trades", 0, "Stop after this many trades (0 = unlimited)")

	// Costs
	feeRate := flag.Float64("fee-rate", 0.001, "Taker fee fraction per side")
	slipBps := flag.Float64("slip-bps", 2, "Slippage in basis points")
	spreadBps := flag.Float64("spread-bps", 1, "Half-spread in basis points")

	// Risk
	equity := flag.Float64("equity", 10000, "Starting equity")
	riskPct := flag.Float64("risk-pct", 1, "Percent of equity risked per trade")
	atrMult := flag.Float64("atr-mult", 0, "Stop distance in ATRs (0 = default)")
	tp1RR := flag.Float64("tp1-rr", 0, "First target as a multiple of risk (0 = default)")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	migrate := flag.Bool("migrate", false, "Apply database migrations before running")
	persistResult := flag.Bool("persist", false, "Persist signal lifecycle rows to storage")

	// Events
	kafkaBrokers := flag.String("kafka-brokers", "", "Comma-separated Kafka brokers for lifecycle events")
	kafkaTopic := flag.String("kafka-topic", "signal-lifecycle", "Kafka topic for lifecycle events")

	// Observability
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address while running")

	// Output
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

		// Explicit flags win over config file values.
		if !explicit["postgres-dsn"] {
			*postgresDSN = cfg.Postgres.DSN
		}
		if !explicit["kafka-brokers"] && cfg.Kafka.Enabled {
			*kafkaBrokers = strings.Join(cfg.Kafka.Brokers, ",")
		}
		if !explicit["kafka-topic"] {
			*kafkaTopic = cfg.Kafka.Topic
		}
		if !explicit["log-level"] {
			*logLevel = cfg.Log.Level
		}
		if !explicit["warmup"] {
			*warmup = cfg.Backtest.Warmup
		}
		if !explicit["equity"] {
			*equity = cfg.Backtest.StartingEquity
		}
		if !explicit["fee-rate"] {
			*feeRate = cfg.Backtest.FeeRate
		}
		if !explicit["slip-bps"] {
			*slipBps = cfg.Backtest.SlipBps
		}
		if !explicit["spread-bps"] {
			*spreadBps = cfg.Backtest.SpreadBps
		}
		if !explicit["risk-pct"] {
			*riskPct = cfg.Backtest.RiskPct
		}
		if !explicit["metrics-addr"] && cfg.Metrics.Enabled {
			*metricsAddr = cfg.Metrics.Addr
		}
	}

	log, err := logging.New(*logLevel, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log = log.With().Str("component", "backtest").Logger()

	if *csvPath == "" {
		log.Fatal().Msg("--csv is required")
	}
	if *symbol == "" {
		log.Fatal().Msg("--symbol is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Warn().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	candles, err := candlefile.Load(*csvPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load candles")
	}
	log.Info().Int("candles", len(candles)).Str("symbol", *symbol).Msg("loaded candle series")

	strategy := confluence.NewStrategy(confluence.NewScorer())
	engine := backtest.NewEngine(strategy, log)

	var (
		recorder *lifecycle.Service
		closers  []func()
	)
	if *persistResult {
		recorder, closers, err = buildRecorder(ctx, log, *useMemory, *postgresDSN, *migrate, *kafkaBrokers, *kafkaTopic)
		if err != nil {
			log.Fatal().Err(err).Msg("set up persistence")
		}
		engine.WithRecorder(recorder)
	}
	defer func() {
		for _, c := range closers {
			c()
		}
	}()

	req := &backtest.Request{
		Symbol:    *symbol,
		Timeframe: *timeframe,
		Candles:   candles,
		Cost: backtest.CostConfig{
			FeeRate:   *feeRate,
			SlipBps:   *slipBps,
			SpreadBps: *spreadBps,
		},
		Risk: backtest.RiskConfig{
			Equity:  *equity,
			RiskPct: *riskPct,
			ATRMult: *atrMult,
			TP1RR:   *tp1RR,
		},
		Warmup:    *warmup,
		MaxTrades: *maxTrades,
	}

	started := time.Now()
	result, err := engine.Run(ctx, req)
	if err != nil {
		observability.DefaultMetrics.BacktestRunsTotal.WithLabelValues("error").Inc()
		log.Fatal().Err(err).Msg("backtest failed")
	}
	observability.DefaultMetrics.BacktestRunsTotal.WithLabelValues("ok").Inc()
	observability.DefaultMetrics.BacktestDuration.Observe(time.Since(started).Seconds())
	observability.DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()

	if *outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	} else {
		printResult(result)
	}
}

// buildRecorder wires the lifecycle service over memory or Postgres
// stores, with an optional Kafka emitter for lifecycle events.
func buildRecorder(ctx context.Context, log zerolog.Logger, useMemory bool, postgresDSN string, migrate bool, kafkaBrokers, kafkaTopic string) (*lifecycle.Service, []func(), error) {
	var (
		signalStore  storage.SignalStore
		execStore    storage.ExecutionStore
		outcomeStore storage.OutcomeStore
		closers      []func()
	)

	if useMemory {
		execs := memory.NewExecutionStore()
		outcomes := memory.NewOutcomeStore()
		signalStore = memory.NewSignalStore(execs, outcomes)
		execStore = execs
		outcomeStore = outcomes
	} else {
		if postgresDSN == "" {
			return nil, nil, fmt.Errorf("--postgres-dsn is required with --persist unless --use-memory is set")
		}
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				return nil, closers, fmt.Errorf("apply postgres migrations: %w", err)
			}
		}
		signalStore = pgstore.NewSignalStore(pool)
		execStore = pgstore.NewExecutionStore(pool)
		outcomeStore = pgstore.NewOutcomeStore(pool)
	}

	var emitter events.Emitter = events.NopEmitter{}
	if kafkaBrokers != "" {
		ke, err := events.NewKafkaEmitter(events.KafkaConfig{
			Brokers: strings.Split(kafkaBrokers, ","),
			Topic:   kafkaTopic,
		}, log)
		if err != nil {
			return nil, closers, fmt.Errorf("create kafka emitter: %w", err)
		}
		closers = append(closers, func() { _ = ke.Close() })
		emitter = ke
	}

	return lifecycle.NewService(signalStore, execStore, outcomeStore, emitter, log), closers, nil
}

// printResult outputs a human-readable run summary.
func printResult(r *backtest.Result) {
	s := r.Summary
	m := r.Stats

	fmt.Println()
	fmt.Println("=== Backtest Result ===")
	fmt.Printf("Period:             %s .. %s (%v)\n",
		s.StartDate.Format(time.RFC3339), s.EndDate.Format(time.RFC3339), s.Duration)
	fmt.Printf("Signals Evaluated:  %d\n", s.TotalSignals)
	fmt.Printf("Signals Traded:     %d\n", s.TradedSignals)
	fmt.Printf("Signals Skipped:    %d\n", s.SkippedSignals)
	fmt.Println()

	fmt.Println("Performance:")
	fmt.Printf("  Trades:           %d (%d W / %d L)\n", m.TotalTrades, m.Wins, m.Losses)
	fmt.Printf("  Win Rate:         %.2f%%\n", m.WinRate)
	fmt.Printf("  Total PnL:        %.2f (%.2f%%)\n", m.TotalPnL, m.TotalReturnPct)
	fmt.Printf("  Avg Win / Loss:   %.2f / %.2f\n", m.AvgWin, m.AvgLoss)
	fmt.Printf("  Expectancy:       %.2f\n", m.Expectancy)
	fmt.Printf("  Profit Factor:    %.2f\n", m.ProfitFactor)
	fmt.Println()

	fmt.Println("Risk:")
	fmt.Printf("  Max Drawdown:     %.2f (%.2f%%)\n", m.MaxDrawdown, m.MaxDrawdownPct)
	fmt.Printf("  Sharpe:           %.2f\n", m.SharpeRatio)
	fmt.Printf("  Sortino:          %.2f\n", m.SortinoRatio)
	fmt.Printf("  Calmar:           %.2f\n", m.CalmarRatio)
	fmt.Printf("  Recovery Factor:  %.2f\n", m.RecoveryFactor)

	if len(r.Trades) > 0 {
		fmt.Println()
		fmt.Println("Last Trades:")
		start := len(r.Trades) - 5
		if start < 0 {
			start = 0
		}
		for _, t := range r.Trades[start:] {
			fmt.Printf("  %s %-5s entry %.2f exit %.2f (%s) pnl %+.2f R %.2f\n",
				time.UnixMilli(t.EntryTsMs).Format("2006-01-02 15:04"),
				t.Side, t.EntryPrice, t.ExitPrice, t.ExitReason, t.NetPnL, t.RMultiple)
		}
	}
}
