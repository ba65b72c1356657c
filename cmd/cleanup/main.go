package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"trading-signal-lab/internal/config"
	"trading-signal-lab/internal/events"
	"trading-signal-lab/internal/lifecycle"
	"trading-signal-lab/internal/logging"
	pgstore "trading-signal-lab/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (required)")
	maxAgeDays := flag.Int("max-age-days", 90, "Delete signals older than this many days")
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
		if !explicit["max-age-days"] {
			*maxAgeDays = cfg.Retention.MaxAgeDays
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
	log = log.With().Str("component", "cleanup").Logger()

	if *postgresDSN == "" {
		log.Fatal().Msg("--postgres-dsn is required")
	}
	if *maxAgeDays <= 0 {
		log.Fatal().Int("max_age_days", *maxAgeDays).Msg("--max-age-days must be positive")
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

	maxAge := time.Duration(*maxAgeDays) * 24 * time.Hour
	removed, err := svc.Cleanup(ctx, maxAge, time.Now().UTC())
	if err != nil {
		log.Fatal().Err(err).Msg("cleanup failed")
	}

	fmt.Printf("Removed %d signals older than %d days (executions and outcomes cascade).\n", removed, *maxAgeDays)
}
