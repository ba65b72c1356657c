// Package config loads the YAML service configuration with defaults
// and struct-tag validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config is the full service configuration.
type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"oneof=development staging production"`

	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	} `yaml:"log"`

	Postgres struct {
		DSN string `yaml:"dsn" validate:"required"`
	} `yaml:"postgres"`

	ClickHouse struct {
		Enabled bool   `yaml:"enabled"`
		DSN     string `yaml:"dsn" validate:"required_if=Enabled true"`
	} `yaml:"clickhouse"`

	Kafka struct {
		Enabled bool     `yaml:"enabled"`
		Brokers []string `yaml:"brokers" validate:"required_if=Enabled true"`
		Topic   string   `yaml:"topic" default:"signal-lifecycle"`
	} `yaml:"kafka"`

	Backtest struct {
		Warmup         int     `yaml:"warmup" default:"100" validate:"gt=0"`
		StartingEquity float64 `yaml:"starting_equity" default:"10000" validate:"gt=0"`
		FeeRate        float64 `yaml:"fee_rate" default:"0.001" validate:"gte=0,lte=0.01"`
		SlipBps        float64 `yaml:"slip_bps" default:"5" validate:"gte=0,lte=100"`
		SpreadBps      float64 `yaml:"spread_bps" default:"2" validate:"gte=0,lte=100"`
		RiskPct        float64 `yaml:"risk_pct" default:"1" validate:"gt=0,lte=10"`
	} `yaml:"backtest"`

	Retention struct {
		MaxAgeDays int `yaml:"max_age_days" default:"90" validate:"gt=0"`
	} `yaml:"retention"`

	Snapshot struct {
		WindowDays int64 `yaml:"window_days" default:"30" validate:"gt=0"`
	} `yaml:"snapshot"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr" default:":9091"`
	} `yaml:"metrics"`
}

// Load reads a YAML configuration file, fills defaults and validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse builds a Config from raw YAML bytes.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides connection details
// with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		c.ClickHouse.DSN = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}

	return c, nil
}
