// Package config loads the on-disk YAML configuration for the server
// and CLI binaries.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/simulation"
	"btc-strategy-lab/internal/strategy"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	Server     ServerConfig            `yaml:"server"`
	Storage    StorageConfig           `yaml:"storage"`
	Data       DataConfig              `yaml:"data"`
	Simulation SimulationConfig        `yaml:"simulation"`
	Strategies []domain.StrategyConfig `yaml:"strategies"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects the results backend. Backend "memory" needs no
// DSNs; "postgres" requires PostgresDSN and optionally ClickhouseDSN
// for bar history.
type StorageConfig struct {
	Backend       string `yaml:"backend"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	MaxRuns       int    `yaml:"max_runs"`
}

type DataConfig struct {
	// BarsFile is a CSV of historical bars replayed by /start_test.
	BarsFile string `yaml:"bars_file"`
	// Symbol labels persisted bar history.
	Symbol string `yaml:"symbol"`
	// FeedURL is the websocket trade stream for live evaluation.
	FeedURL string `yaml:"feed_url"`
	// BarIntervalMs is the bar width built from the live feed.
	BarIntervalMs int64 `yaml:"bar_interval_ms"`
	// MaxGapMs rejects bar streams with larger holes. 0 disables.
	MaxGapMs int64 `yaml:"max_gap_ms"`
	// MaxCurvePoints bounds stored equity curves. 0 keeps everything.
	MaxCurvePoints int `yaml:"max_curve_points"`
}

type SimulationConfig struct {
	InitialCapital   float64 `yaml:"initial_capital"`
	PositionFraction float64 `yaml:"position_fraction"`
	FeePct           float64 `yaml:"fee_pct"`
	SlippagePct      float64 `yaml:"slippage_pct"`
}

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Default returns the configuration used when no file is given: an
// in-memory backend, default execution parameters and both shipped
// strategies.
func Default() *Config {
	sim := simulation.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{Backend: BackendMemory},
		Data: DataConfig{
			Symbol:        "BTCUSDT",
			BarIntervalMs: 60_000,
		},
		Simulation: SimulationConfig{
			InitialCapital:   sim.InitialCapital,
			PositionFraction: sim.PositionFraction,
			FeePct:           sim.FeePct,
			SlippagePct:      sim.SlippagePct,
		},
		Strategies: []domain.StrategyConfig{
			{StrategyType: domain.StrategyTypeMACDVolume},
			{StrategyType: domain.StrategyTypeVolumeSurge},
		},
	}
}

// Load reads, merges over defaults and validates a config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the config without touching any backend.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Data.BarIntervalMs <= 0 {
		return errors.New("data.bar_interval_ms must be positive")
	}

	if err := c.SimulationConfig().Validate(); err != nil {
		return fmt.Errorf("simulation config invalid: %w", err)
	}

	if len(c.Strategies) == 0 {
		return errors.New("at least one strategy is required")
	}
	seen := make(map[string]struct{}, len(c.Strategies))
	for _, sc := range c.Strategies {
		if _, err := strategy.FromConfig(sc); err != nil {
			return fmt.Errorf("strategy %q invalid: %w", strategyName(sc), err)
		}
		name := strategyName(sc)
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate strategy name %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// SimulationConfig converts the YAML shape into execution parameters.
func (c *Config) SimulationConfig() simulation.Config {
	return simulation.Config{
		InitialCapital:   c.Simulation.InitialCapital,
		PositionFraction: c.Simulation.PositionFraction,
		FeePct:           c.Simulation.FeePct,
		SlippagePct:      c.Simulation.SlippagePct,
	}
}

func strategyName(sc domain.StrategyConfig) string {
	if sc.Name != "" {
		return sc.Name
	}
	return sc.StrategyType
}
