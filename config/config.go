// Package config loads the file-level configuration of a backtest: data
// source, instrument, session, engine rules, strategy and journal.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/strategies"
)

// Config represents the complete run configuration.
type Config struct {
	// Instrument names a preset (MES, ES, MNQ, NQ). Contract fields left
	// zero in the backtest section are taken from it.
	Instrument string          `json:"instrument" yaml:"instrument"`
	Data       DataConfig      `json:"data" yaml:"data"`
	Session    SessionConfig   `json:"session" yaml:"session"`
	Backtest   backtest.Config `json:"backtest" yaml:"backtest"`
	Strategy   StrategyConfig  `json:"strategy" yaml:"strategy"`
	Journal    JournalConfig   `json:"journal" yaml:"journal"`
	Metrics    MetricsConfig   `json:"metrics" yaml:"metrics"`
}

// DataConfig points at a bar file. Timezone applies to timestamps that
// carry no offset.
type DataConfig struct {
	Path     string `json:"path" yaml:"path"`
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// SessionConfig is the trading session. Empty open and close trade all day.
type SessionConfig struct {
	Timezone string `json:"timezone" yaml:"timezone"`
	Open     string `json:"open" yaml:"open"`   // "HH:MM"
	Close    string `json:"close" yaml:"close"` // "HH:MM"
}

type StrategyConfig struct {
	Name   string             `json:"name" yaml:"name"`
	Params map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

// JournalConfig contains journaling parameters.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	OrgDir     string `json:"org_dir,omitempty" yaml:"org_dir,omitempty"`
	Marks      bool   `json:"marks,omitempty" yaml:"marks,omitempty"` // also store per-bar marks
}

// MetricsConfig names a Prometheus textfile to write after each run.
type MetricsConfig struct {
	Textfile string `json:"textfile,omitempty" yaml:"textfile,omitempty"`
}

// Default returns a configuration with sensible defaults. Contract fields
// come from the instrument preset.
func Default() *Config {
	bc := backtest.DefaultConfig()
	bc.Symbol, bc.TickSize, bc.UnitValue, bc.CommissionPerSide = "", 0, 0, 0

	return &Config{
		Instrument: "MES",
		Data: DataConfig{
			Path:     "./data/mes_5m.csv",
			Timezone: "America/New_York",
		},
		Session: SessionConfig{
			Timezone: "America/New_York",
			Open:     "09:30",
			Close:    "16:00",
		},
		Backtest: bc,
		Strategy: StrategyConfig{Name: "volatility_breakout"},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
	}
}

// Parse decodes YAML, falling back to JSON, over the defaults. The entry
// policy is not defaulted: the file must name it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	cfg.Backtest.EntryPolicy = ""

	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		cfg.Backtest.EntryPolicy = ""
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", errors.Join(err, jerr))
		}
	}
	return cfg, nil
}

// LoadFromFile loads and validates a YAML or JSON configuration file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Engine resolves the instrument preset and session into an engine config.
// The result is not validated.
func (c *Config) Engine() (backtest.Config, error) {
	bc := c.Backtest
	if c.Instrument != "" {
		in, err := market.LookupInstrument(c.Instrument)
		if err != nil {
			return bc, err
		}
		if bc.Symbol == "" {
			bc.Symbol = in.Symbol
		}
		if bc.TickSize == 0 {
			bc.TickSize = in.TickSize
		}
		if bc.UnitValue == 0 {
			bc.UnitValue = in.UnitValue
		}
		if bc.CommissionPerSide == 0 {
			bc.CommissionPerSide = in.CommissionPerSide
		}
	}
	sess, err := market.ParseSession(c.Session.Timezone, c.Session.Open, c.Session.Close)
	if err != nil {
		return bc, err
	}
	bc.Session = sess
	return bc, nil
}

// DataLocation is the zone for bar timestamps without an offset.
func (c *Config) DataLocation() (*time.Location, error) {
	if c.Data.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Data.Timezone)
	if err != nil {
		return nil, fmt.Errorf("data.timezone: %w", err)
	}
	return loc, nil
}

// NewStrategy builds a fresh instance of the configured strategy.
func (c *Config) NewStrategy() (strategies.Strategy, error) {
	return strategies.New(c.Strategy.Name, c.Strategy.Params)
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	bc, err := c.Engine()
	if err != nil {
		errs = append(errs, err)
	} else if err := bc.Validate(); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.DataLocation(); err != nil {
		errs = append(errs, err)
	}

	if c.Strategy.Name == "" {
		errs = append(errs, fmt.Errorf("strategy.name is required"))
	} else if _, err := c.NewStrategy(); err != nil {
		errs = append(errs, fmt.Errorf("strategy: %w", err))
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			errs = append(errs, fmt.Errorf("journal trades_file and equity_file required for CSV type"))
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			errs = append(errs, fmt.Errorf("journal db_path required for SQLite type"))
		}
	default:
		errs = append(errs, fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'"))
	}

	return errors.Join(errs...)
}
