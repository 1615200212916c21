package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/backtest"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, "MES", cfg.Instrument)
	assert.Equal(t, 1.0, cfg.Backtest.RiskPct)
	assert.Equal(t, backtest.EntryClose, cfg.Backtest.EntryPolicy)
	assert.NoError(t, cfg.Validate())
}

func TestEngine(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Instrument = "es"

	bc, err := cfg.Engine()
	require.NoError(t, err)
	assert.Equal(t, "ES", bc.Symbol)
	assert.Equal(t, 0.25, bc.TickSize)
	assert.Equal(t, 50.0, bc.UnitValue)
	assert.Equal(t, 2.25, bc.CommissionPerSide)
	assert.Equal(t, 9*time.Hour+30*time.Minute, bc.Session.Open)
	assert.Equal(t, "America/New_York", bc.Session.Location.String())
	require.NoError(t, bc.Validate())

	// explicit contract fields win over the preset
	cfg.Backtest.UnitValue = 10
	bc, err = cfg.Engine()
	require.NoError(t, err)
	assert.Equal(t, 10.0, bc.UnitValue)

	cfg.Session = SessionConfig{}
	bc, err = cfg.Engine()
	require.NoError(t, err)
	assert.False(t, bc.Session.Bounded())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"unknown instrument", func(c *Config) { c.Instrument = "EUR_USD" }, "unknown instrument"},
		{"bad session", func(c *Config) { c.Session.Open = "16:00"; c.Session.Close = "09:30" }, "must be after open"},
		{"bad data zone", func(c *Config) { c.Data.Timezone = "Mars/Olympus" }, "data.timezone"},
		{"risk out of range", func(c *Config) { c.Backtest.RiskPct = 0 }, "risk_pct"},
		{"missing entry policy", func(c *Config) { c.Backtest.EntryPolicy = "" }, "entry_policy"},
		{"missing strategy", func(c *Config) { c.Strategy.Name = "" }, "strategy.name is required"},
		{"unknown strategy", func(c *Config) { c.Strategy.Name = "martingale" }, "unknown strategy"},
		{"bad strategy param", func(c *Config) { c.Strategy.Params = map[string]float64{"bogus": 1} }, "bogus"},
		{"journal type", func(c *Config) { c.Journal.Type = "parquet" }, "journal.type"},
		{"csv files", func(c *Config) { c.Journal.EquityFile = "" }, "required for CSV type"},
		{"sqlite path", func(c *Config) { c.Journal = JournalConfig{Type: "sqlite"} }, "db_path required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	cfg := Default()
	cfg.Journal = JournalConfig{Type: "none"}
	assert.NoError(t, cfg.Validate())
}

func TestSaveAndLoadYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "backtest.yaml")
	cfg := Default()
	cfg.Strategy = StrategyConfig{Name: "ema_cross", Params: map[string]float64{"fast_period": 8, "slow_period": 21}}
	cfg.Backtest.EntryPolicy = backtest.EntryNextOpen
	require.NoError(t, cfg.SaveToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "entry_policy: next_open")
	assert.Contains(t, string(data), "risk_pct: 1")

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Strategy, got.Strategy)
	assert.Equal(t, backtest.EntryNextOpen, got.Backtest.EntryPolicy)
	assert.Equal(t, cfg.Backtest.MaxDailyLossPct, got.Backtest.MaxDailyLossPct)
}

func TestSaveAndLoadJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "backtest.json")
	cfg := Default()
	cfg.Journal = JournalConfig{Type: "sqlite", DBPath: "runs.db"}
	require.NoError(t, cfg.SaveToFile(path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", got.Journal.Type)
	assert.Equal(t, "runs.db", got.Journal.DBPath)
}

func TestParsePartialFile(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`
instrument: MNQ
backtest:
  risk_pct: 0.5
  entry_policy: close
strategy:
  name: noop
`))
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Backtest.RiskPct)
	assert.Equal(t, 3, cfg.Backtest.MaxTradesPerDay, "unset keys keep defaults")
	require.NoError(t, cfg.Validate())
	bc, err := cfg.Engine()
	require.NoError(t, err)
	assert.Equal(t, "MNQ", bc.Symbol)
	assert.Equal(t, 2.0, bc.UnitValue)

	missing, err := Parse([]byte("strategy:\n  name: noop\n"))
	require.NoError(t, err)
	assert.ErrorIs(t, missing.Validate(), backtest.ErrConfig, "entry policy must be stated")
}

func TestLoadFromFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("backtest: [1, 2\n"), 0o644))
	_, err = LoadFromFile(bad)
	assert.ErrorContains(t, err, "parse config")
}
