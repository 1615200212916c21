package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/market/data"
	"github.com/rustyeddy/backtester/metrics"
)

// addOverrideFlags registers the flags that patch a loaded config.
func addOverrideFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("strategy", "", "strategy name (overrides strategy.name)")
	f.String("instrument", "", "instrument preset (overrides instrument)")
	f.String("entry-policy", "", "entry policy: close or next_open")
	f.Float64("risk-pct", 0, "percent of equity risked per trade")
	f.String("journal", "", "journal type: none, csv or sqlite")
	f.String("db", "", "SQLite journal path (implies --journal sqlite)")
	f.String("org-dir", "", "directory for org-mode run reports")
	f.String("metrics-textfile", "", "write Prometheus metrics to this file")
}

// resolve loads the config and applies flag and env overrides.
func (a *app) resolve() (*config.Config, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	v := a.v
	if s := v.GetString("strategy"); s != "" {
		cfg.Strategy = config.StrategyConfig{Name: s}
	}
	if s := v.GetString("instrument"); s != "" {
		cfg.Instrument = s
		cfg.Backtest.Symbol, cfg.Backtest.TickSize, cfg.Backtest.UnitValue, cfg.Backtest.CommissionPerSide = "", 0, 0, 0
	}
	if s := v.GetString("entry-policy"); s != "" {
		cfg.Backtest.EntryPolicy = backtest.EntryPolicy(s)
	}
	if r := v.GetFloat64("risk-pct"); r != 0 {
		cfg.Backtest.RiskPct = r
	}
	if s := v.GetString("journal"); s != "" {
		cfg.Journal.Type = s
	}
	if s := v.GetString("db"); s != "" {
		cfg.Journal.Type = "sqlite"
		cfg.Journal.DBPath = s
	}
	if s := v.GetString("org-dir"); s != "" {
		cfg.Journal.OrgDir = s
	}
	if s := v.GetString("metrics-textfile"); s != "" {
		cfg.Metrics.Textfile = s
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadSeries(cfg *config.Config, bc backtest.Config, path string) (*market.Series, error) {
	loc, err := cfg.DataLocation()
	if err != nil {
		return nil, err
	}
	s, err := data.Load(path, bc.Symbol, loc)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return s, nil
}

// persist journals one run and writes its org report. It returns the run ID.
func persist(ctx context.Context, cfg *config.Config, res *backtest.Result, s metrics.Summary, log zerolog.Logger) (string, error) {
	recs, err := journal.FromResult("", res, s, cfg.Journal.Marks)
	if err != nil {
		return "", err
	}
	runID := recs.Run.RunID

	switch cfg.Journal.Type {
	case "csv":
		j, err := journal.NewCSV(cfg.Journal.TradesFile, cfg.Journal.EquityFile)
		if err != nil {
			return "", fmt.Errorf("open csv journal: %w", err)
		}
		if err := journal.Record(j, recs.Trades, recs.Equity); err != nil {
			_ = j.Close()
			return "", err
		}
		if err := j.Close(); err != nil {
			return "", err
		}
	case "sqlite":
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return "", fmt.Errorf("open db: %w", err)
		}
		defer j.Close()
		if err := j.RecordRun(ctx, recs.Run, recs.Trades, recs.Equity); err != nil {
			return "", err
		}
	}

	if cfg.Journal.OrgDir != "" {
		if err := os.MkdirAll(cfg.Journal.OrgDir, 0o755); err != nil {
			return "", err
		}
		recs.Run.OrgPath = filepath.Join(cfg.Journal.OrgDir, runID+".org")
		if err := recs.Run.WriteBacktestOrg(recs.Trades); err != nil {
			return "", err
		}
	}

	log.Info().
		Str("run_id", runID).
		Str("journal", cfg.Journal.Type).
		Int("trades", len(recs.Trades)).
		Msg("run journaled")
	return runID, nil
}
