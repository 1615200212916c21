package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/metrics"
	"github.com/rustyeddy/backtester/observability"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Backtest a strategy over one bar file",
		Long: `Run replays one bar file (CSV or Parquet) through the configured strategy,
prints a summary and journals the trades.

Example:
  backtester run --config backtest.yaml --data data/mes_5m.csv
  backtester run --data mes.parquet --strategy ema_cross --db runs.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOne(cmd)
		},
	}
	cmd.Flags().StringP("data", "d", "", "bar file (overrides data.path)")
	cmd.Flags().Bool("json", false, "print the summary as JSON")
	addOverrideFlags(cmd)
	return cmd
}

func (a *app) runOne(cmd *cobra.Command) error {
	cfg, err := a.resolve()
	if err != nil {
		return err
	}
	bc, err := cfg.Engine()
	if err != nil {
		return err
	}
	path := cfg.Data.Path
	if p := a.v.GetString("data"); p != "" {
		path = p
	}

	series, err := loadSeries(cfg, bc, path)
	if err != nil {
		return err
	}
	strat, err := cfg.NewStrategy()
	if err != nil {
		return err
	}
	eng, err := backtest.NewEngine(bc, &a.log)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := eng.Run(series, strat)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	elapsed := time.Since(start)
	s := metrics.FromResult(res)

	out := cmd.OutOrStdout()
	if a.v.GetBool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			return err
		}
	} else {
		metrics.Print(out, res, s)
	}

	runID, err := persist(cmd.Context(), cfg, res, s, a.log)
	if err != nil {
		return err
	}
	if !a.v.GetBool("json") {
		fmt.Fprintf(out, "Run ID:        %s\n", runID)
	}

	if cfg.Metrics.Textfile != "" {
		m := observability.NewMetrics("")
		m.Record(res, s, elapsed)
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
