package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/metrics"
	"github.com/rustyeddy/backtester/observability"
)

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch FILE...",
		Short: "Backtest the same strategy over several bar files in parallel",
		Long: `Batch runs one independent backtest per bar file. Each run has its own
engine, strategy instance and ledger; results print in argument order.

Example:
  backtester batch --config backtest.yaml --workers 4 data/*.parquet`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, args)
		},
	}
	cmd.Flags().IntP("workers", "w", 0, "concurrent runs (0 = GOMAXPROCS)")
	cmd.Flags().Bool("fail-fast", false, "stop starting runs after the first failure")
	addOverrideFlags(cmd)
	return cmd
}

func (a *app) runBatch(cmd *cobra.Command, files []string) error {
	cfg, err := a.resolve()
	if err != nil {
		return err
	}
	bc, err := cfg.Engine()
	if err != nil {
		return err
	}
	m := observability.NewMetrics("")

	var (
		jobs   []backtest.Job
		failed []string
	)
	for _, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		series, err := loadSeries(cfg, bc, f)
		if err != nil {
			a.log.Error().Err(err).Str("job", name).Msg("skipping file")
			m.RecordError(name)
			failed = append(failed, name)
			continue
		}
		jobs = append(jobs, backtest.Job{Name: name, Series: series, NewStrategy: cfg.NewStrategy})
	}

	start := time.Now()
	results, err := backtest.RunBatch(cmd.Context(), bc, jobs, backtest.BatchOptions{
		Workers:  a.v.GetInt("workers"),
		FailFast: a.v.GetBool("fail-fast"),
		Logger:   &a.log,
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if cfg.Journal.Type == "csv" && len(results) > 1 {
		a.log.Warn().Msg("csv journal keeps only the last run of a batch; use sqlite")
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tBARS\tTRADES\tWIN%\tNET P/L\tRETURN%\tMAX DD%\tSHARPE\tRUN ID")
	for _, jr := range results {
		if jr.Err != nil {
			m.RecordError(jr.Name)
			failed = append(failed, jr.Name)
			fmt.Fprintf(tw, "%s\terror: %v\n", jr.Name, jr.Err)
			continue
		}
		s := metrics.FromResult(jr.Result)
		m.Record(jr.Result, s, elapsed)
		runID, err := persist(cmd.Context(), cfg, jr.Result, s, a.log.With().Str("job", jr.Name).Logger())
		if err != nil {
			return fmt.Errorf("job %s: %w", jr.Name, err)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t%s\n",
			jr.Name, jr.Result.Bars, s.Trades, s.WinRate, s.NetPnL, s.ReturnPct, s.MaxDrawdownPct,
			sharpeCell(s.Sharpe), runID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d jobs failed: %s", len(failed), len(files), strings.Join(failed, ", "))
	}
	return nil
}

func sharpeCell(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
