package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/pkg/id"
)

func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [RUN_ID]",
		Short: "Print journaled runs from the SQLite journal",
		Long: `Report lists recorded runs, or renders one run and its trades as an
Org-mode entry.

Example:
  backtester report --db runs.db
  backtester report --db runs.db 01HRZ4K6J8M3VQ5X2N7B9C0D1E > run.org`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.report(cmd, args)
		},
	}
	cmd.Flags().String("db", "", "SQLite journal path (default journal.db_path)")
	return cmd
}

func (a *app) report(cmd *cobra.Command, args []string) error {
	path := a.v.GetString("db")
	if path == "" {
		cfg, err := a.config()
		if err != nil {
			return err
		}
		path = cfg.Journal.DBPath
	}
	if path == "" {
		return fmt.Errorf("no journal: pass --db or set journal.db_path")
	}

	j, err := journal.NewSQLite(path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		org, err := j.ExportBacktestOrg(ctx, args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(out, org)
		return err
	}

	runs, err := j.ListBacktestRuns(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCREATED\tSTRATEGY\tINSTRUMENT\tTRADES\tNET P/L\tRETURN%")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.2f\t%.2f\n",
			r.RunID, runCreated(r).Format(time.RFC3339), r.Strategy, r.Instrument, r.Trades, r.NetPL, r.ReturnPct)
	}
	return tw.Flush()
}

// runCreated falls back to the timestamp inside the run's ULID for rows
// written without a created time.
func runCreated(r journal.BacktestRun) time.Time {
	if !r.Created.IsZero() {
		return r.Created
	}
	if t, err := id.Time(r.RunID); err == nil {
		return t
	}
	return r.Created
}
