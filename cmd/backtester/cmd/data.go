package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/market/data"
)

func newDataCmd(a *app) *cobra.Command {
	dataCmd := &cobra.Command{
		Use:   "data",
		Short: "Inspect and convert bar files",
	}

	convertCmd := &cobra.Command{
		Use:   "convert IN OUT",
		Short: "Convert a bar file between CSV and Parquet",
		Long: `Convert reads IN (CSV or Parquet), validates it as a bar series and writes
OUT in the format named by its extension.

Example:
  backtester data convert raw/mes_5m.csv data/mes_5m.parquet`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			bc, err := cfg.Engine()
			if err != nil {
				return err
			}
			series, err := loadSeries(cfg, bc, args[0])
			if err != nil {
				return err
			}

			out := args[1]
			switch strings.ToLower(filepath.Ext(out)) {
			case ".parquet", ".pq":
				err = data.WriteParquet(out, series.Instrument, series.Bars)
			default:
				var f *os.File
				if f, err = os.Create(out); err == nil {
					err = data.WriteCSV(f, series.Bars)
					if cerr := f.Close(); err == nil {
						err = cerr
					}
				}
			}
			if err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d bars to %s\n", series.Len(), out)
			return nil
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats FILE",
		Short: "Print timeframe, range and gap statistics of a bar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			bc, err := cfg.Engine()
			if err != nil {
				return err
			}
			series, err := loadSeries(cfg, bc, args[0])
			if err != nil {
				return err
			}
			series.PrintStats(cmd.OutOrStdout(), bc.Session)
			return nil
		},
	}

	dataCmd.AddCommand(convertCmd, statsCmd)
	return dataCmd
}
