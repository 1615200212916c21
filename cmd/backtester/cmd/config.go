package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/strategies"
)

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or validate configuration files",
		Long: `Manage backtest configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  backtester config init -o backtest.yaml
  backtester config validate -f backtest.yaml`,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.v.GetString("output")
			cfg := config.Default()
			if err := cfg.SaveToFile(path); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Created default configuration: %s\n", path)
			fmt.Fprintln(out, "\nEdit the file and run with:")
			fmt.Fprintf(out, "  backtester run --config %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringP("output", "o", "backtest.yaml", "output config file path")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.v.GetString("file")
			if path == "" {
				path = a.v.GetString("config")
			}
			if path == "" {
				return fmt.Errorf("pass --file or --config")
			}
			cfg, err := config.LoadFromFile(path)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			bc, err := cfg.Engine()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Configuration valid: %s\n", path)
			fmt.Fprintf(out, "  Instrument: %s (tick %.2f, $%.2f/point)\n", bc.Symbol, bc.TickSize, bc.UnitValue)
			fmt.Fprintf(out, "  Session:    %s\n", bc.Session)
			fmt.Fprintf(out, "  Strategy:   %s (risk %.2f%%, entry %s)\n", cfg.Strategy.Name, bc.RiskPct, bc.EntryPolicy)
			fmt.Fprintf(out, "  Journal:    %s\n", cfg.Journal.Type)
			return nil
		},
	}
	validateCmd.Flags().StringP("file", "f", "", "path to config file")

	strategiesCmd := &cobra.Command{
		Use:   "strategies",
		Short: "List registered strategy names",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, n := range strategies.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
		},
	}

	configCmd.AddCommand(initCmd, validateCmd, strategiesCmd)
	return configCmd
}
