// Package cmd implements the backtester command line.
package cmd

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/internal/logx"
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	v   *viper.Viper
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "backtester",
		Short: "Bar-by-bar backtesting of rules-based futures strategies",
		Long: `Backtester replays historical OHLCV bars through a strategy and reports
what a disciplined, risk-sized execution of its signals would have done.

It provides tools for:
  - Running a strategy over one bar file or many in parallel
  - Risk-based position sizing with daily loss and trade-count limits
  - Journaling trades and equity curves to CSV or SQLite
  - Org-mode run reports and Prometheus textfile metrics
  - Converting bar files between CSV and Parquet

Every option can come from a config file, a flag or a BACKTESTER_* variable.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "config file (YAML or JSON)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "console", "log format (console, json)")

	a.v.SetEnvPrefix("BACKTESTER")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()
	_ = a.v.BindPFlags(pf)

	root.AddCommand(
		newRunCmd(a),
		newBatchCmd(a),
		newReportCmd(a),
		newConfigCmd(a),
		newDataCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	log, err := logx.New(cmd.ErrOrStderr(), a.v.GetString("log-level"), a.v.GetString("log-format"))
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

// config loads --config when given, otherwise the defaults.
func (a *app) config() (*config.Config, error) {
	path := a.v.GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	a.log.Debug().Str("path", path).Msg("config loaded")
	return cfg, nil
}

// Execute runs the command line against os.Args.
func Execute() error {
	return newRootCmd().Execute()
}
