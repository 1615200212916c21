package metrics

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rustyeddy/backtester/backtest"
)

// Print writes a plain-text report of a run and its summary.
func Print(w io.Writer, res *backtest.Result, s Summary) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	if res != nil {
		fmt.Fprintf(w, "Strategy:      %s\n", res.Strategy)
		fmt.Fprintf(w, "Instrument:    %s\n", res.Instrument)
		fmt.Fprintf(w, "Timeframe:     %s\n", res.Timeframe)
		if res.Source != "" {
			fmt.Fprintf(w, "Dataset:       %s\n", res.Source)
		}

		fmt.Fprintln(w)
		fmt.Fprintln(w, "Period")
		fmt.Fprintln(w, "--------------------------------------------------")
		fmt.Fprintf(w, "Start:         %s\n", res.Start.Format(time.RFC3339))
		fmt.Fprintf(w, "End:           %s\n", res.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Bars:          %d\n", res.Bars)
		fmt.Fprintf(w, "Signals:       %d\n", res.Signals)
		fmt.Fprintf(w, "Skipped:       %d invalid, %d constrained\n",
			res.SkipsOf(backtest.SkipInvalidSignal), res.SkipsOf(backtest.SkipConstraint))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d (long %d, short %d)\n", s.Trades, s.LongTrades, s.ShortTrades)
	fmt.Fprintf(w, "Wins:          %d\n", s.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", s.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%% (long %.2f%%, short %.2f%%)\n", s.WinRate, s.LongWinRate, s.ShortWinRate)
	fmt.Fprintf(w, "Avg Win:       %.2f\n", s.AvgWin)
	fmt.Fprintf(w, "Avg Loss:      %.2f\n", s.AvgLoss)
	fmt.Fprintf(w, "Largest Win:   %.2f\n", s.LargestWin)
	fmt.Fprintf(w, "Largest Loss:  %.2f\n", s.LargestLoss)
	fmt.Fprintf(w, "Expectancy:    %.2f\n", s.Expectancy)
	fmt.Fprintf(w, "Risk/Reward:   %.2f\n", s.RiskReward)
	fmt.Fprintf(w, "Avg Bars Held: %.1f\n", s.AvgBarsHeld)

	if len(s.ExitReasons) > 0 {
		reasons := make([]string, 0, len(s.ExitReasons))
		for r := range s.ExitReasons {
			reasons = append(reasons, string(r))
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Fprintf(w, "  %-12s %d\n", r+":", s.ExitReasons[backtest.ExitReason(r)])
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Equity:  %.2f\n", s.InitialEquity)
	fmt.Fprintf(w, "End Equity:    %.2f\n", s.FinalEquity)
	fmt.Fprintf(w, "Net P/L:       %.2f\n", s.NetPnL)
	fmt.Fprintf(w, "Return:        %.2f%%\n", s.ReturnPct)
	fmt.Fprintf(w, "Profit Factor: %s\n", optional(s.ProfitFactor))
	fmt.Fprintf(w, "Max Drawdown:  %.2f (%.2f%%)\n", s.MaxDrawdown, s.MaxDrawdownPct)
	fmt.Fprintf(w, "MTM Drawdown:  %.2f (%.2f%%)\n", s.MaxDrawdownMTM, s.MaxDrawdownMTMPct)
	fmt.Fprintf(w, "Sharpe:        %s\n", optional(s.Sharpe))
	fmt.Fprintln(w)
}

func optional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
