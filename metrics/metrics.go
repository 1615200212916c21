// Package metrics derives summary statistics from a finished run. It reads
// the trade log and equity curves once and never mutates them.
package metrics

import (
	"math"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/market"
)

// Summary is the headline statistics of one run. Drawdowns are reported as
// non-negative magnitudes. GrossLoss, AvgLoss and LargestLoss are <= 0.
// ProfitFactor and Sharpe are nil when they are undefined.
type Summary struct {
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	WinRate float64 `json:"win_rate_pct"`

	GrossProfit  float64  `json:"gross_profit"`
	GrossLoss    float64  `json:"gross_loss"`
	NetPnL       float64  `json:"net_pnl"`
	ProfitFactor *float64 `json:"profit_factor"`

	InitialEquity float64 `json:"initial_equity"`
	FinalEquity   float64 `json:"final_equity"`
	ReturnPct     float64 `json:"return_pct"`

	MaxDrawdown       float64 `json:"max_drawdown"`
	MaxDrawdownPct    float64 `json:"max_drawdown_pct"`
	MaxDrawdownMTM    float64 `json:"max_drawdown_mtm"`
	MaxDrawdownMTMPct float64 `json:"max_drawdown_mtm_pct"`

	Sharpe *float64 `json:"sharpe"`

	AvgWin      float64 `json:"avg_win"`
	AvgLoss     float64 `json:"avg_loss"`
	LargestWin  float64 `json:"largest_win"`
	LargestLoss float64 `json:"largest_loss"`
	Expectancy  float64 `json:"expectancy"`
	RiskReward  float64 `json:"risk_reward"`

	LongTrades   int     `json:"long_trades"`
	LongWinRate  float64 `json:"long_win_rate_pct"`
	ShortTrades  int     `json:"short_trades"`
	ShortWinRate float64 `json:"short_win_rate_pct"`

	AvgBarsHeld float64                     `json:"avg_bars_held"`
	ExitReasons map[backtest.ExitReason]int `json:"exit_reasons"`
}

// FromResult computes the summary of a run.
func FromResult(res *backtest.Result) Summary {
	if res == nil {
		return Compute(nil, nil, nil, 0, 0)
	}
	return Compute(res.Trades, res.Equity, res.Marks, res.PeriodsPerYear, res.InitialEquity)
}

// Compute derives every statistic from the closed trades, the per-trade
// equity points and the per-bar marks. Sharpe uses the bar-to-bar returns
// of marks annualized with periodsPerYear.
func Compute(trades []backtest.Trade, equity, marks []backtest.Point, periodsPerYear, initial float64) Summary {
	s := Summary{
		InitialEquity: initial,
		FinalEquity:   initial,
		ExitReasons:   make(map[backtest.ExitReason]int),
	}
	if n := len(equity); n > 0 {
		s.FinalEquity = equity[n-1].Equity
	}

	var longWins, shortWins, barsHeld int
	for _, t := range trades {
		s.Trades++
		s.NetPnL += t.PnL
		barsHeld += t.BarsHeld
		s.ExitReasons[t.Reason]++

		switch {
		case t.PnL > 0:
			s.Wins++
			s.GrossProfit += t.PnL
			s.LargestWin = math.Max(s.LargestWin, t.PnL)
		case t.PnL < 0:
			s.Losses++
			s.GrossLoss += t.PnL
			s.LargestLoss = math.Min(s.LargestLoss, t.PnL)
		}

		if t.Direction == market.Long {
			s.LongTrades++
			if t.Won() {
				longWins++
			}
		} else {
			s.ShortTrades++
			if t.Won() {
				shortWins++
			}
		}
	}

	if s.Trades > 0 {
		s.WinRate = pct(s.Wins, s.Trades)
		s.Expectancy = s.NetPnL / float64(s.Trades)
		s.AvgBarsHeld = float64(barsHeld) / float64(s.Trades)
	}
	if s.Wins > 0 {
		s.AvgWin = s.GrossProfit / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = s.GrossLoss / float64(s.Losses)
		s.RiskReward = s.AvgWin / math.Abs(s.AvgLoss)
	}
	if s.GrossLoss < 0 {
		pf := s.GrossProfit / math.Abs(s.GrossLoss)
		s.ProfitFactor = &pf
	}
	s.LongWinRate = pct(longWins, s.LongTrades)
	s.ShortWinRate = pct(shortWins, s.ShortTrades)

	if initial > 0 {
		s.ReturnPct = (s.FinalEquity - initial) / initial * 100
	}

	s.MaxDrawdown, s.MaxDrawdownPct = MaxDrawdown(equity)
	s.MaxDrawdownMTM, s.MaxDrawdownMTMPct = MaxDrawdown(marks)
	s.Sharpe = Sharpe(Returns(marks), periodsPerYear)
	return s
}

func pct(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of) * 100
}

// MaxDrawdown is the largest peak-to-trough decline, in currency and as a
// percent of the peak it fell from.
func MaxDrawdown(pts []backtest.Point) (amount, pctOfPeak float64) {
	if len(pts) == 0 {
		return 0, 0
	}
	peak := pts[0].Equity
	for _, p := range pts {
		if p.Equity > peak {
			peak = p.Equity
		}
		dd := peak - p.Equity
		if dd > amount {
			amount = dd
		}
		if peak > 0 {
			pctOfPeak = math.Max(pctOfPeak, dd/peak*100)
		}
	}
	return amount, pctOfPeak
}

// Returns are simple period returns between consecutive points. Periods
// starting from non-positive equity are dropped.
func Returns(pts []backtest.Point) []float64 {
	if len(pts) < 2 {
		return nil
	}
	out := make([]float64, 0, len(pts)-1)
	for i := 1; i < len(pts); i++ {
		prev := pts[i-1].Equity
		if prev <= 0 {
			continue
		}
		out = append(out, pts[i].Equity/prev-1)
	}
	return out
}

// Sharpe is mean/stddev of returns scaled by sqrt(periodsPerYear), with a
// zero risk-free rate and the sample standard deviation. It is nil with
// fewer than two returns, zero variance or no annualization factor.
func Sharpe(returns []float64, periodsPerYear float64) *float64 {
	n := len(returns)
	if n < 2 || periodsPerYear <= 0 {
		return nil
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(n)

	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	std := math.Sqrt(ss / float64(n-1))
	if std == 0 || math.IsNaN(std) {
		return nil
	}
	v := mean / std * math.Sqrt(periodsPerYear)
	return &v
}
