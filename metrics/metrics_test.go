package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/strategies"
)

var t0 = time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)

func trade(dir market.Side, pnl float64, bars int, reason backtest.ExitReason) backtest.Trade {
	return backtest.Trade{
		Position: backtest.Position{Direction: dir, BarsHeld: bars},
		PnL:      pnl,
		Reason:   reason,
	}
}

func curve(vals ...float64) []backtest.Point {
	out := make([]backtest.Point, len(vals))
	for i, v := range vals {
		out[i] = backtest.Point{Time: t0.Add(time.Duration(i) * 5 * time.Minute), Equity: v}
	}
	return out
}

func TestCompute(t *testing.T) {
	t.Parallel()

	trades := []backtest.Trade{
		trade(market.Long, 100, 4, backtest.ExitTarget),
		trade(market.Short, -50, 2, backtest.ExitStop),
		trade(market.Short, 30, 3, backtest.ExitTarget),
		trade(market.Long, -20, 7, backtest.ExitTimeStop),
	}
	equity := curve(10000, 10100, 10050, 10080, 10060)

	s := Compute(trades, equity, equity, 252, 10000)

	assert.Equal(t, 4, s.Trades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.InDelta(t, 50.0, s.WinRate, 1e-9)

	assert.InDelta(t, 130.0, s.GrossProfit, 1e-9)
	assert.InDelta(t, -70.0, s.GrossLoss, 1e-9)
	assert.InDelta(t, 60.0, s.NetPnL, 1e-9)
	require.NotNil(t, s.ProfitFactor)
	assert.InDelta(t, 130.0/70.0, *s.ProfitFactor, 1e-9)

	assert.InDelta(t, 65.0, s.AvgWin, 1e-9)
	assert.InDelta(t, -35.0, s.AvgLoss, 1e-9)
	assert.InDelta(t, 100.0, s.LargestWin, 1e-9)
	assert.InDelta(t, -50.0, s.LargestLoss, 1e-9)
	assert.InDelta(t, 15.0, s.Expectancy, 1e-9)
	assert.InDelta(t, 65.0/35.0, s.RiskReward, 1e-9)
	assert.InDelta(t, 4.0, s.AvgBarsHeld, 1e-9)

	assert.Equal(t, 2, s.LongTrades)
	assert.Equal(t, 2, s.ShortTrades)
	assert.InDelta(t, 50.0, s.LongWinRate, 1e-9)
	assert.InDelta(t, 50.0, s.ShortWinRate, 1e-9)

	assert.InDelta(t, 10060.0, s.FinalEquity, 1e-9)
	assert.InDelta(t, 0.6, s.ReturnPct, 1e-9)
	assert.InDelta(t, 50.0, s.MaxDrawdown, 1e-9)
	assert.InDelta(t, 50.0/10100*100, s.MaxDrawdownPct, 1e-9)

	assert.Equal(t, map[backtest.ExitReason]int{
		backtest.ExitTarget:   2,
		backtest.ExitStop:     1,
		backtest.ExitTimeStop: 1,
	}, s.ExitReasons)
	assert.NotNil(t, s.Sharpe)
}

func TestCompute_NoLosses(t *testing.T) {
	t.Parallel()

	s := Compute([]backtest.Trade{trade(market.Long, 40, 1, backtest.ExitTarget)}, curve(1000, 1040), nil, 252, 1000)
	assert.Nil(t, s.ProfitFactor, "profit factor is undefined without losses")
	assert.Zero(t, s.GrossLoss)
	assert.Zero(t, s.RiskReward)
	assert.InDelta(t, 100.0, s.LongWinRate, 1e-9)
	assert.Zero(t, s.ShortWinRate)
}

func TestCompute_ZeroTrades(t *testing.T) {
	t.Parallel()

	s := Compute(nil, curve(10000), curve(10000, 10000, 10000), 78*252, 10000)
	assert.Zero(t, s.Trades)
	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.NetPnL)
	assert.Zero(t, s.MaxDrawdown)
	assert.Zero(t, s.ReturnPct)
	assert.Nil(t, s.ProfitFactor)
	assert.Nil(t, s.Sharpe)
	assert.Equal(t, 10000.0, s.FinalEquity)
	assert.Empty(t, s.ExitReasons)

	empty := FromResult(nil)
	assert.Zero(t, empty.Trades)
	assert.Nil(t, empty.Sharpe)
}

func TestFromResult_NoopRun(t *testing.T) {
	t.Parallel()

	bars := make([]market.Bar, 40)
	for i := range bars {
		p := 100 + float64(i%5)
		bars[i] = market.Bar{Time: t0.Add(time.Duration(i) * 5 * time.Minute), Open: p, High: p + 1, Low: p - 1, Close: p}
	}
	series, err := market.NewSeries("MES", bars)
	require.NoError(t, err)

	eng, err := backtest.NewEngine(backtest.DefaultConfig(), nil)
	require.NoError(t, err)
	res, err := eng.Run(series, strategies.Noop{})
	require.NoError(t, err)

	s := FromResult(res)
	assert.Zero(t, s.Trades)
	assert.Nil(t, s.ProfitFactor)
	assert.Nil(t, s.Sharpe, "flat marks have no variance")
	assert.Equal(t, res.InitialEquity, s.FinalEquity)

	var buf bytes.Buffer
	Print(&buf, res, s)
	assert.Contains(t, buf.String(), "Profit Factor: n/a")
	assert.Contains(t, buf.String(), "Trades:        0")
}

func TestMaxDrawdown(t *testing.T) {
	t.Parallel()

	amt, pct := MaxDrawdown(curve(100, 120, 90, 130, 110, 125))
	assert.InDelta(t, 30.0, amt, 1e-9)
	assert.InDelta(t, 25.0, pct, 1e-9)

	amt, pct = MaxDrawdown(nil)
	assert.Zero(t, amt)
	assert.Zero(t, pct)
}

func TestSharpe(t *testing.T) {
	t.Parallel()

	rets := Returns(curve(10000, 10100, 9999, 10198.98))
	require.Len(t, rets, 3)
	assert.InDelta(t, 0.01, rets[0], 1e-9)
	assert.InDelta(t, -0.01, rets[1], 1e-9)
	assert.InDelta(t, 0.02, rets[2], 1e-9)

	got := Sharpe(rets, 252)
	require.NotNil(t, got)
	assert.InDelta(t, 6.92820323, *got, 1e-6)

	// the annualization factor comes from the bar interval
	intraday := Sharpe(rets, 78*252)
	require.NotNil(t, intraday)
	assert.InDelta(t, *got*8.83176087, *intraday, 1e-5)

	assert.Nil(t, Sharpe([]float64{0.01}, 252))
	assert.Nil(t, Sharpe([]float64{0.01, 0.01}, 252))
	assert.Nil(t, Sharpe(rets, 0))
}
