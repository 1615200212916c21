package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/metrics"
	"github.com/rustyeddy/backtester/pkg/id"
)

// RunRecords is a finished run flattened for storage.
type RunRecords struct {
	Run    BacktestRun
	Trades []TradeRecord
	Equity []EquitySnapshot
}

// FromResult flattens a run and its summary. An empty runID gets a fresh
// ULID. Trade IDs are the run ID plus the trade's sequence number. Marks
// are included only when withMarks is set.
func FromResult(runID string, res *backtest.Result, s metrics.Summary, withMarks bool) (RunRecords, error) {
	if res == nil {
		return RunRecords{}, fmt.Errorf("nil result")
	}
	if runID == "" {
		runID = id.New()
	}
	cfg, err := json.Marshal(res.Config)
	if err != nil {
		return RunRecords{}, fmt.Errorf("encode config: %w", err)
	}
	tf, err := market.FormatTimeframe(res.Timeframe)
	if err != nil {
		tf = res.Timeframe.String()
	}

	out := RunRecords{
		Run: BacktestRun{
			RunID:        runID,
			Created:      time.Now().UTC(),
			Timeframe:    tf,
			Dataset:      res.Source,
			Instrument:   res.Instrument,
			Strategy:     res.Strategy,
			Config:       cfg,
			RiskPct:      res.Config.RiskPct,
			Start:        res.Start,
			End:          res.End,
			Bars:         res.Bars,
			Signals:      res.Signals,
			Skipped:      len(res.Skips),
			Trades:       s.Trades,
			Wins:         s.Wins,
			Losses:       s.Losses,
			StartBalance: s.InitialEquity,
			EndBalance:   s.FinalEquity,
			NetPL:        s.NetPnL,
			ReturnPct:    s.ReturnPct,
			WinRate:      s.WinRate,
			ProfitFactor: s.ProfitFactor,
			MaxDD:        s.MaxDrawdown,
			MaxDDPct:     s.MaxDrawdownPct,
			Sharpe:       s.Sharpe,
		},
	}

	for i, t := range res.Trades {
		out.Trades = append(out.Trades, TradeRecord{
			RunID:      runID,
			TradeID:    fmt.Sprintf("%s-%04d", runID, i+1),
			Instrument: res.Instrument,
			Direction:  t.Direction.String(),
			Units:      t.Qty,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			Stop:       t.Stop,
			Target:     t.Target,
			OpenTime:   t.EntryTime,
			CloseTime:  t.ExitTime,
			Commission: t.Commission,
			RealizedPL: t.PnL,
			MAE:        t.MAE,
			MFE:        t.MFE,
			BarsHeld:   t.BarsHeld,
			Reason:     string(t.Reason),
		})
	}
	for _, p := range res.Equity {
		out.Equity = append(out.Equity, EquitySnapshot{RunID: runID, Time: p.Time, Equity: p.Equity, Kind: KindRealized})
	}
	if withMarks {
		for _, p := range res.Marks {
			out.Equity = append(out.Equity, EquitySnapshot{RunID: runID, Time: p.Time, Equity: p.Equity, Kind: KindMark})
		}
	}
	return out, nil
}
