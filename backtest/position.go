package backtest

import (
	"math"
	"time"

	"github.com/rustyeddy/backtester/market"
)

type ExitReason string

const (
	ExitStop      ExitReason = "stop"
	ExitTarget    ExitReason = "target"
	ExitTimeStop  ExitReason = "time_stop"
	ExitEndOfData ExitReason = "end_of_data"
)

// Position is the single open trade. MAE and MFE are in price points:
// MAE <= 0, MFE >= 0.
type Position struct {
	Direction     market.Side
	EntryTime     time.Time
	EntryIndex    int
	EntryPrice    float64
	Qty           int
	Stop          float64
	Target        float64
	BarsHeld      int
	MAE           float64
	MFE           float64
	EquityAtEntry float64
	RiskAmount    float64
	Quality       float64
	Signal        string
}

// Trade is a closed Position.
type Trade struct {
	Position
	ExitTime   time.Time
	ExitIndex  int
	ExitPrice  float64
	Reason     ExitReason
	Commission float64
	PnL        float64 // currency, net of commission
	PnLPct     float64 // percent of equity at entry
}

// Points is the gross price move in the trade's favor.
func (t Trade) Points() float64 {
	return float64(t.Direction) * (t.ExitPrice - t.EntryPrice)
}

// Won reports a strictly positive net result.
func (t Trade) Won() bool { return t.PnL > 0 }

func (p *Position) updateExcursion(b market.Bar) {
	var adverse, favorable float64
	if p.Direction == market.Long {
		adverse = math.Min(0, b.Low-p.EntryPrice)
		favorable = math.Max(0, b.High-p.EntryPrice)
	} else {
		adverse = math.Min(0, p.EntryPrice-b.High)
		favorable = math.Max(0, p.EntryPrice-b.Low)
	}
	p.MAE = math.Min(p.MAE, adverse)
	p.MFE = math.Max(p.MFE, favorable)
}

// grossPnL is the currency result of closing at px, before commission.
func (p *Position) grossPnL(px, unitValue float64) float64 {
	return float64(p.Qty) * (px - p.EntryPrice) * float64(p.Direction) * unitValue
}

// checkExit models stop/target hits within a bar. If both are inside the
// bar's range the stop is assumed to fill first. A bar that opens beyond a
// level fills at the open. The time stop uses the close.
func checkExit(p *Position, b market.Bar, maxBarsHeld int) (px float64, reason ExitReason, hit bool) {
	switch p.Direction {
	case market.Long:
		if b.Low <= p.Stop {
			return math.Min(p.Stop, b.Open), ExitStop, true
		}
		if b.High >= p.Target {
			return math.Max(p.Target, b.Open), ExitTarget, true
		}
	case market.Short:
		if b.High >= p.Stop {
			return math.Max(p.Stop, b.Open), ExitStop, true
		}
		if b.Low <= p.Target {
			return math.Min(p.Target, b.Open), ExitTarget, true
		}
	}

	if maxBarsHeld > 0 && p.BarsHeld >= maxBarsHeld {
		return b.Close, ExitTimeStop, true
	}
	return 0, "", false
}
