package backtest

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/backtester/market"
)

// Filler prices simulated orders. Slippage is ticks times the price tick
// size, always against the trader; it never involves the currency tick value.
type Filler struct {
	tick      decimal.Decimal
	entryTick int
	exitTick  int
	policy    EntryPolicy
}

func NewFiller(cfg Config) Filler {
	return Filler{
		tick:      decimal.NewFromFloat(cfg.TickSize),
		entryTick: cfg.SlippageTicks,
		exitTick:  cfg.ExitSlippageTicks,
		policy:    cfg.EntryPolicy,
	}
}

// FillIndex is the bar a signal on bar i of an n-bar series fills on. Under
// next_open that is the following bar; a signal on the final bar falls back
// to its own close. The fill price is read only when the replay reaches it.
func (f Filler) FillIndex(i, n int) int {
	if f.policy == EntryNextOpen && i+1 < n {
		return i + 1
	}
	return i
}

// Entry moves ref up for longs and down for shorts.
func (f Filler) Entry(ref float64, dir market.Side) float64 {
	return f.slip(ref, dir, f.entryTick)
}

// Exit moves ref down for closing longs and up for closing shorts.
func (f Filler) Exit(ref float64, dir market.Side) float64 {
	return f.slip(ref, -dir, f.exitTick)
}

func (f Filler) slip(ref float64, against market.Side, ticks int) float64 {
	if ticks == 0 {
		return ref
	}
	off := f.tick.Mul(decimal.NewFromInt(int64(ticks) * int64(against)))
	return decimal.NewFromFloat(ref).Add(off).InexactFloat64()
}
