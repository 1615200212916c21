package risk

import (
	"time"

	"github.com/rustyeddy/backtester/market"
)

// Limits are the entry filters checked by Evaluate. Zero values disable
// the count and loss limits.
type Limits struct {
	Session    market.Session
	AvoidFirst time.Duration // no entries this long after the open
	AvoidLast  time.Duration // no entries this long before the close

	MaxTradesPerDay int
	MinBarSpacing   int     // bars since the last trade closed
	MaxDailyLossPct float64 // realized loss vs start-of-day equity, 2.0 = 2%
}

// AccountState is the account as seen by the gate. The ledger owns it and
// hands out copies.
type AccountState struct {
	Equity           float64
	StartOfDayEquity float64
	Day              time.Time // session-local midnight
	DayRealized      float64
	DayTrades        int
	LastTradeIndex   int // bar index of the last close, -1 before any trade
	Halted           bool
}

// DayPnLPct is today's realized P/L as a percentage of start-of-day equity.
func (a AccountState) DayPnLPct() float64 {
	if a.StartOfDayEquity <= 0 {
		return 0
	}
	return a.DayRealized / a.StartOfDayEquity * 100
}

// DailyLossBreached reports whether today's realized loss has reached maxPct.
func DailyLossBreached(maxPct float64, a AccountState) bool {
	if maxPct <= 0 {
		return false
	}
	return a.DayPnLPct() <= -maxPct
}
