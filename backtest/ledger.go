package backtest

import (
	"time"

	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/risk"
)

// Point is equity at an instant.
type Point struct {
	Time   time.Time
	Equity float64
}

// Ledger owns account state for one run. Realized equity changes only in
// Realize; the day counters reset only in Roll.
type Ledger struct {
	session         market.Session
	maxDailyLossPct float64

	acct   risk.AccountState
	points []Point
	marks  []Point
}

func NewLedger(initial float64, sess market.Session, maxDailyLossPct float64) *Ledger {
	return &Ledger{
		session:         sess,
		maxDailyLossPct: maxDailyLossPct,
		acct: risk.AccountState{
			Equity:           initial,
			StartOfDayEquity: initial,
			LastTradeIndex:   -1,
		},
	}
}

// Start records the opening equity point and the first trading day.
func (l *Ledger) Start(t time.Time) {
	l.acct.Day = l.session.Day(t)
	l.points = append(l.points, Point{Time: t, Equity: l.acct.Equity})
}

// Roll begins a new trading day when t falls on a later session date than
// the current one. It reports whether the day changed.
func (l *Ledger) Roll(t time.Time) bool {
	day := l.session.Day(t)
	if day.Equal(l.acct.Day) {
		return false
	}
	l.acct.Day = day
	l.acct.StartOfDayEquity = l.acct.Equity
	l.acct.DayRealized = 0
	l.acct.DayTrades = 0
	l.acct.Halted = false
	return true
}

// Realize books a closed trade and appends one equity point. It reports
// whether this close tripped the daily-loss breaker.
func (l *Ledger) Realize(tr Trade) bool {
	l.acct.Equity += tr.PnL
	l.acct.DayRealized += tr.PnL
	l.acct.DayTrades++
	l.acct.LastTradeIndex = tr.ExitIndex
	l.points = append(l.points, Point{Time: tr.ExitTime, Equity: l.acct.Equity})

	if !l.acct.Halted && risk.DailyLossBreached(l.maxDailyLossPct, l.acct) {
		l.acct.Halted = true
		return true
	}
	return false
}

// Mark appends a mark-to-market point: realized equity plus unrealized.
func (l *Ledger) Mark(t time.Time, unrealized float64) {
	l.marks = append(l.marks, Point{Time: t, Equity: l.acct.Equity + unrealized})
}

// Account returns a copy of the account state.
func (l *Ledger) Account() risk.AccountState { return l.acct }

func (l *Ledger) Equity() float64 { return l.acct.Equity }

func (l *Ledger) StartOfDayEquity() float64 { return l.acct.StartOfDayEquity }

// Points returns the realized equity curve.
func (l *Ledger) Points() []Point { return append([]Point(nil), l.points...) }

// Marks returns the per-bar mark-to-market curve.
func (l *Ledger) Marks() []Point { return append([]Point(nil), l.marks...) }
