package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/market"
)

func TestLedger_DayBoundaries(t *testing.T) {
	t.Parallel()

	day1 := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	l := NewLedger(10000, market.Session{Location: time.UTC}, 1.0)
	l.Start(day1)

	acct := l.Account()
	assert.True(t, acct.Day.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 10000.0, acct.StartOfDayEquity)
	assert.Equal(t, -1, acct.LastTradeIndex)

	halted := l.Realize(Trade{ExitIndex: 3, ExitTime: day1.Add(time.Hour), PnL: -150})
	assert.True(t, halted)
	assert.Equal(t, 9850.0, l.Equity())
	// fixed for the rest of the day
	assert.Equal(t, 10000.0, l.StartOfDayEquity())

	halted = l.Realize(Trade{ExitIndex: 9, ExitTime: day1.Add(2 * time.Hour), PnL: 300})
	assert.False(t, halted, "latch already set")

	acct = l.Account()
	assert.True(t, acct.Halted)
	assert.Equal(t, 2, acct.DayTrades)
	assert.Equal(t, 9, acct.LastTradeIndex)
	assert.InDelta(t, 150.0, acct.DayRealized, 1e-9)

	assert.False(t, l.Roll(day1.Add(3*time.Hour)))
	require.True(t, l.Roll(day2))

	acct = l.Account()
	assert.Equal(t, 10150.0, acct.StartOfDayEquity)
	assert.Zero(t, acct.DayRealized)
	assert.Zero(t, acct.DayTrades)
	assert.False(t, acct.Halted)
	assert.Equal(t, 9, acct.LastTradeIndex)

	pts := l.Points()
	require.Len(t, pts, 3)
	assert.Equal(t, []float64{10000, 9850, 10150}, []float64{pts[0].Equity, pts[1].Equity, pts[2].Equity})

	pts[0].Equity = 0
	assert.Equal(t, 10000.0, l.Points()[0].Equity, "Points returns a copy")
}

func TestLedger_SessionCalendar(t *testing.T) {
	t.Parallel()

	sess := market.RTH()
	ny := sess.Location
	l := NewLedger(10000, sess, 0)

	// 23:00 and 01:00 UTC the next day are both March 4 in New York
	l.Start(time.Date(2024, 3, 4, 23, 0, 0, 0, time.UTC))
	assert.False(t, l.Roll(time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC)))
	assert.True(t, l.Roll(time.Date(2024, 3, 5, 9, 30, 0, 0, ny)))
}

func TestLedger_Marks(t *testing.T) {
	t.Parallel()

	l := NewLedger(10000, market.Session{}, 0)
	l.Start(t0)
	l.Mark(t0, -20)
	l.Mark(t0.Add(time.Minute), 35)

	marks := l.Marks()
	require.Len(t, marks, 2)
	assert.Equal(t, 9980.0, marks[0].Equity)
	assert.Equal(t, 10035.0, marks[1].Equity)
	assert.Len(t, l.Points(), 1)
}
