package risk

import (
	"fmt"
	"time"
)

// Gate reason codes.
const (
	OutsideSession     = "OUTSIDE_SESSION"
	SessionOpenBuffer  = "SESSION_OPEN_BUFFER"
	SessionCloseBuffer = "SESSION_CLOSE_BUFFER"
	MaxTradesPerDay    = "MAX_TRADES_PER_DAY"
	MinBarSpacing      = "MIN_BAR_SPACING"
	DailyLossLimit     = "DAILY_LOSS_LIMIT"
)

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Code is the first violation code, "" when allowed.
func (d Decision) Code() string {
	if len(d.Violations) == 0 {
		return ""
	}
	return d.Violations[0].Code
}

func (d Decision) String() string {
	if d.Allowed {
		return "allowed"
	}
	return fmt.Sprintf("%s: %s", d.Violations[0].Code, d.Violations[0].Msg)
}

// Evaluate decides whether a new entry may open at bar barIdx stamped now. It
// reads acct and never changes it.
func Evaluate(l Limits, now time.Time, barIdx int, acct AccountState) Decision {
	d := Decision{Allowed: true}

	// Time-of-day
	if l.Session.Bounded() {
		m := l.Session.SinceMidnight(now)
		switch {
		case !l.Session.Contains(now):
			d.add(OutsideSession, fmt.Sprintf("%02d:%02d outside session %s", int(m.Hours()), int(m.Minutes())%60, l.Session))
		case m < l.Session.Open+l.AvoidFirst:
			d.add(SessionOpenBuffer, fmt.Sprintf("within first %s of session", l.AvoidFirst))
		case m > l.Session.Close-l.AvoidLast:
			d.add(SessionCloseBuffer, fmt.Sprintf("within last %s of session", l.AvoidLast))
		}
	}

	// Trade count
	if l.MaxTradesPerDay > 0 && acct.DayTrades >= l.MaxTradesPerDay {
		d.add(MaxTradesPerDay,
			fmt.Sprintf("day trades %d >= max %d", acct.DayTrades, l.MaxTradesPerDay))
	}

	// Spacing
	if l.MinBarSpacing > 0 && acct.LastTradeIndex >= 0 {
		if since := barIdx - acct.LastTradeIndex; since < l.MinBarSpacing {
			d.add(MinBarSpacing,
				fmt.Sprintf("%d bars since last trade < min %d", since, l.MinBarSpacing))
		}
	}

	// Circuit breaker
	if acct.Halted || DailyLossBreached(l.MaxDailyLossPct, acct) {
		d.add(DailyLossLimit,
			fmt.Sprintf("day realized %.2f (%.2f%%) breached limit %.2f%%",
				acct.DayRealized, acct.DayPnLPct(), l.MaxDailyLossPct))
	}

	return d
}
