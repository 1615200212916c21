package backtest

import "time"

// Result is everything a run produced. Metrics are derived from it by the
// metrics package; persistence lives in journal.
type Result struct {
	Strategy   string
	Instrument string
	Source     string
	Timeframe  time.Duration
	Start, End time.Time
	Bars       int

	InitialEquity float64
	FinalEquity   float64

	Trades []Trade
	Equity []Point // opening point, then one per closed trade
	Marks  []Point // one per bar
	Skips  []Skip

	Signals        int
	SuspiciousGaps int
	PeriodsPerYear float64
	Config         Config
}

// SkipCounts tallies skips by "kind/code".
func (r *Result) SkipCounts() map[string]int {
	out := make(map[string]int)
	for _, s := range r.Skips {
		out[string(s.Kind)+"/"+s.Code]++
	}
	return out
}

// SkipsOf counts skips of one kind.
func (r *Result) SkipsOf(kind SkipKind) int {
	n := 0
	for _, s := range r.Skips {
		if s.Kind == kind {
			n++
		}
	}
	return n
}
