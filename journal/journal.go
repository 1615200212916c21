// Package journal persists backtest runs: the run summary row, its closed
// trades and its equity curve.
package journal

import "time"

// TradeRecord is one closed trade of a run.
type TradeRecord struct {
	RunID      string
	TradeID    string
	Instrument string
	Direction  string
	Units      int
	EntryPrice float64
	ExitPrice  float64
	Stop       float64
	Target     float64
	OpenTime   time.Time
	CloseTime  time.Time
	Commission float64
	RealizedPL float64
	MAE        float64
	MFE        float64
	BarsHeld   int
	Reason     string
}

// Equity point kinds.
const (
	KindRealized = "realized"
	KindMark     = "mark"
)

// EquitySnapshot is one point of a run's equity curve. Kind separates the
// realized curve from the per-bar marks.
type EquitySnapshot struct {
	RunID  string
	Time   time.Time
	Equity float64
	Kind   string
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}
