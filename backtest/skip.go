package backtest

import (
	"fmt"
	"time"
)

// SkipKind separates rejected signals from signals the gate refused.
type SkipKind string

const (
	SkipInvalidSignal SkipKind = "invalid_signal"
	SkipConstraint    SkipKind = "constraint"
)

// Skip codes raised by the engine itself. Gate denials use the risk package
// codes.
const (
	CodeBadDirection    = "BAD_DIRECTION"
	CodeNonFiniteLevel  = "NON_FINITE_LEVEL"
	CodeStopWrongSide   = "STOP_WRONG_SIDE"
	CodeTargetWrongSide = "TARGET_WRONG_SIDE"
	CodeNonPositiveStop = "NON_POSITIVE_STOP"
	CodeNoEquity        = "NO_EQUITY"
	CodePositionOpen    = "POSITION_OPEN"
	CodeEndOfData       = "END_OF_DATA"
)

// Skip records a signal that did not become a position.
type Skip struct {
	Time  time.Time
	Index int
	Kind  SkipKind
	Code  string
	Msg   string
}

func (s Skip) String() string {
	return fmt.Sprintf("%s %s at bar %d: %s", s.Kind, s.Code, s.Index, s.Msg)
}
