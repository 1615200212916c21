package market

import "time"

// Bar is one OHLCV sample. Time is the bar's open time.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Range is the high-low span of the bar.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// Side: +1 long, -1 short, 0 flat
type Side int8

const (
	Flat  Side = 0
	Long  Side = +1
	Short Side = -1
)

func (s Side) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// ParseSide accepts LONG/SHORT/FLAT in any case.
func ParseSide(s string) Side {
	switch s {
	case "LONG", "long", "Long":
		return Long
	case "SHORT", "short", "Short":
		return Short
	default:
		return Flat
	}
}
