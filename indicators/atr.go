package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/backtester/market"
)

// ATRFunc calculates the Wilder-smoothed Average True Range for the given period.
// Returns an error if there aren't enough bars for the period.
func ATRFunc(bars []market.Bar, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(bars) < period+1 {
		return 0, fmt.Errorf("not enough bars: need %d, got %d", period+1, len(bars))
	}

	trueRanges := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		trueRanges = append(trueRanges, trueRange(bars[i], bars[i-1]))
	}

	// Initial ATR is the SMA of the first period true ranges
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += trueRanges[i]
	}
	atr := sum / float64(period)

	for i := period; i < len(trueRanges); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
	}

	return atr, nil
}

// Smoothing selects how ATR averages true ranges.
type Smoothing int

const (
	// Wilder smoothing: atr = (atr*(n-1) + tr) / n after an SMA seed.
	Wilder Smoothing = iota
	// Simple rolling mean of the last n true ranges.
	Simple
)

// ATR is a streaming Average True Range indicator
type ATR struct {
	period    int
	smoothing Smoothing

	atr        float64
	count      int
	warmupSum  float64
	rolling    *SMA
	prevBar    market.Bar
	hasPrevBar bool
}

// NewATR creates a Wilder-smoothed ATR.
func NewATR(period int) *ATR {
	return NewATRWith(period, Wilder)
}

// NewATRWith creates an ATR with the given smoothing.
func NewATRWith(period int, s Smoothing) *ATR {
	if period <= 0 {
		panic("ATR period must be > 0")
	}
	a := &ATR{period: period, smoothing: s}
	if s == Simple {
		a.rolling = NewSMA(period)
	}
	return a
}

func (a *ATR) Name() string {
	if a.smoothing == Simple {
		return fmt.Sprintf("ATR(%d,simple)", a.period)
	}
	return fmt.Sprintf("ATR(%d)", a.period)
}

func (a *ATR) Warmup() int {
	// Need period+1 bars because TR requires the previous bar
	return a.period + 1
}

func (a *ATR) Reset() {
	a.atr = 0
	a.count = 0
	a.warmupSum = 0
	a.hasPrevBar = false
	if a.rolling != nil {
		a.rolling.Reset()
	}
}

func (a *ATR) Update(b market.Bar) {
	if !a.hasPrevBar {
		a.prevBar = b
		a.hasPrevBar = true
		return
	}

	tr := trueRange(b, a.prevBar)
	a.prevBar = b

	if a.smoothing == Simple {
		a.rolling.Add(tr)
		if a.count < a.period {
			a.count++
		}
		a.atr = a.rolling.Value()
		return
	}

	if a.count < a.period {
		a.warmupSum += tr
		a.count++
		if a.count == a.period {
			a.atr = a.warmupSum / float64(a.period)
		}
		return
	}
	a.atr = (a.atr*float64(a.period-1) + tr) / float64(a.period)
}

func (a *ATR) Ready() bool {
	return a.count >= a.period
}

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.atr
}

// trueRange calculates the True Range for a bar given the previous bar
func trueRange(current, previous market.Bar) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)

	return math.Max(highLow, math.Max(highClose, lowClose))
}
