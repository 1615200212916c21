package indicators

import (
	"fmt"

	"github.com/rustyeddy/backtester/market"
)

// Donchian tracks the highest high and lowest low of the last period bars.
type Donchian struct {
	period int
	highs  []float64
	lows   []float64
}

func NewDonchian(period int) *Donchian {
	if period <= 0 {
		panic("Donchian period must be > 0")
	}
	return &Donchian{
		period: period,
		highs:  make([]float64, 0, period),
		lows:   make([]float64, 0, period),
	}
}

func (d *Donchian) Name() string {
	return fmt.Sprintf("DONCHIAN(%d)", d.period)
}

func (d *Donchian) Warmup() int {
	return d.period
}

func (d *Donchian) Reset() {
	d.highs = d.highs[:0]
	d.lows = d.lows[:0]
}

func (d *Donchian) Update(b market.Bar) {
	if len(d.highs) == d.period {
		copy(d.highs, d.highs[1:])
		copy(d.lows, d.lows[1:])
		d.highs = d.highs[:d.period-1]
		d.lows = d.lows[:d.period-1]
	}
	d.highs = append(d.highs, b.High)
	d.lows = append(d.lows, b.Low)
}

func (d *Donchian) Ready() bool {
	return len(d.highs) == d.period
}

// Value is the channel midpoint.
func (d *Donchian) Value() float64 {
	if !d.Ready() {
		return 0
	}
	return (d.High() + d.Low()) / 2
}

func (d *Donchian) High() float64 {
	if len(d.highs) == 0 {
		return 0
	}
	hi := d.highs[0]
	for _, h := range d.highs[1:] {
		if h > hi {
			hi = h
		}
	}
	return hi
}

func (d *Donchian) Low() float64 {
	if len(d.lows) == 0 {
		return 0
	}
	lo := d.lows[0]
	for _, l := range d.lows[1:] {
		if l < lo {
			lo = l
		}
	}
	return lo
}
