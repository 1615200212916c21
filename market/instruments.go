// market/instruments.go
package market

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Instrument describes contract economics.
//
// TickSize is in price units. UnitValue is the currency value of one full
// price unit for one contract (the point value). The currency value of one
// tick is derived, never configured, so the two cannot drift apart.
type Instrument struct {
	Symbol            string
	TickSize          float64
	UnitValue         float64
	CommissionPerSide float64
}

// TickValue is the currency value of one tick for one contract.
func (in Instrument) TickValue() float64 {
	return decimal.NewFromFloat(in.TickSize).Mul(decimal.NewFromFloat(in.UnitValue)).InexactFloat64()
}

// RoundToTick snaps a price to the nearest multiple of TickSize.
func (in Instrument) RoundToTick(p float64) float64 {
	if in.TickSize <= 0 {
		return p
	}
	tick := decimal.NewFromFloat(in.TickSize)
	n := decimal.NewFromFloat(p).Div(tick).Round(0)
	return n.Mul(tick).InexactFloat64()
}

// Ticks converts a count of ticks into price units.
func (in Instrument) Ticks(n int) float64 {
	return decimal.NewFromInt(int64(n)).Mul(decimal.NewFromFloat(in.TickSize)).InexactFloat64()
}

var Instruments = map[string]Instrument{
	"MES": {
		Symbol:            "MES",
		TickSize:          0.25,
		UnitValue:         5,
		CommissionPerSide: 0.62,
	},
	"ES": {
		Symbol:            "ES",
		TickSize:          0.25,
		UnitValue:         50,
		CommissionPerSide: 2.25,
	},
	"MNQ": {
		Symbol:            "MNQ",
		TickSize:          0.25,
		UnitValue:         2,
		CommissionPerSide: 0.62,
	},
	"NQ": {
		Symbol:            "NQ",
		TickSize:          0.25,
		UnitValue:         20,
		CommissionPerSide: 2.25,
	},
}

// LookupInstrument finds a preset by symbol, case-insensitively.
func LookupInstrument(symbol string) (Instrument, error) {
	in, ok := Instruments[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return Instrument{}, fmt.Errorf("unknown instrument %q", symbol)
	}
	return in, nil
}
