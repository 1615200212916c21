package risk

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNonPositiveStop = errors.New("stop distance must be positive")
	ErrNoEquity        = errors.New("equity must be positive")
)

type SizeInputs struct {
	Equity       float64
	RiskPct      float64 // percent of equity, 1.0 = 1%
	StopDistance float64 // price units between fill and stop
	UnitValue    float64 // currency per price unit per contract
	MaxUnits     int     // 0 disables the cap
}

type SizeResult struct {
	Units      int
	RawUnits   float64
	RiskAmount float64
}

// Size converts an equity risk budget and a stop distance into contracts:
//
//	floor(equity * riskPct/100 / (stopDistance * unitValue))
//
// clamped to [1, MaxUnits]. A floor of zero still trades one contract.
func Size(in SizeInputs) (SizeResult, error) {
	if math.IsNaN(in.StopDistance) || in.StopDistance <= 0 {
		return SizeResult{}, fmt.Errorf("%w: %v", ErrNonPositiveStop, in.StopDistance)
	}
	if in.UnitValue <= 0 {
		return SizeResult{}, fmt.Errorf("unit value must be positive: %v", in.UnitValue)
	}
	if in.Equity <= 0 {
		return SizeResult{}, fmt.Errorf("%w: %.2f", ErrNoEquity, in.Equity)
	}

	riskAmt := in.Equity * in.RiskPct / 100
	raw := riskAmt / (in.StopDistance * in.UnitValue)

	units := int(math.Floor(raw))
	if units < 1 {
		units = 1
	}
	if in.MaxUnits > 0 && units > in.MaxUnits {
		units = in.MaxUnits
	}

	return SizeResult{
		Units:      units,
		RawUnits:   raw,
		RiskAmount: riskAmt,
	}, nil
}
