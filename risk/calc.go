package risk

import "math"

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// PlannedRisk is the currency lost if the stop is hit, before costs.
func PlannedRisk(units int, entry, stop, unitValue float64) float64 {
	return float64(units) * abs(entry-stop) * unitValue
}

// RR is reward over risk for a planned trade, 0 when risk is zero.
func RR(entry, stop, target float64) float64 {
	risk := abs(entry - stop)
	reward := abs(target - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

// RiskPct is plannedRisk as a percentage of equity.
func RiskPct(plannedRisk, equity float64) float64 {
	if equity <= 0 {
		return math.Inf(1)
	}
	return plannedRisk / equity * 100
}
