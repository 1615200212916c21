package market

import (
	"fmt"
	"time"
)

// FormatTimeframe maps a bar interval to its short name (M5, H1, D1, ...).
func FormatTimeframe(d time.Duration) (string, error) {
	sec := int64(d / time.Second)
	if sec <= 0 {
		return "", fmt.Errorf("invalid timeframe seconds: %d", sec)
	}

	// Minutes
	if sec < 3600 && sec%60 == 0 {
		return fmt.Sprintf("M%d", sec/60), nil
	}

	// Hours
	if sec < 86400 && sec%3600 == 0 {
		return fmt.Sprintf("H%d", sec/3600), nil
	}

	// Days
	if sec%86400 == 0 {
		days := sec / 86400
		if days == 7 {
			return "W1", nil
		}
		return fmt.Sprintf("D%d", days), nil
	}

	return "", fmt.Errorf("cannot map timeframe: %d seconds", sec)
}

func ParseTimeframe(tf string) (time.Duration, error) {
	switch tf {
	case "M1":
		return time.Minute, nil
	case "M5":
		return 5 * time.Minute, nil
	case "M15":
		return 15 * time.Minute, nil
	case "M30":
		return 30 * time.Minute, nil
	case "H1":
		return time.Hour, nil
	case "H4":
		return 4 * time.Hour, nil
	case "D1":
		return 24 * time.Hour, nil
	case "W1":
		return 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported timeframe string: %s", tf)
	}
}

// PeriodsPerYear is the number of bar-sized return periods in a trading
// year. Intraday bars count only the session hours of each trading day.
func PeriodsPerYear(tf time.Duration, sess Session, tradingDays int) float64 {
	if tf <= 0 || tradingDays <= 0 {
		return 0
	}
	const day = 24 * time.Hour
	switch {
	case tf >= 7*day:
		return 52 * float64(7*day) / float64(tf)
	case tf >= day:
		return float64(tradingDays) * float64(day) / float64(tf)
	}
	perDay := float64(sess.Length()) / float64(tf)
	if perDay < 1 {
		perDay = 1
	}
	return perDay * float64(tradingDays)
}
