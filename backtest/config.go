package backtest

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/risk"
)

// ErrConfig is matched by every *ConfigError.
var ErrConfig = errors.New("invalid configuration")

type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// EntryPolicy picks the reference price for entries. It is fixed per run.
type EntryPolicy string

const (
	// EntryClose fills at the close of the signal bar.
	EntryClose EntryPolicy = "close"
	// EntryNextOpen holds the order and fills at the open of the next bar.
	EntryNextOpen EntryPolicy = "next_open"
)

// GapPolicy controls what intra-session gaps do to a run.
type GapPolicy string

const (
	GapWarn GapPolicy = "warn"
	GapFail GapPolicy = "fail"
)

// Config is the full option set of one run. Percentages are percents:
// RiskPct 1.0 risks 1% of equity.
type Config struct {
	Symbol            string  `json:"symbol" yaml:"symbol"`
	TickSize          float64 `json:"tick_size" yaml:"tick_size"`
	UnitValue         float64 `json:"unit_value" yaml:"unit_value"`
	CommissionPerSide float64 `json:"commission_per_side" yaml:"commission_per_side"`

	InitialEquity     float64     `json:"initial_equity" yaml:"initial_equity"`
	RiskPct           float64     `json:"risk_pct" yaml:"risk_pct"`
	MaxPosition       int         `json:"max_position" yaml:"max_position"`
	SlippageTicks     int         `json:"slippage_ticks" yaml:"slippage_ticks"`
	ExitSlippageTicks int         `json:"exit_slippage_ticks" yaml:"exit_slippage_ticks"`
	EntryPolicy       EntryPolicy `json:"entry_policy" yaml:"entry_policy"`

	Session           market.Session `json:"-" yaml:"-"`
	AvoidFirstMinutes int            `json:"avoid_first_minutes" yaml:"avoid_first_minutes"`
	AvoidLastMinutes  int            `json:"avoid_last_minutes" yaml:"avoid_last_minutes"`
	MaxTradesPerDay   int            `json:"max_trades_per_day" yaml:"max_trades_per_day"`
	MinBarSpacing     int            `json:"min_bar_spacing" yaml:"min_bar_spacing"`
	MaxDailyLossPct   float64        `json:"max_daily_loss_pct" yaml:"max_daily_loss_pct"`
	MaxBarsHeld       int            `json:"max_bars_held" yaml:"max_bars_held"` // 0 disables

	GapPolicy          GapPolicy `json:"gap_policy" yaml:"gap_policy"`
	TradingDaysPerYear int       `json:"trading_days_per_year" yaml:"trading_days_per_year"`
}

// DefaultConfig is one MES contract on the regular session with the
// original breakout rules.
func DefaultConfig() Config {
	mes := market.Instruments["MES"]
	return Config{
		Symbol:             mes.Symbol,
		TickSize:           mes.TickSize,
		UnitValue:          mes.UnitValue,
		CommissionPerSide:  mes.CommissionPerSide,
		InitialEquity:      10000,
		RiskPct:            1.0,
		MaxPosition:        10,
		SlippageTicks:      1,
		EntryPolicy:        EntryClose,
		Session:            market.RTH(),
		AvoidFirstMinutes:  15,
		AvoidLastMinutes:   15,
		MaxTradesPerDay:    3,
		MinBarSpacing:      5,
		MaxDailyLossPct:    2.0,
		MaxBarsHeld:        50,
		GapPolicy:          GapWarn,
		TradingDaysPerYear: 252,
	}
}

// Instrument is the contract described by the tick and unit fields.
func (c Config) Instrument() market.Instrument {
	return market.Instrument{
		Symbol:            c.Symbol,
		TickSize:          c.TickSize,
		UnitValue:         c.UnitValue,
		CommissionPerSide: c.CommissionPerSide,
	}
}

// Limits translates the entry filters for the gate.
func (c Config) Limits() risk.Limits {
	return risk.Limits{
		Session:         c.Session,
		AvoidFirst:      time.Duration(c.AvoidFirstMinutes) * time.Minute,
		AvoidLast:       time.Duration(c.AvoidLastMinutes) * time.Minute,
		MaxTradesPerDay: c.MaxTradesPerDay,
		MinBarSpacing:   c.MinBarSpacing,
		MaxDailyLossPct: c.MaxDailyLossPct,
	}
}

// Validate reports every missing or out-of-range option. The result matches
// ErrConfig and each part is a *ConfigError.
func (c Config) Validate() error {
	var errs []error
	bad := func(field, format string, args ...any) {
		errs = append(errs, &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

	if !finite(c.TickSize) || c.TickSize <= 0 {
		bad("tick_size", "must be > 0, got %v", c.TickSize)
	}
	if !finite(c.UnitValue) || c.UnitValue <= 0 {
		bad("unit_value", "must be > 0, got %v", c.UnitValue)
	}
	if !finite(c.CommissionPerSide) || c.CommissionPerSide < 0 {
		bad("commission_per_side", "must be >= 0, got %v", c.CommissionPerSide)
	}
	if !finite(c.InitialEquity) || c.InitialEquity <= 0 {
		bad("initial_equity", "must be > 0, got %v", c.InitialEquity)
	}
	if !finite(c.RiskPct) || c.RiskPct <= 0 || c.RiskPct > 100 {
		bad("risk_pct", "must be in (0, 100], got %v", c.RiskPct)
	}
	if c.MaxPosition < 1 {
		bad("max_position", "must be >= 1, got %d", c.MaxPosition)
	}
	if c.SlippageTicks < 0 {
		bad("slippage_ticks", "must be >= 0, got %d", c.SlippageTicks)
	}
	if c.ExitSlippageTicks < 0 {
		bad("exit_slippage_ticks", "must be >= 0, got %d", c.ExitSlippageTicks)
	}
	switch c.EntryPolicy {
	case EntryClose, EntryNextOpen:
	default:
		bad("entry_policy", "must be %q or %q, got %q", EntryClose, EntryNextOpen, c.EntryPolicy)
	}

	if c.AvoidFirstMinutes < 0 {
		bad("avoid_first_minutes", "must be >= 0, got %d", c.AvoidFirstMinutes)
	}
	if c.AvoidLastMinutes < 0 {
		bad("avoid_last_minutes", "must be >= 0, got %d", c.AvoidLastMinutes)
	}
	if c.Session.Bounded() {
		buffers := time.Duration(c.AvoidFirstMinutes+c.AvoidLastMinutes) * time.Minute
		if buffers >= c.Session.Length() {
			bad("avoid_first_minutes", "buffers of %s leave no tradable time in session %s", buffers, c.Session)
		}
	}
	if c.MaxTradesPerDay < 0 {
		bad("max_trades_per_day", "must be >= 0, got %d", c.MaxTradesPerDay)
	}
	if c.MinBarSpacing < 0 {
		bad("min_bar_spacing", "must be >= 0, got %d", c.MinBarSpacing)
	}
	if !finite(c.MaxDailyLossPct) || c.MaxDailyLossPct < 0 || c.MaxDailyLossPct > 100 {
		bad("max_daily_loss_pct", "must be in [0, 100], got %v", c.MaxDailyLossPct)
	}
	if c.MaxBarsHeld < 0 {
		bad("max_bars_held", "must be >= 0, got %d", c.MaxBarsHeld)
	}

	switch c.GapPolicy {
	case GapWarn, GapFail:
	default:
		bad("gap_policy", "must be %q or %q, got %q", GapWarn, GapFail, c.GapPolicy)
	}
	if c.TradingDaysPerYear <= 0 || c.TradingDaysPerYear > 366 {
		bad("trading_days_per_year", "must be in [1, 366], got %d", c.TradingDaysPerYear)
	}

	return errors.Join(errs...)
}
