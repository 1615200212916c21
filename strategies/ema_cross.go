package strategies

import (
	"fmt"
	"math"

	"github.com/rustyeddy/backtester/indicators"
	"github.com/rustyeddy/backtester/market"
)

// EMACross signals when a fast EMA crosses a slow EMA.
// It uses a small state machine to avoid repeated signals while EMAs stay crossed.
// Stops sit StopATR true ranges from the close; targets are RR times the stop distance.
type EMACross struct {
	EMACrossConfig

	fast *indicators.ExponentialMA
	slow *indicators.ExponentialMA
	atr  *indicators.ATR
	adx  *indicators.ADX

	// -1 => fast below slow, 0 => unknown/not-ready, +1 => fast above slow
	prevRel int
	name    string
}

type EMACrossConfig struct {
	FastPeriod int     `json:"fast_period" yaml:"fast_period"`
	SlowPeriod int     `json:"slow_period" yaml:"slow_period"`
	ATRPeriod  int     `json:"atr_period" yaml:"atr_period"`
	StopATR    float64 `json:"stop_atr" yaml:"stop_atr"`
	RR         float64 `json:"risk_reward" yaml:"risk_reward"`

	// Optional noise filter in price units. 0 disables.
	MinSpread float64 `json:"min_spread" yaml:"min_spread"`

	// Trend-strength gate. Crosses are dropped while ADX is below MinADX.
	// 0 disables the gate and the ADX warmup.
	ADXPeriod int     `json:"adx_period" yaml:"adx_period"`
	MinADX    float64 `json:"min_adx" yaml:"min_adx"`
	// RequireDI confirms direction: +DI > -DI for longs, the reverse for shorts.
	RequireDI bool `json:"require_di" yaml:"require_di"`
}

func EMACrossConfigDefaults() EMACrossConfig {
	return EMACrossConfig{
		FastPeriod: 10,
		SlowPeriod: 30,
		ATRPeriod:  14,
		StopATR:    2.0,
		RR:         2.0,
		ADXPeriod:  14,
	}
}

func init() {
	Register("ema_cross", func(p map[string]float64) (Strategy, error) {
		d := EMACrossConfigDefaults()
		pp := newParams(p)
		cfg := EMACrossConfig{
			FastPeriod: pp.int("fast_period", d.FastPeriod),
			SlowPeriod: pp.int("slow_period", d.SlowPeriod),
			ATRPeriod:  pp.int("atr_period", d.ATRPeriod),
			StopATR:    pp.float("stop_atr", d.StopATR),
			RR:         pp.float("risk_reward", d.RR),
			MinSpread:  pp.float("min_spread", d.MinSpread),
			ADXPeriod:  pp.int("adx_period", d.ADXPeriod),
			MinADX:     pp.float("min_adx", d.MinADX),
			RequireDI:  pp.float("require_di", 0) != 0,
		}
		if err := pp.check("ema_cross"); err != nil {
			return nil, err
		}
		if cfg.FastPeriod <= 0 || cfg.SlowPeriod <= 0 || cfg.ATRPeriod <= 0 {
			return nil, fmt.Errorf("ema_cross: periods must be > 0")
		}
		if cfg.FastPeriod >= cfg.SlowPeriod {
			return nil, fmt.Errorf("ema_cross: fast_period %d must be below slow_period %d", cfg.FastPeriod, cfg.SlowPeriod)
		}
		if cfg.StopATR <= 0 || cfg.RR <= 0 {
			return nil, fmt.Errorf("ema_cross: stop_atr and risk_reward must be > 0")
		}
		if cfg.MinADX < 0 || cfg.ADXPeriod <= 0 {
			return nil, fmt.Errorf("ema_cross: adx_period must be > 0 and min_adx >= 0")
		}
		return NewEMACross(cfg), nil
	})
}

func NewEMACross(cfg EMACrossConfig) *EMACross {
	if cfg.FastPeriod <= 0 || cfg.SlowPeriod <= 0 {
		panic("EMACross periods must be > 0")
	}
	if cfg.FastPeriod >= cfg.SlowPeriod {
		// not strictly required, but common and avoids confusing configs
		panic("EMACross requires FastPeriod < SlowPeriod")
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = 14
	}
	if cfg.StopATR <= 0 {
		cfg.StopATR = 2.0
	}
	if cfg.RR <= 0 {
		cfg.RR = 2.0
	}
	if cfg.ADXPeriod <= 0 {
		cfg.ADXPeriod = 14
	}
	name := fmt.Sprintf("EMA_CROSS(%d,%d)", cfg.FastPeriod, cfg.SlowPeriod)
	if cfg.MinADX > 0 {
		name = fmt.Sprintf("EMA_CROSS(%d,%d,ADX%d@%.1f)", cfg.FastPeriod, cfg.SlowPeriod, cfg.ADXPeriod, cfg.MinADX)
	}

	return &EMACross{
		EMACrossConfig: cfg,
		fast:           indicators.NewEMA(cfg.FastPeriod),
		slow:           indicators.NewEMA(cfg.SlowPeriod),
		atr:            indicators.NewATR(cfg.ATRPeriod),
		adx:            indicators.NewADX(cfg.ADXPeriod),
		name:           name,
	}
}

func (x *EMACross) Name() string { return x.name }

func (x *EMACross) Reset() {
	x.fast.Reset()
	x.slow.Reset()
	x.atr.Reset()
	x.adx.Reset()
	x.prevRel = 0
}

func (x *EMACross) Ready() bool {
	ready := x.fast.Ready() && x.slow.Ready() && x.atr.Ready()
	if x.MinADX > 0 {
		ready = ready && x.adx.Ready()
	}
	return ready
}

// OnBar emits a signal only on the cross event (state transition),
// not every bar while EMAs remain crossed.
func (x *EMACross) OnBar(v market.View) Signal {
	bar := v.Last()
	x.fast.Update(bar)
	x.slow.Update(bar)
	x.atr.Update(bar)
	x.adx.Update(bar)

	if !x.Ready() {
		return Signal{}
	}

	diff := x.fast.Value() - x.slow.Value()
	if x.MinSpread > 0 && math.Abs(diff) < x.MinSpread {
		return Signal{}
	}

	rel := 0
	if diff > 0 {
		rel = +1
	} else if diff < 0 {
		rel = -1
	}

	// First time ready: establish baseline relationship, don't fire.
	prev := x.prevRel
	x.prevRel = rel
	if prev == 0 || rel == 0 || rel == prev {
		return Signal{}
	}
	if x.MinADX > 0 && x.adx.Value() < x.MinADX {
		return Signal{}
	}
	if x.RequireDI {
		if rel == +1 && x.adx.PlusDI() <= x.adx.MinusDI() {
			return Signal{}
		}
		if rel == -1 && x.adx.MinusDI() <= x.adx.PlusDI() {
			return Signal{}
		}
	}

	atr := x.atr.Value()
	dist := x.StopATR * atr
	quality := 0.0
	if atr > 0 {
		quality = math.Abs(diff) / atr
	}

	if rel == +1 {
		return newSignal(v, market.Long, bar.Close-dist, bar.Close+dist*x.RR, quality,
			"fast EMA crossed above slow EMA")
	}
	return newSignal(v, market.Short, bar.Close+dist, bar.Close-dist*x.RR, quality,
		"fast EMA crossed below slow EMA")
}
