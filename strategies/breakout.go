package strategies

import (
	"fmt"

	"github.com/rustyeddy/backtester/indicators"
	"github.com/rustyeddy/backtester/market"
)

// BreakoutConfig holds the volatility breakout parameters. Stop and target
// are ATR multiples measured from the broken level.
type BreakoutConfig struct {
	Lookback       int     `json:"lookback_period" yaml:"lookback_period"`
	ATRPeriod      int     `json:"atr_period" yaml:"atr_period"`
	Contraction    float64 `json:"volatility_contraction_threshold" yaml:"volatility_contraction_threshold"`
	StopMultiple   float64 `json:"stop_loss_atr_multiple" yaml:"stop_loss_atr_multiple"`
	TargetMultiple float64 `json:"take_profit_atr_multiple" yaml:"take_profit_atr_multiple"`
}

func BreakoutConfigDefaults() BreakoutConfig {
	return BreakoutConfig{
		Lookback:       20,
		ATRPeriod:      14,
		Contraction:    0.7,
		StopMultiple:   2.0,
		TargetMultiple: 3.0,
	}
}

// VolatilityBreakout waits for ATR to contract below its own average, then
// trades a close beyond the prior lookback high or low.
//
// The channel is read before the current bar is added, so the breakout level
// only contains bars strictly before v.Last().
type VolatilityBreakout struct {
	cfg  BreakoutConfig
	name string

	atr     *indicators.ATR
	atrMA   *indicators.SMA
	channel *indicators.Donchian
	warmup  int
}

func init() {
	Register("volatility_breakout", func(p map[string]float64) (Strategy, error) {
		d := BreakoutConfigDefaults()
		pp := newParams(p)
		cfg := BreakoutConfig{
			Lookback:       pp.int("lookback_period", d.Lookback),
			ATRPeriod:      pp.int("atr_period", d.ATRPeriod),
			Contraction:    pp.float("volatility_contraction_threshold", d.Contraction),
			StopMultiple:   pp.float("stop_loss_atr_multiple", d.StopMultiple),
			TargetMultiple: pp.float("take_profit_atr_multiple", d.TargetMultiple),
		}
		if err := pp.check("volatility_breakout"); err != nil {
			return nil, err
		}
		return NewVolatilityBreakout(cfg)
	})
}

func NewVolatilityBreakout(cfg BreakoutConfig) (*VolatilityBreakout, error) {
	switch {
	case cfg.Lookback <= 0:
		return nil, fmt.Errorf("volatility_breakout: lookback_period must be > 0, got %d", cfg.Lookback)
	case cfg.ATRPeriod <= 0:
		return nil, fmt.Errorf("volatility_breakout: atr_period must be > 0, got %d", cfg.ATRPeriod)
	case cfg.Contraction <= 0:
		return nil, fmt.Errorf("volatility_breakout: contraction threshold must be > 0, got %v", cfg.Contraction)
	case cfg.StopMultiple <= 0 || cfg.TargetMultiple <= 0:
		return nil, fmt.Errorf("volatility_breakout: stop and target multiples must be > 0")
	}

	return &VolatilityBreakout{
		cfg:     cfg,
		name:    fmt.Sprintf("VOL_BREAKOUT(%d,%d,%.2f)", cfg.Lookback, cfg.ATRPeriod, cfg.Contraction),
		atr:     indicators.NewATRWith(cfg.ATRPeriod, indicators.Simple),
		atrMA:   indicators.NewSMA(cfg.Lookback),
		channel: indicators.NewDonchian(cfg.Lookback),
		warmup:  max(cfg.Lookback, cfg.ATRPeriod) + 10,
	}, nil
}

func (s *VolatilityBreakout) Name() string { return s.name }

func (s *VolatilityBreakout) Config() BreakoutConfig { return s.cfg }

func (s *VolatilityBreakout) Reset() {
	s.atr.Reset()
	s.atrMA.Reset()
	s.channel.Reset()
}

func (s *VolatilityBreakout) OnBar(v market.View) Signal {
	bar := v.Last()

	// prior channel, excludes this bar
	channelReady := s.channel.Ready()
	high, low := s.channel.High(), s.channel.Low()
	s.channel.Update(bar)

	s.atr.Update(bar)
	if !s.atr.Ready() {
		return Signal{}
	}
	atr := s.atr.Value()
	s.atrMA.Add(atr)

	if v.Index() < s.warmup || !channelReady || !s.atrMA.Ready() || atr <= 0 {
		return Signal{}
	}

	if atr >= s.cfg.Contraction*s.atrMA.Value() {
		return Signal{}
	}

	switch {
	case bar.Close > high:
		return newSignal(v, market.Long,
			high-s.cfg.StopMultiple*atr,
			high+s.cfg.TargetMultiple*atr,
			(bar.Close-high)/atr,
			fmt.Sprintf("close %.2f above %d-bar high %.2f", bar.Close, s.cfg.Lookback, high))
	case bar.Close < low:
		return newSignal(v, market.Short,
			low+s.cfg.StopMultiple*atr,
			low-s.cfg.TargetMultiple*atr,
			(low-bar.Close)/atr,
			fmt.Sprintf("close %.2f below %d-bar low %.2f", bar.Close, s.cfg.Lookback, low))
	}
	return Signal{}
}
