// Package backtest replays a bar series through a strategy, one bar at a
// time, and books simulated trades.
package backtest

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/risk"
	"github.com/rustyeddy/backtester/strategies"
)

// Engine holds a validated configuration. It keeps no per-run state, so one
// Engine may run several series in sequence.
type Engine struct {
	cfg    Config
	limits risk.Limits
	fill   Filler
	inst   market.Instrument
	log    zerolog.Logger
}

// NewEngine validates cfg before any bar is read. A nil logger discards output.
func NewEngine(cfg Config, log *zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:    cfg,
		limits: cfg.Limits(),
		fill:   NewFiller(cfg),
		inst:   cfg.Instrument(),
		log:    zerolog.Nop(),
	}
	if log != nil {
		e.log = *log
	}
	return e, nil
}

func (e *Engine) Config() Config { return e.cfg }

// run is the mutable state of a single replay.
type run struct {
	*Engine
	series *market.Series
	strat  strategies.Strategy
	log    zerolog.Logger

	ledger  *Ledger
	pos     *Position
	pending *strategies.Signal
	res     *Result
}

// Run replays series through strat. Bars are visited once, in order; the
// strategy sees only a causal view ending at the current bar. Bad data
// aborts the run with a *market.DataQualityError.
func (e *Engine) Run(series *market.Series, strat strategies.Strategy) (*Result, error) {
	if series == nil {
		return nil, errors.New("backtest: nil series")
	}
	if strat == nil {
		return nil, errors.New("backtest: nil strategy")
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}

	r := &run{
		Engine: e,
		series: series,
		strat:  strat,
		log: e.log.With().
			Str("strategy", strat.Name()).
			Str("instrument", series.Instrument).
			Logger(),
		ledger: NewLedger(e.cfg.InitialEquity, e.cfg.Session, e.cfg.MaxDailyLossPct),
		res: &Result{
			Strategy:      strat.Name(),
			Instrument:    series.Instrument,
			Source:        series.Source,
			Timeframe:     series.Timeframe,
			Start:         series.First().Time,
			End:           series.Last().Time,
			Bars:          series.Len(),
			InitialEquity: e.cfg.InitialEquity,
			Config:        e.cfg,
		},
	}

	if err := r.checkGaps(); err != nil {
		return nil, err
	}

	r.log.Info().
		Int("bars", series.Len()).
		Time("start", r.res.Start).
		Time("end", r.res.End).
		Str("entry_policy", string(e.cfg.EntryPolicy)).
		Msg("backtest start")

	strat.Reset()
	r.replay()

	res := r.res
	res.Equity = r.ledger.Points()
	res.Marks = r.ledger.Marks()
	res.FinalEquity = r.ledger.Equity()
	res.PeriodsPerYear = market.PeriodsPerYear(series.Timeframe, e.cfg.Session, e.cfg.TradingDaysPerYear)

	r.log.Info().
		Int("trades", len(res.Trades)).
		Int("signals", res.Signals).
		Int("skipped_invalid", res.SkipsOf(SkipInvalidSignal)).
		Int("skipped_constraint", res.SkipsOf(SkipConstraint)).
		Float64("final_equity", res.FinalEquity).
		Msg("backtest done")
	return res, nil
}

func (r *run) checkGaps() error {
	for _, g := range r.series.Gaps(r.cfg.Session) {
		if g.Kind != market.GapSuspicious {
			continue
		}
		r.res.SuspiciousGaps++
		bar := r.series.At(g.Index)
		if r.cfg.GapPolicy == GapFail {
			return &market.DataQualityError{
				Index:  g.Index,
				Time:   bar.Time,
				Reason: fmt.Sprintf("%d missing bars inside session", g.Missing),
			}
		}
		r.log.Warn().Int("bar", g.Index).Time("time", bar.Time).Int("missing", g.Missing).Msg("gap inside session")
	}
	return nil
}

func (r *run) replay() {
	n := r.series.Len()
	for i := 0; i < n; i++ {
		bar := r.series.At(i)

		if i == 0 {
			r.ledger.Start(bar.Time)
		} else if r.ledger.Roll(bar.Time) {
			r.log.Debug().Time("day", r.ledger.Account().Day).Float64("equity", r.ledger.Equity()).Msg("new trading day")
		}

		if r.pending != nil {
			sig := *r.pending
			r.pending = nil
			// the fill bar may sit in a new day or an entry buffer
			if d := risk.Evaluate(r.limits, bar.Time, i, r.ledger.Account()); !d.Allowed {
				r.skip(sig, SkipConstraint, d.Code(), "at fill: "+d.String())
			} else {
				r.open(sig, i, bar.Open)
			}
		}

		// exits start on the bar after the entry bar
		if r.pos != nil && r.pos.EntryIndex < i {
			r.manage(i, bar)
		}

		sig := r.strat.OnBar(r.series.View(i))
		if !sig.None() {
			r.onSignal(sig, i, bar)
		}

		r.ledger.Mark(bar.Time, r.unrealized(bar.Close))
	}

	if r.pos != nil {
		last := r.series.Last()
		r.close(n-1, last, last.Close, ExitEndOfData)
	}
}

func (r *run) manage(i int, bar market.Bar) {
	p := r.pos
	p.BarsHeld++
	p.updateExcursion(bar)
	if px, reason, hit := checkExit(p, bar, r.cfg.MaxBarsHeld); hit {
		r.close(i, bar, px, reason)
	}
}

// unrealized is the open position's value at px net of round-trip commission.
func (r *run) unrealized(px float64) float64 {
	if r.pos == nil {
		return 0
	}
	return r.pos.grossPnL(px, r.inst.UnitValue) - r.commission(r.pos.Qty)
}

func (r *run) commission(qty int) float64 {
	return r.inst.CommissionPerSide * 2 * float64(qty)
}

func (r *run) onSignal(sig strategies.Signal, i int, bar market.Bar) {
	sig.Index = i
	sig.Time = bar.Time
	r.res.Signals++

	if sig.Direction != market.Long && sig.Direction != market.Short {
		r.skip(sig, SkipInvalidSignal, CodeBadDirection, fmt.Sprintf("direction %d", sig.Direction))
		return
	}
	if !finite(sig.Stop) || !finite(sig.Target) {
		r.skip(sig, SkipInvalidSignal, CodeNonFiniteLevel,
			fmt.Sprintf("stop %v target %v", sig.Stop, sig.Target))
		return
	}
	if r.pos != nil || r.pending != nil {
		r.skip(sig, SkipConstraint, CodePositionOpen, "a position is already open")
		return
	}

	if d := risk.Evaluate(r.limits, bar.Time, i, r.ledger.Account()); !d.Allowed {
		r.skip(sig, SkipConstraint, d.Code(), d.String())
		return
	}

	fillIdx := r.fill.FillIndex(i, r.series.Len())
	if fillIdx >= r.series.Len()-1 {
		r.skip(sig, SkipConstraint, CodeEndOfData, "no bar left to manage the position")
		return
	}

	if fillIdx > i {
		r.pending = &sig
		return
	}
	r.open(sig, i, bar.Close)
}

// open fills sig at ref on bar i, sizes it and makes it the open position.
func (r *run) open(sig strategies.Signal, i int, ref float64) {
	bar := r.series.At(i)
	dir := sig.Direction
	entry := r.fill.Entry(ref, dir)
	stop := r.inst.RoundToTick(sig.Stop)
	target := r.inst.RoundToTick(sig.Target)

	if float64(dir)*(entry-stop) <= 0 {
		r.skip(sig, SkipInvalidSignal, CodeStopWrongSide,
			fmt.Sprintf("%s stop %.2f not beyond entry %.2f", dir, stop, entry))
		return
	}
	if float64(dir)*(target-entry) <= 0 {
		r.skip(sig, SkipInvalidSignal, CodeTargetWrongSide,
			fmt.Sprintf("%s target %.2f not beyond entry %.2f", dir, target, entry))
		return
	}

	size, err := risk.Size(risk.SizeInputs{
		Equity:       r.ledger.Equity(),
		RiskPct:      r.cfg.RiskPct,
		StopDistance: math.Abs(entry - stop),
		UnitValue:    r.inst.UnitValue,
		MaxUnits:     r.cfg.MaxPosition,
	})
	if err != nil {
		code := CodeNonPositiveStop
		if errors.Is(err, risk.ErrNoEquity) {
			code = CodeNoEquity
		}
		r.skip(sig, SkipInvalidSignal, code, err.Error())
		return
	}

	r.pos = &Position{
		Direction:     dir,
		EntryTime:     bar.Time,
		EntryIndex:    i,
		EntryPrice:    entry,
		Qty:           size.Units,
		Stop:          stop,
		Target:        target,
		EquityAtEntry: r.ledger.Equity(),
		RiskAmount:    risk.PlannedRisk(size.Units, entry, stop, r.inst.UnitValue),
		Quality:       sig.Quality,
		Signal:        sig.Reason,
	}

	r.log.Debug().
		Int("bar", i).
		Str("side", dir.String()).
		Float64("entry", entry).
		Float64("stop", stop).
		Float64("target", target).
		Int("qty", size.Units).
		Float64("rr", risk.RR(entry, stop, target)).
		Float64("risk_pct", risk.RiskPct(r.pos.RiskAmount, r.pos.EquityAtEntry)).
		Msg("open")
}

func (r *run) close(i int, bar market.Bar, ref float64, reason ExitReason) {
	p := r.pos
	r.pos = nil

	exit := r.fill.Exit(ref, p.Direction)
	commission := r.commission(p.Qty)
	pnl := p.grossPnL(exit, r.inst.UnitValue) - commission

	tr := Trade{
		Position:   *p,
		ExitTime:   bar.Time,
		ExitIndex:  i,
		ExitPrice:  exit,
		Reason:     reason,
		Commission: commission,
		PnL:        pnl,
	}
	if p.EquityAtEntry > 0 {
		tr.PnLPct = pnl / p.EquityAtEntry * 100
	}
	r.res.Trades = append(r.res.Trades, tr)

	halted := r.ledger.Realize(tr)

	r.log.Debug().
		Int("bar", i).
		Str("side", p.Direction.String()).
		Str("reason", string(reason)).
		Float64("exit", exit).
		Float64("pnl", pnl).
		Float64("equity", r.ledger.Equity()).
		Msg("close")
	if halted {
		acct := r.ledger.Account()
		r.log.Info().
			Time("day", acct.Day).
			Float64("day_pnl_pct", acct.DayPnLPct()).
			Msg("daily loss limit hit, entries halted until next day")
	}
}

func (r *run) skip(sig strategies.Signal, kind SkipKind, code, msg string) {
	s := Skip{Time: sig.Time, Index: sig.Index, Kind: kind, Code: code, Msg: msg}
	r.res.Skips = append(r.res.Skips, s)
	r.log.Debug().
		Str("kind", string(kind)).
		Str("code", code).
		Int("bar", sig.Index).
		Str("side", sig.Direction.String()).
		Msg(msg)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
