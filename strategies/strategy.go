// Package strategies holds the signal sources the backtest engine replays.
package strategies

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rustyeddy/backtester/market"
)

// Strategy turns a causal view of the series into an entry signal. OnBar is
// called exactly once per bar, in order; v.Last() is the newest bar the
// strategy may use.
type Strategy interface {
	Name() string
	Reset()
	OnBar(v market.View) Signal
}

// Signal is a proposed entry. A zero Signal (Direction Flat) means no trade.
type Signal struct {
	Time      time.Time
	Index     int
	Direction market.Side
	Stop      float64
	Target    float64
	Quality   float64
	Reason    string
}

// None reports whether the signal asks for no trade.
func (s Signal) None() bool { return s.Direction == market.Flat }

func (s Signal) String() string {
	if s.None() {
		return "NONE"
	}
	return fmt.Sprintf("%s@%d stop=%.2f target=%.2f q=%.2f (%s)",
		s.Direction, s.Index, s.Stop, s.Target, s.Quality, s.Reason)
}

func newSignal(v market.View, dir market.Side, stop, target, quality float64, reason string) Signal {
	last := v.Last()
	return Signal{
		Time:      last.Time,
		Index:     v.Index(),
		Direction: dir,
		Stop:      stop,
		Target:    target,
		Quality:   quality,
		Reason:    reason,
	}
}

// Factory builds a fresh strategy from numeric parameters.
type Factory func(params map[string]float64) (Strategy, error)

var (
	registry = make(map[string]Factory)
)

// Register makes a strategy constructible by name.
func Register(name string, f Factory) {
	registry[strings.ToLower(name)] = f
}

// New looks up name in the registry and builds a strategy.
func New(name string, params map[string]float64) (Strategy, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return f(params)
}

// Names lists registered strategies in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// params reads strategy parameters with defaults and rejects unknown keys.
type params struct {
	values map[string]float64
	used   map[string]bool
}

func newParams(values map[string]float64) *params {
	return &params{values: values, used: make(map[string]bool)}
}

func (p *params) float(key string, def float64) float64 {
	p.used[key] = true
	if v, ok := p.values[key]; ok {
		return v
	}
	return def
}

func (p *params) int(key string, def int) int {
	return int(math.Round(p.float(key, float64(def))))
}

func (p *params) check(strategy string) error {
	for k := range p.values {
		if !p.used[k] {
			return fmt.Errorf("%s: unknown parameter %q", strategy, k)
		}
	}
	return nil
}
