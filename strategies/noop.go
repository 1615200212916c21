package strategies

import "github.com/rustyeddy/backtester/market"

// Noop never trades. It gives a baseline run with no positions.
type Noop struct{}

func init() {
	Register("noop", func(p map[string]float64) (Strategy, error) {
		if err := newParams(p).check("noop"); err != nil {
			return nil, err
		}
		return Noop{}, nil
	})
}

func (Noop) Name() string { return "noop" }

func (Noop) Reset() {}

func (Noop) OnBar(v market.View) Signal {
	_ = v
	return Signal{}
}
