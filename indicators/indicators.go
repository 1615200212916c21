// Package indicators provides streaming technical indicators over bars.
package indicators

import "github.com/rustyeddy/backtester/market"

// Indicator computes a single streaming value from bars.
// It is deterministic and only ever sees bars it has been handed, so it is
// safe to drive from a causal replay.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)" or "ATR(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* bar and updates internal state.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current value, 0 until Ready().
	Value() float64
}
