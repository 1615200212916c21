package indicators

import (
	"testing"

	"github.com/rustyeddy/backtester/market"
	"github.com/stretchr/testify/assert"
)

func createTestBars() []market.Bar {
	return []market.Bar{
		{Open: 100, High: 105, Low: 99, Close: 102},
		{Open: 102, High: 107, Low: 101, Close: 105},
		{Open: 105, High: 108, Low: 104, Close: 106},
		{Open: 106, High: 110, Low: 105, Close: 108},
		{Open: 108, High: 112, Low: 107, Close: 110},
		{Open: 110, High: 113, Low: 109, Close: 111},
		{Open: 111, High: 115, Low: 110, Close: 113},
		{Open: 113, High: 116, Low: 112, Close: 114},
		{Open: 114, High: 118, Low: 113, Close: 116},
		{Open: 116, High: 120, Low: 115, Close: 118},
	}
}

func TestMA(t *testing.T) {
	bars := createTestBars()

	ma, err := MA(bars, 5)
	assert.NoError(t, err)
	// Last 5 closes: 111,113,114,116,118 => 572/5 = 114.4
	assert.InDelta(t, 114.4, ma, 0.001)

	_, err = MA(bars, 0)
	assert.Error(t, err)
	_, err = MA(bars[:3], 5)
	assert.Error(t, err)
}

func TestEMA(t *testing.T) {
	bars := createTestBars()

	ema, err := EMA(bars, 5)
	assert.NoError(t, err)
	assert.Greater(t, ema, 110.0)
	assert.Less(t, ema, 118.0)
}

func TestATRFuncDetailed(t *testing.T) {
	bars := []market.Bar{
		{High: 10, Low: 8, Close: 9},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 13, Low: 11, Close: 12},
	}
	atr, err := ATRFunc(bars, 3)
	assert.NoError(t, err)
	assert.InDelta(t, 2.0, atr, 1e-12)

	_, err = ATRFunc(bars[:3], 3)
	assert.Error(t, err)
}

func TestTrueRange(t *testing.T) {
	current := market.Bar{High: 110, Low: 100, Close: 105}
	previous := market.Bar{Close: 112}
	// gap down: |low - prevClose| dominates
	assert.Equal(t, 12.0, trueRange(current, previous))
}
