package market

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkBars(start time.Time, step time.Duration, closes ...float64) []Bar {
	out := make([]Bar, 0, len(closes))
	for i, c := range closes {
		out = append(out, Bar{
			Time:   start.Add(time.Duration(i) * step),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 100,
		})
	}
	return out
}

func TestNewSeries_InfersTimeframe(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)
	s, err := NewSeries("MES", mkBars(start, 5*time.Minute, 10, 11, 12, 13))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, s.Timeframe)
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, 13.0, s.Last().Close)
}

func TestSeriesValidate(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(b []Bar)
		idx    int
	}{
		{"duplicate timestamp", func(b []Bar) { b[2].Time = b[1].Time }, 2},
		{"out of order", func(b []Bar) { b[3].Time = b[0].Time.Add(-time.Minute) }, 3},
		{"zero price", func(b []Bar) { b[1].Low = 0 }, 1},
		{"negative close", func(b []Bar) { b[2].Close = -5 }, 2},
		{"nan open", func(b []Bar) { b[0].Open = math.NaN() }, 0},
		{"high below low", func(b []Bar) { b[1].High = b[1].Low - 2 }, 1},
		{"close above high", func(b []Bar) { b[3].Close = b[3].High + 1 }, 3},
		{"negative volume", func(b []Bar) { b[2].Volume = -1 }, 2},
		{"missing time", func(b []Bar) { b[0].Time = time.Time{} }, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bars := mkBars(start, time.Minute, 100, 101, 102, 103)
			tt.mutate(bars)

			_, err := NewSeries("MES", bars)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDataQuality))

			var dq *DataQualityError
			require.True(t, errors.As(err, &dq))
			assert.Equal(t, tt.idx, dq.Index)
		})
	}
}

func TestSeriesValidate_Empty(t *testing.T) {
	t.Parallel()

	_, err := NewSeries("MES", nil)
	assert.ErrorIs(t, err, ErrDataQuality)
}

func TestView_CappedAtReplayIndex(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)
	s, err := NewSeries("MES", mkBars(start, time.Minute, 1, 2, 3, 4, 5))
	require.NoError(t, err)

	v := s.View(2)
	assert.Equal(t, 3, v.Len())
	assert.Equal(t, 2, v.Index())
	assert.Equal(t, 3.0, v.Last().Close)

	bars := v.Bars()
	assert.Equal(t, 3, cap(bars), "view must not expose future bars through capacity")
	assert.Panics(t, func() { _ = bars[:4] })
}

func TestSeriesGaps(t *testing.T) {
	t.Parallel()

	sess := RTH()
	ny := sess.Location

	bars := []Bar{
		{Time: time.Date(2024, 3, 4, 15, 50, 0, 0, ny), Open: 10, High: 11, Low: 9, Close: 10},
		{Time: time.Date(2024, 3, 4, 15, 55, 0, 0, ny), Open: 10, High: 11, Low: 9, Close: 10},
		// overnight gap: expected
		{Time: time.Date(2024, 3, 5, 9, 30, 0, 0, ny), Open: 10, High: 11, Low: 9, Close: 10},
		{Time: time.Date(2024, 3, 5, 9, 35, 0, 0, ny), Open: 10, High: 11, Low: 9, Close: 10},
		// 3 missing bars in the middle of the session
		{Time: time.Date(2024, 3, 5, 9, 55, 0, 0, ny), Open: 10, High: 11, Low: 9, Close: 10},
		{Time: time.Date(2024, 3, 5, 10, 0, 0, 0, ny), Open: 10, High: 11, Low: 9, Close: 10},
	}
	s, err := NewSeries("MES", bars)
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, s.Timeframe)

	gaps := s.Gaps(sess)
	require.Len(t, gaps, 2)
	assert.Equal(t, GapSession, gaps[0].Kind)
	assert.Equal(t, 2, gaps[0].Index)
	assert.Equal(t, Gap{Index: 4, Missing: 3, Kind: GapSuspicious}, gaps[1])

	st := s.Stats(sess)
	assert.Equal(t, 2, st.GapCount)
	assert.Equal(t, 1, st.SessionGaps)
	assert.Equal(t, 1, st.SuspiciousGaps)

	var buf bytes.Buffer
	s.PrintStats(&buf, sess)
	assert.Contains(t, buf.String(), "Timeframe:       M5")
	assert.Contains(t, buf.String(), "suspicious=1")
}

func TestSession(t *testing.T) {
	t.Parallel()

	sess, err := ParseSession("America/New_York", "09:30", "16:00")
	require.NoError(t, err)
	assert.True(t, sess.Bounded())
	assert.Equal(t, 6*time.Hour+30*time.Minute, sess.Length())

	ny := sess.Location
	assert.True(t, sess.Contains(time.Date(2024, 3, 4, 9, 30, 0, 0, ny)))
	assert.True(t, sess.Contains(time.Date(2024, 3, 4, 16, 0, 0, 0, ny)))
	assert.False(t, sess.Contains(time.Date(2024, 3, 4, 9, 25, 0, 0, ny)))
	// 14:30 UTC is 09:30 in New York during EST
	assert.True(t, sess.Contains(time.Date(2024, 1, 8, 14, 30, 0, 0, time.UTC)))

	a := time.Date(2024, 3, 4, 23, 0, 0, 0, ny)
	b := time.Date(2024, 3, 5, 1, 0, 0, 0, ny)
	assert.False(t, sess.Day(a).Equal(sess.Day(b)))

	_, err = ParseSession("America/New_York", "16:00", "09:30")
	assert.Error(t, err)
	_, err = ParseSession("Nowhere/Special", "09:30", "16:00")
	assert.Error(t, err)

	allDay, err := ParseSession("", "", "")
	require.NoError(t, err)
	assert.False(t, allDay.Bounded())
	assert.Equal(t, 24*time.Hour, allDay.Length())
}

func TestSessionClockAcrossDST(t *testing.T) {
	t.Parallel()

	sess, err := ParseSession("America/New_York", "09:30", "16:00")
	require.NoError(t, err)
	ny := sess.Location

	// clocks jump forward on 2024-03-10 and back on 2024-11-03
	for _, day := range []int{10, 3} {
		month := time.March
		if day == 3 {
			month = time.November
		}
		open := time.Date(2024, month, day, 9, 30, 0, 0, ny)
		assert.Equal(t, 9*time.Hour+30*time.Minute, sess.SinceMidnight(open), "%s", open)
		assert.True(t, sess.Contains(open))
		assert.False(t, sess.Contains(open.Add(-time.Minute)))
		assert.True(t, sess.Contains(time.Date(2024, month, day, 16, 0, 0, 0, ny)))
	}
}

func TestInstrumentTicks(t *testing.T) {
	t.Parallel()

	mes, err := LookupInstrument("mes")
	require.NoError(t, err)

	assert.Equal(t, 0.25, mes.TickSize)
	assert.Equal(t, 1.25, mes.TickValue())
	assert.Equal(t, 0.75, mes.Ticks(3))
	assert.Equal(t, 4500.25, mes.RoundToTick(4500.3))
	assert.Equal(t, 4500.0, mes.RoundToTick(4500.1))

	_, err = LookupInstrument("EUR_USD")
	assert.Error(t, err)
}

func TestTimeframeStrings(t *testing.T) {
	t.Parallel()

	for _, tf := range []string{"M1", "M5", "M15", "M30", "H1", "H4", "D1", "W1"} {
		d, err := ParseTimeframe(tf)
		require.NoError(t, err)
		got, err := FormatTimeframe(d)
		require.NoError(t, err)
		assert.Equal(t, tf, got)
	}
	_, err := FormatTimeframe(0)
	assert.Error(t, err)
}

func TestPeriodsPerYear(t *testing.T) {
	t.Parallel()

	rth := RTH()
	assert.InDelta(t, 78*252.0, PeriodsPerYear(5*time.Minute, rth, 252), 1e-9)
	assert.InDelta(t, 252.0, PeriodsPerYear(24*time.Hour, rth, 252), 1e-9)
	assert.InDelta(t, 288*252.0, PeriodsPerYear(5*time.Minute, Session{}, 252), 1e-9)
	assert.Zero(t, PeriodsPerYear(0, rth, 252))
}

func TestParseSide(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Long, ParseSide("LONG"))
	assert.Equal(t, Short, ParseSide("short"))
	assert.Equal(t, Flat, ParseSide("?"))
	assert.Equal(t, "SHORT", Short.String())
}
