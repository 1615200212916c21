package market

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"
)

// Series is an ordered, validated run of bars for one instrument. It is
// read-only once built.
type Series struct {
	Instrument string
	Source     string
	Timeframe  time.Duration
	Bars       []Bar
}

type Gap struct {
	Index   int    // first bar after the gap
	Missing int    // number of missing intervals
	Kind    string // "session" (overnight/weekend) or "suspicious"
}

const (
	GapSession    = "session"
	GapSuspicious = "suspicious"
)

type GapStats struct {
	Bars           int
	GapCount       int
	SessionGaps    int
	SuspiciousGaps int
	LongestGap     int
	LongestGapKind string
}

// NewSeries validates bars and infers the bar interval. The first offending
// bar is returned as a *DataQualityError.
func NewSeries(instrument string, bars []Bar) (*Series, error) {
	s := &Series{Instrument: instrument, Bars: bars}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.Timeframe = inferTimeframe(bars)
	return s, nil
}

// Validate checks monotonic unique timestamps and sane OHLCV values.
func (s *Series) Validate() error {
	if len(s.Bars) == 0 {
		return &DataQualityError{Index: 0, Reason: "empty series"}
	}
	for i, b := range s.Bars {
		if err := checkBar(b); err != "" {
			return &DataQualityError{Index: i, Time: b.Time, Reason: err}
		}
		if i == 0 {
			continue
		}
		prev := s.Bars[i-1].Time
		if b.Time.Equal(prev) {
			return &DataQualityError{Index: i, Time: b.Time, Reason: "duplicate timestamp"}
		}
		if b.Time.Before(prev) {
			return &DataQualityError{Index: i, Time: b.Time,
				Reason: fmt.Sprintf("timestamp before previous bar %s", prev.Format(time.RFC3339))}
		}
	}
	return nil
}

func checkBar(b Bar) string {
	if b.Time.IsZero() {
		return "missing timestamp"
	}
	for _, p := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return "missing or non-finite price"
		}
		if p <= 0 {
			return fmt.Sprintf("non-positive price %v", p)
		}
	}
	if b.High < b.Low {
		return fmt.Sprintf("high %v below low %v", b.High, b.Low)
	}
	if b.Open > b.High || b.Close > b.High || b.Open < b.Low || b.Close < b.Low {
		return "open/close outside high-low range"
	}
	if b.Volume < 0 {
		return fmt.Sprintf("negative volume %d", b.Volume)
	}
	return ""
}

// inferTimeframe picks the most common spacing between consecutive bars.
// Overnight and weekend spacings are rare next to intraday ones.
func inferTimeframe(bars []Bar) time.Duration {
	if len(bars) < 2 {
		return 0
	}
	counts := make(map[time.Duration]int)
	for i := 1; i < len(bars); i++ {
		counts[bars[i].Time.Sub(bars[i-1].Time)]++
	}
	keys := make([]time.Duration, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	best := keys[0]
	for _, k := range keys {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best
}

func (s *Series) Len() int { return len(s.Bars) }

func (s *Series) At(i int) Bar { return s.Bars[i] }

func (s *Series) First() Bar { return s.Bars[0] }

func (s *Series) Last() Bar { return s.Bars[len(s.Bars)-1] }

// View returns the bars visible at replay index i.
func (s *Series) View(i int) View {
	return View{Instrument: s.Instrument, bars: s.Bars[: i+1 : i+1]}
}

// Gaps reports spacings wider than the bar interval. A gap that stays inside
// one session day is suspicious; anything crossing a day boundary or the
// session close is expected.
func (s *Series) Gaps(sess Session) []Gap {
	if s.Timeframe <= 0 {
		return nil
	}
	var gaps []Gap
	for i := 1; i < len(s.Bars); i++ {
		prev, cur := s.Bars[i-1].Time, s.Bars[i].Time
		d := cur.Sub(prev)
		if d <= s.Timeframe {
			continue
		}
		missing := int(d/s.Timeframe) - 1
		if missing < 1 {
			continue
		}
		kind := GapSession
		if sess.Day(prev).Equal(sess.Day(cur)) && sess.Contains(prev) && sess.Contains(cur) {
			kind = GapSuspicious
		}
		gaps = append(gaps, Gap{Index: i, Missing: missing, Kind: kind})
	}
	return gaps
}

func (s *Series) Stats(sess Session) GapStats {
	st := GapStats{Bars: len(s.Bars)}
	for _, g := range s.Gaps(sess) {
		st.GapCount++
		switch g.Kind {
		case GapSession:
			st.SessionGaps++
		case GapSuspicious:
			st.SuspiciousGaps++
		}
		if g.Missing > st.LongestGap {
			st.LongestGap = g.Missing
			st.LongestGapKind = g.Kind
		}
	}
	return st
}

func (s *Series) PrintStats(w io.Writer, sess Session) {
	st := s.Stats(sess)
	tf, err := FormatTimeframe(s.Timeframe)
	if err != nil {
		tf = s.Timeframe.String()
	}
	fmt.Fprintf(w, "Instrument:      %s\n", s.Instrument)
	fmt.Fprintf(w, "Timeframe:       %s\n", tf)
	fmt.Fprintf(w, "Bars:            %d\n", st.Bars)
	fmt.Fprintf(w, "Range:           %s .. %s\n",
		s.First().Time.Format(time.RFC3339), s.Last().Time.Format(time.RFC3339))
	fmt.Fprintf(w, "Gaps:            %d (session=%d suspicious=%d)\n",
		st.GapCount, st.SessionGaps, st.SuspiciousGaps)
	if st.LongestGap > 0 {
		fmt.Fprintf(w, "Longest gap:     %d bars (%s)\n", st.LongestGap, st.LongestGapKind)
	}
}

// View is a causal window over a Series: index 0 through the current replay
// index. The backing slice is capacity-capped, so it cannot be resliced
// forward into bars that have not happened yet.
type View struct {
	Instrument string
	bars       []Bar
}

func (v View) Len() int { return len(v.bars) }

// Index is the replay index of the newest visible bar.
func (v View) Index() int { return len(v.bars) - 1 }

func (v View) At(i int) Bar { return v.bars[i] }

func (v View) Last() Bar { return v.bars[len(v.bars)-1] }

// Bars returns the visible bars. Callers must not modify them.
func (v View) Bars() []Bar { return v.bars }
