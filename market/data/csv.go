package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/backtester/market"
)

// timeLayouts are tried in order for the time column. Zone-less layouts are
// interpreted in the loader's location.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var columnNames = map[string]string{
	"time":      "time",
	"datetime":  "time",
	"date":      "time",
	"timestamp": "time",
	"open":      "open",
	"high":      "high",
	"low":       "low",
	"close":     "close",
	"volume":    "volume",
}

// ReadCSV parses canonical bar rows:
//
//	time,open,high,low,close[,volume]
//
// A header row is optional; when present its names select the columns.
// Rows that cannot be parsed fail with a *market.DataQualityError carrying
// the zero-based bar index.
func ReadCSV(r io.Reader, loc *time.Location) ([]market.Bar, error) {
	if loc == nil {
		loc = time.UTC
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	cols := map[string]int{"time": 0, "open": 1, "high": 2, "low": 3, "close": 4, "volume": 5}
	var bars []market.Bar
	first := true

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read bars csv: %w", err)
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		if first {
			first = false
			if hdr, ok := headerColumns(row); ok {
				cols = hdr
				continue
			}
		}

		b, err := parseBarRow(row, cols, loc)
		if err != nil {
			return nil, &market.DataQualityError{Index: len(bars), Reason: err.Error()}
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// LoadCSV opens path and reads it with ReadCSV.
func LoadCSV(path string, loc *time.Location) ([]market.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f, loc)
}

func headerColumns(row []string) (map[string]int, bool) {
	name := strings.ToLower(strings.TrimSpace(row[0]))
	if _, ok := columnNames[name]; !ok {
		return nil, false
	}
	cols := make(map[string]int)
	for i, h := range row {
		if c, ok := columnNames[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, dup := cols[c]; !dup {
				cols[c] = i
			}
		}
	}
	return cols, true
}

func parseBarRow(row []string, cols map[string]int, loc *time.Location) (market.Bar, error) {
	field := func(name string) (string, bool) {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return "", false
		}
		v := strings.TrimSpace(row[i])
		return v, v != ""
	}

	var b market.Bar

	ts, ok := field("time")
	if !ok {
		return b, fmt.Errorf("missing time")
	}
	t, err := parseTime(ts, loc)
	if err != nil {
		return b, err
	}
	b.Time = t

	prices := []struct {
		name string
		dst  *float64
	}{
		{"open", &b.Open},
		{"high", &b.High},
		{"low", &b.Low},
		{"close", &b.Close},
	}
	for _, p := range prices {
		v, ok := field(p.name)
		if !ok {
			return b, fmt.Errorf("missing %s", p.name)
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return b, fmt.Errorf("bad %s %q: %w", p.name, v, err)
		}
		*p.dst = x
	}

	if v, ok := field("volume"); ok {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return b, fmt.Errorf("bad volume %q: %w", v, err)
		}
		b.Volume = int64(x)
	}
	return b, nil
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).In(loc), nil
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}

// WriteCSV writes bars with a header row, times in RFC3339.
func WriteCSV(w io.Writer, bars []market.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		if err := cw.Write([]string{
			b.Time.Format(time.RFC3339),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatInt(b.Volume, 10),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
