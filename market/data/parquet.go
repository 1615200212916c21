package data

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/rustyeddy/backtester/market"
)

// BarRecord is the Parquet schema for bar files.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
}

// ReadParquet loads every row of a bar file, sorted by timestamp. Sorting
// does not hide duplicates; series validation still rejects them.
func ReadParquet(path string, loc *time.Location) ([]market.Bar, error) {
	if loc == nil {
		loc = time.UTC
	}
	rows, err := parquet.ReadFile[BarRecord](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Timestamp < rows[j].Timestamp })

	bars := make([]market.Bar, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, market.Bar{
			Time:   time.UnixMilli(r.Timestamp).In(loc),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	return bars, nil
}

// WriteParquet stores bars under symbol, creating parent directories.
func WriteParquet(path, symbol string, bars []market.Bar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	rows := make([]BarRecord, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, BarRecord{
			Symbol:    symbol,
			Timestamp: b.Time.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}
	return parquet.WriteFile(path, rows)
}

// Load picks a reader from the file extension (.parquet, otherwise CSV) and
// returns a validated series.
func Load(path, symbol string, loc *time.Location) (*market.Series, error) {
	var (
		bars []market.Bar
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pq":
		bars, err = ReadParquet(path, loc)
	default:
		bars, err = LoadCSV(path, loc)
	}
	if err != nil {
		return nil, err
	}

	s, err := market.NewSeries(symbol, bars)
	if err != nil {
		return nil, err
	}
	s.Source = path
	return s, nil
}
