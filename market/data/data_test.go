package data

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/market"
)

const sampleCSV = `Datetime,Open,High,Low,Close,Volume
2024-01-02 09:30:00-05:00,4700.25,4702.00,4699.50,4701.75,1200
2024-01-02 09:35:00-05:00,4701.75,4703.25,4700.00,4702.50,900
2024-01-02 09:40:00-05:00,4702.50,4704.00,4701.25,4703.00,1100
`

func TestReadCSV_Header(t *testing.T) {
	t.Parallel()

	bars, err := ReadCSV(strings.NewReader(sampleCSV), time.UTC)
	require.NoError(t, err)
	require.Len(t, bars, 3)

	want := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	assert.True(t, bars[0].Time.Equal(want))
	assert.Equal(t, 4700.25, bars[0].Open)
	assert.Equal(t, 4702.0, bars[0].High)
	assert.Equal(t, 4699.5, bars[0].Low)
	assert.Equal(t, 4701.75, bars[0].Close)
	assert.Equal(t, int64(1200), bars[0].Volume)
}

func TestReadCSV_ReorderedColumnsAndNoVolume(t *testing.T) {
	t.Parallel()

	in := "close,time,low,high,open\n10.5,2024-01-02T14:30:00Z,9,11,10\n"
	bars, err := ReadCSV(strings.NewReader(in), nil)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, market.Bar{
		Time:  time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC),
		Open:  10,
		High:  11,
		Low:   9,
		Close: 10.5,
	}, bars[0])
}

func TestReadCSV_Headerless(t *testing.T) {
	t.Parallel()

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	in := "2024-01-02 09:30:00,1,2,0.5,1.5,7\n"
	bars, err := ReadCSV(strings.NewReader(in), ny)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.True(t, bars[0].Time.Equal(time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)))
}

func TestReadCSV_MissingFieldIsDataQuality(t *testing.T) {
	t.Parallel()

	in := "time,open,high,low,close\n2024-01-02T14:30:00Z,1,2,0.5,1.5\n2024-01-02T14:35:00Z,1,2,,1.5\n"
	_, err := ReadCSV(strings.NewReader(in), time.UTC)
	require.Error(t, err)

	var dq *market.DataQualityError
	require.True(t, errors.As(err, &dq))
	assert.Equal(t, 1, dq.Index)
	assert.Contains(t, dq.Reason, "missing low")
}

func TestWriteCSVRoundTrip(t *testing.T) {
	t.Parallel()

	bars, err := ReadCSV(strings.NewReader(sampleCSV), time.UTC)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, bars))

	again, err := ReadCSV(&buf, time.UTC)
	require.NoError(t, err)
	require.Len(t, again, len(bars))
	for i := range bars {
		assert.True(t, bars[i].Time.Equal(again[i].Time))
		assert.Equal(t, bars[i].Close, again[i].Close)
	}
}

func TestParquetWriteRead(t *testing.T) {
	t.Parallel()

	bars, err := ReadCSV(strings.NewReader(sampleCSV), time.UTC)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "mes", "bars.parquet")
	require.NoError(t, WriteParquet(path, "MES", bars))

	got, err := ReadParquet(path, time.UTC)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[2].Time.Equal(bars[2].Time))
	assert.Equal(t, bars[2].High, got[2].High)
	assert.Equal(t, bars[2].Volume, got[2].Volume)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "mes.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))

	s, err := Load(csvPath, "MES", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, s.Timeframe)
	assert.Equal(t, csvPath, s.Source)

	bad := filepath.Join(dir, "bad.csv")
	dup := sampleCSV + "2024-01-02 09:40:00-05:00,4702.50,4704.00,4701.25,4703.00,1100\n"
	require.NoError(t, os.WriteFile(bad, []byte(dup), 0o644))

	_, err = Load(bad, "MES", time.UTC)
	assert.ErrorIs(t, err, market.ErrDataQuality)

	_, err = Load(filepath.Join(dir, "missing.csv"), "MES", time.UTC)
	assert.Error(t, err)
}
