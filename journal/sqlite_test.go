package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func sampleTrade(id string, closeT time.Time, pl float64) TradeRecord {
	return TradeRecord{
		RunID:      "R1",
		TradeID:    id,
		Instrument: "MES",
		Direction:  "LONG",
		Units:      2,
		EntryPrice: 4500.25,
		ExitPrice:  4506.00,
		Stop:       4495.00,
		Target:     4506.00,
		OpenTime:   closeT.Add(-15 * time.Minute),
		CloseTime:  closeT,
		Commission: 1.24,
		RealizedPL: pl,
		MAE:        -1.25,
		MFE:        5.75,
		BarsHeld:   3,
		Reason:     "target",
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('trades','equity','backtest_runs')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["trades"])
	assert.True(t, found["equity"])
	assert.True(t, found["backtest_runs"])
}

func TestSQLiteReopen(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.RecordTrade(sampleTrade("T1", time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC), 10)))
	require.NoError(t, j.Close())

	again, err := NewSQLite(path)
	require.NoError(t, err)
	defer again.Close()

	got, err := again.GetTrade("T1")
	require.NoError(t, err)
	assert.Equal(t, "R1", got.RunID)
}

func TestSQLiteRecordEquity(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)

	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, j.RecordEquity(EquitySnapshot{RunID: "R1", Time: ts, Equity: 999.9}))
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var (
		runID   string
		gotTime time.Time
		equity  float64
		kind    string
	)
	err = db.QueryRow(`SELECT run_id, time, equity, kind FROM equity LIMIT 1`).Scan(&runID, &gotTime, &equity, &kind)
	require.NoError(t, err)

	assert.Equal(t, "R1", runID)
	assert.True(t, gotTime.Equal(ts))
	assert.InDelta(t, 999.9, equity, 1e-6)
	assert.Equal(t, KindRealized, kind, "empty kind defaults to realized")
}

func TestSQLiteRecordRun(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	base := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)
	pf := 1.75
	run := BacktestRun{
		RunID:        "R1",
		Created:      base,
		Timeframe:    "M5",
		Dataset:      "mes.csv",
		Instrument:   "MES",
		Strategy:     "volatility_breakout",
		Config:       []byte(`{"risk_pct":1}`),
		RiskPct:      1,
		Start:        base,
		End:          base.Add(time.Hour),
		Bars:         12,
		Signals:      3,
		Skipped:      1,
		Trades:       2,
		Wins:         1,
		Losses:       1,
		StartBalance: 10000,
		EndBalance:   10012.5,
		NetPL:        12.5,
		ReturnPct:    0.125,
		WinRate:      50,
		ProfitFactor: &pf,
		MaxDD:        25,
		MaxDDPct:     0.25,
		Notes:        []string{"first", "second"},
	}
	trades := []TradeRecord{
		sampleTrade("R1-0002", base.Add(50*time.Minute), -25),
		sampleTrade("R1-0001", base.Add(20*time.Minute), 37.5),
	}
	equity := []EquitySnapshot{
		{RunID: "R1", Time: base, Equity: 10000, Kind: KindRealized},
		{RunID: "R1", Time: base.Add(20 * time.Minute), Equity: 10037.5, Kind: KindRealized},
		{RunID: "R1", Time: base.Add(50 * time.Minute), Equity: 10012.5, Kind: KindRealized},
		{RunID: "R1", Time: base.Add(5 * time.Minute), Equity: 9997.5, Kind: KindMark},
	}
	require.NoError(t, j.RecordRun(ctx, run, trades, equity))

	got, err := j.GetBacktestRun(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, "volatility_breakout", got.Strategy)
	assert.Equal(t, "M5", got.Timeframe)
	assert.Equal(t, []byte(`{"risk_pct":1}`), got.Config)
	assert.True(t, got.Start.Equal(run.Start))
	assert.Equal(t, 12, got.Bars)
	assert.Equal(t, 2, got.Trades)
	require.NotNil(t, got.ProfitFactor)
	assert.InDelta(t, 1.75, *got.ProfitFactor, 1e-9)
	assert.Nil(t, got.Sharpe)
	assert.Equal(t, []string{"first", "second"}, got.Notes)

	gotTrades, err := j.ListTradesByRunID(ctx, "R1")
	require.NoError(t, err)
	require.Len(t, gotTrades, 2)
	assert.Equal(t, "R1-0001", gotTrades[0].TradeID, "ordered by close time")
	assert.Equal(t, 2, gotTrades[0].Units)
	assert.Equal(t, "LONG", gotTrades[0].Direction)
	assert.InDelta(t, -1.25, gotTrades[0].MAE, 1e-9)
	assert.Equal(t, 3, gotTrades[0].BarsHeld)

	realized, err := j.ListEquityByRunID(ctx, "R1")
	require.NoError(t, err)
	require.Len(t, realized, 3)
	assert.InDelta(t, 10012.5, realized[2].Equity, 1e-9)

	marks, err := j.ListEquity(ctx, "R1", KindMark)
	require.NoError(t, err)
	require.Len(t, marks, 1)

	runs, err := j.ListBacktestRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	org, err := j.ExportBacktestOrg(ctx, "R1")
	require.NoError(t, err)
	assert.Contains(t, org, "* BACKTEST: volatility_breakout MES M5")
	assert.Contains(t, org, ":PROFIT_FAC:  1.75")
	assert.Contains(t, org, ":SHARPE:      n/a")
	assert.Contains(t, org, "** Trade: MES LONG (R1-0001)")
}

func TestSQLiteRecordRunRollsBack(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	base := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)
	dup := sampleTrade("T1", base, 1)
	err := j.RecordRun(ctx, BacktestRun{RunID: "R1", Start: base, End: base}, []TradeRecord{dup, dup}, nil)
	require.Error(t, err)

	_, err = j.GetBacktestRun(ctx, "R1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = j.GetTrade("T1")
	assert.ErrorIs(t, err, ErrNotFound)
}
