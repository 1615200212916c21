package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const insertTrade = `
	INSERT INTO trades
	(trade_id, run_id, instrument, direction, units, entry_price, exit_price, stop, target,
	 open_time, close_time, commission, realized_pl, mae, mfe, bars_held, reason)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func recordTrade(ctx context.Context, e execer, t TradeRecord) error {
	_, err := e.ExecContext(ctx, insertTrade,
		t.TradeID, t.RunID, t.Instrument, t.Direction, t.Units, t.EntryPrice, t.ExitPrice,
		t.Stop, t.Target, t.OpenTime.UTC(), t.CloseTime.UTC(), t.Commission, t.RealizedPL,
		t.MAE, t.MFE, t.BarsHeld, t.Reason,
	)
	return err
}

func recordEquity(ctx context.Context, e execer, s EquitySnapshot) error {
	kind := s.Kind
	if kind == "" {
		kind = KindRealized
	}
	_, err := e.ExecContext(ctx, `
		INSERT INTO equity (run_id, time, equity, kind)
		VALUES (?, ?, ?, ?)`,
		s.RunID, s.Time.UTC(), s.Equity, kind,
	)
	return err
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	return recordTrade(context.Background(), j.db, t)
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	return recordEquity(context.Background(), j.db, e)
}

// RecordBacktest inserts the run summary row.
func (j *SQLite) RecordBacktest(ctx context.Context, btr BacktestRun) error {
	return recordBacktest(ctx, j.db, btr)
}

func recordBacktest(ctx context.Context, e execer, r BacktestRun) error {
	created := r.Created
	if created.IsZero() {
		created = time.Now()
	}
	_, err := e.ExecContext(ctx, `
		INSERT INTO backtest_runs
		(run_id, created, strategy, instrument, timeframe, dataset, config, risk_pct,
		 start_time, end_time, bars, signals, skipped, trades, wins, losses,
		 start_balance, end_balance, net_pl, return_pct, win_rate, profit_factor,
		 max_dd, max_dd_pct, sharpe, git_commit, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, created.UTC(), r.Strategy, r.Instrument, r.Timeframe, r.Dataset, r.Config, r.RiskPct,
		r.Start.UTC(), r.End.UTC(), r.Bars, r.Signals, r.Skipped, r.Trades, r.Wins, r.Losses,
		r.StartBalance, r.EndBalance, r.NetPL, r.ReturnPct, r.WinRate, nullable(r.ProfitFactor),
		r.MaxDD, r.MaxDDPct, nullable(r.Sharpe), r.GitCommit, strings.Join(r.Notes, "\n"),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.RunID, err)
	}
	return nil
}

// RecordRun stores a run with its trades and equity points in one
// transaction.
func (j *SQLite) RecordRun(ctx context.Context, run BacktestRun, trades []TradeRecord, equity []EquitySnapshot) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := recordBacktest(ctx, tx, run); err != nil {
		return err
	}
	for _, t := range trades {
		if err := recordTrade(ctx, tx, t); err != nil {
			return fmt.Errorf("record trade %s: %w", t.TradeID, err)
		}
	}
	for _, e := range equity {
		if err := recordEquity(ctx, tx, e); err != nil {
			return fmt.Errorf("record equity: %w", err)
		}
	}
	return tx.Commit()
}

func (j *SQLite) GetBacktestRun(ctx context.Context, runID string) (BacktestRun, error) {
	row := j.db.QueryRowContext(ctx, selectRun+` WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return BacktestRun{}, fmt.Errorf("run %q %w", runID, ErrNotFound)
	}
	return r, err
}

// ListBacktestRuns returns every run, newest first.
func (j *SQLite) ListBacktestRuns(ctx context.Context) ([]BacktestRun, error) {
	rows, err := j.db.QueryContext(ctx, selectRun+` ORDER BY created DESC, run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BacktestRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (j *SQLite) ListTradesByRunID(ctx context.Context, runID string) ([]TradeRecord, error) {
	return j.queryTrades(ctx, selectTrade+` WHERE run_id = ? ORDER BY close_time ASC, trade_id ASC`, runID)
}

// ListEquityByRunID returns the realized equity curve of a run.
func (j *SQLite) ListEquityByRunID(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	return j.ListEquity(ctx, runID, KindRealized)
}

func (j *SQLite) ListEquity(ctx context.Context, runID, kind string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, time, equity, kind
		FROM equity
		WHERE run_id = ? AND kind = ?
		ORDER BY rowid ASC`, runID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEquity(rows)
}

// ExportBacktestOrg loads a run and its trades and returns the Org block.
func (j *SQLite) ExportBacktestOrg(ctx context.Context, runID string) (string, error) {
	run, err := j.GetBacktestRun(ctx, runID)
	if err != nil {
		return "", err
	}
	trades, err := j.ListTradesByRunID(ctx, runID)
	if err != nil {
		return "", err
	}
	return run.Org(trades)
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

const selectRun = `
	SELECT run_id, created, strategy, instrument, timeframe, dataset, config, risk_pct,
	       start_time, end_time, bars, signals, skipped, trades, wins, losses,
	       start_balance, end_balance, net_pl, return_pct, win_rate, profit_factor,
	       max_dd, max_dd_pct, sharpe, git_commit, notes
	FROM backtest_runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (BacktestRun, error) {
	var (
		r      BacktestRun
		pf, sh sql.NullFloat64
		notes  string
	)
	err := s.Scan(
		&r.RunID, &r.Created, &r.Strategy, &r.Instrument, &r.Timeframe, &r.Dataset, &r.Config, &r.RiskPct,
		&r.Start, &r.End, &r.Bars, &r.Signals, &r.Skipped, &r.Trades, &r.Wins, &r.Losses,
		&r.StartBalance, &r.EndBalance, &r.NetPL, &r.ReturnPct, &r.WinRate, &pf,
		&r.MaxDD, &r.MaxDDPct, &sh, &r.GitCommit, &notes,
	)
	if err != nil {
		return BacktestRun{}, err
	}
	r.ProfitFactor = fromNullable(pf)
	r.Sharpe = fromNullable(sh)
	if notes != "" {
		r.Notes = strings.Split(notes, "\n")
	}
	return r, nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNullable(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
