package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const selectTrade = `
	SELECT trade_id, run_id, instrument, direction, units, entry_price, exit_price, stop, target,
	       open_time, close_time, commission, realized_pl, mae, mfe, bars_held, reason
	FROM trades`

func scanTrade(s scanner) (TradeRecord, error) {
	var rec TradeRecord
	err := s.Scan(
		&rec.TradeID,
		&rec.RunID,
		&rec.Instrument,
		&rec.Direction,
		&rec.Units,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.Stop,
		&rec.Target,
		&rec.OpenTime,
		&rec.CloseTime,
		&rec.Commission,
		&rec.RealizedPL,
		&rec.MAE,
		&rec.MFE,
		&rec.BarsHeld,
		&rec.Reason,
	)
	return rec, err
}

func (j *SQLite) queryTrades(ctx context.Context, q string, args ...any) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanEquity(rows *sql.Rows) ([]EquitySnapshot, error) {
	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.RunID, &e.Time, &e.Equity, &e.Kind); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(selectTrade+` WHERE trade_id = ?`, tradeID)
	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q %w", tradeID, ErrNotFound)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesClosedBetween returns trades of every run whose close_time is
// within [start, end).
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	return j.queryTrades(context.Background(),
		selectTrade+` WHERE close_time >= ? AND close_time < ? ORDER BY close_time ASC`,
		start.UTC(), end.UTC())
}

// ListEquityBetween returns equity points of any kind in [start, end).
func (j *SQLite) ListEquityBetween(start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT run_id, time, equity, kind
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEquity(rows)
}
