package journal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/trendtrader/market"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

const tradeColumns = `trade_id, instrument, side, size, entry_time, exit_time, entry_price, exit_price,
	pnl_gross, pnl_net, bars, volatility, volatility_pct, mae_abs, mae_pct, mfe_abs, mfe_pct,
	notional, return_pct, exit_type, meta`

type rowScanner interface {
	Scan(dest ...any) error
}

// GetTrade returns a single trade of this run.
func (j *SQLite) GetTrade(instrument string, tradeID int64) (TradeRecord, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+`
		FROM trades
		WHERE run_id = ? AND instrument = ? AND trade_id = ?`, j.runID, instrument, tradeID)

	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %s/%d: %w", instrument, tradeID, ErrNotFound)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTrades returns every trade of runID in insertion order.
func (j *SQLite) ListTrades(runID string) ([]TradeRecord, error) {
	rows, err := j.db.Query(`SELECT `+tradeColumns+`
		FROM trades
		WHERE run_id = ?
		ORDER BY rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	return collectTrades(rows)
}

// ListTradesClosedBetween returns trades of any run whose exit_time is within [start, end).
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`SELECT `+tradeColumns+`
		FROM trades
		WHERE exit_time >= ? AND exit_time < ?
		ORDER BY exit_time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	return collectTrades(rows)
}

// ListRuns returns all stored runs, newest first.
func (j *SQLite) ListRuns() ([]Run, error) {
	rows, err := j.db.Query(`SELECT run_id, created, instrument, config FROM runs ORDER BY created DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r   Run
			cfg string
		)
		if err := rows.Scan(&r.RunID, &r.Created, &r.Instrument, &cfg); err != nil {
			return nil, err
		}
		r.Config = []byte(cfg)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func collectTrades(rows *sql.Rows) ([]TradeRecord, error) {
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

func scanTrade(s rowScanner) (TradeRecord, error) {
	var (
		rec       TradeRecord
		side      string
		exit      string
		meta      string
		entryTime sql.NullTime
		entryPx   sql.NullFloat64
		vol       sql.NullFloat64
		volPct    sql.NullFloat64
	)

	err := s.Scan(
		&rec.TradeID, &rec.Instrument, &side, &rec.Size, &entryTime, &rec.ExitTime,
		&entryPx, &rec.ExitPrice, &rec.PnLGross, &rec.PnLNet, &rec.Bars, &vol, &volPct,
		&rec.MAEAbs, &rec.MAEPct, &rec.MFEAbs, &rec.MFEPct, &rec.Notional, &rec.ReturnPct,
		&exit, &meta,
	)
	if err != nil {
		return TradeRecord{}, err
	}

	rec.Side = market.ParseSide(side)
	rec.Exit = ParseExitType(exit)
	if entryTime.Valid {
		rec.EntryTime = entryTime.Time
	}
	if entryPx.Valid {
		rec.EntryPrice = ptr(entryPx.Float64)
	}
	if vol.Valid {
		rec.Volatility = ptr(vol.Float64)
	}
	if volPct.Valid {
		rec.VolatilityPct = ptr(volPct.Float64)
	}
	if meta != "" && meta != "{}" {
		if err := json.Unmarshal([]byte(meta), &rec.Meta); err != nil {
			return TradeRecord{}, fmt.Errorf("decode meta: %w", err)
		}
	}
	return rec, nil
}
