package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/trendtrader/internal/id"
)

// SQLite stores trade records for one run. Several runs may share a file.
type SQLite struct {
	db    *sql.DB
	runID string
}

// Run describes one backtest run as stored in the runs table.
type Run struct {
	RunID      string
	Created    time.Time
	Instrument string
	Config     []byte
}

// NewSQLite opens (or creates) the database at path and tags every record
// written through it with runID.
func NewSQLite(path, runID string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db, runID: runID}, nil
}

func (j *SQLite) RunID() string { return j.runID }

// RecordRun stores the run header. A zero Created is taken from the run id
// when it is a ULID, else from the wall clock.
func (j *SQLite) RecordRun(r Run) error {
	if r.RunID == "" {
		r.RunID = j.runID
	}
	if r.Created.IsZero() {
		created, err := id.Time(r.RunID)
		if err != nil {
			created = time.Now().UTC()
		}
		r.Created = created
	}
	_, err := j.db.Exec(`
		INSERT INTO runs (run_id, created, instrument, config)
		VALUES (?, ?, ?, ?)`,
		r.RunID, r.Created, r.Instrument, string(r.Config),
	)
	return err
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	meta := []byte("{}")
	if len(t.Meta) > 0 {
		var err error
		if meta, err = json.Marshal(t.Meta); err != nil {
			return fmt.Errorf("encode meta: %w", err)
		}
	}

	var entryTime sql.NullTime
	if !t.EntryTime.IsZero() {
		entryTime = sql.NullTime{Time: t.EntryTime, Valid: true}
	}

	_, err := j.db.Exec(`
		INSERT INTO trades
		(run_id, trade_id, instrument, side, size, entry_time, exit_time, entry_price, exit_price,
		 pnl_gross, pnl_net, bars, volatility, volatility_pct, mae_abs, mae_pct, mfe_abs, mfe_pct,
		 notional, return_pct, exit_type, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.runID, t.TradeID, t.Instrument, t.Side.String(), t.Size, entryTime, t.ExitTime,
		nullFloat(t.EntryPrice), t.ExitPrice, t.PnLGross, t.PnLNet, t.Bars,
		nullFloat(t.Volatility), nullFloat(t.VolatilityPct),
		t.MAEAbs, t.MAEPct, t.MFEAbs, t.MFEPct, t.Notional, t.ReturnPct,
		t.Exit.String(), string(meta),
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
