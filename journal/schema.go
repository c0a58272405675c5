package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	instrument TEXT NOT NULL,
	config TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	run_id TEXT NOT NULL,
	trade_id INTEGER NOT NULL,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	size REAL NOT NULL,
	entry_time DATETIME,
	exit_time DATETIME NOT NULL,
	entry_price REAL,
	exit_price REAL NOT NULL,
	pnl_gross REAL NOT NULL,
	pnl_net REAL NOT NULL,
	bars INTEGER NOT NULL,
	volatility REAL,
	volatility_pct REAL,
	mae_abs REAL NOT NULL,
	mae_pct REAL NOT NULL,
	mfe_abs REAL NOT NULL,
	mfe_pct REAL NOT NULL,
	notional REAL NOT NULL,
	return_pct REAL NOT NULL,
	exit_type TEXT NOT NULL,
	meta TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (run_id, instrument, trade_id)
);

CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time);
`
