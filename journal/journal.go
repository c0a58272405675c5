// Package journal keeps the trade ledger: it follows every position from
// open to close, tracks intratrade excursion bar by bar and turns each
// lifecycle into a TradeRecord. Finalized records can be forwarded to a
// Journal sink (SQLite, CSV).
package journal

import (
	"time"

	"github.com/rustyeddy/trendtrader/market"
)

// TradeRecord is one row of the ledger. Closed records are immutable once
// appended; open records are rebuilt on every query with Exit == ExitOpen.
//
// Size is signed: positive for long, negative for short. EntryPrice,
// Volatility and VolatilityPct are nil on a degraded record built from a
// close that had no matching open.
type TradeRecord struct {
	TradeID    int64
	Instrument string
	Side       market.Side
	Size       float64

	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice *float64
	ExitPrice  float64

	PnLGross float64
	PnLNet   float64
	Bars     int

	Volatility    *float64
	VolatilityPct *float64

	MAEAbs    float64
	MAEPct    float64
	MFEAbs    float64
	MFEPct    float64
	Notional  float64
	ReturnPct float64

	Exit ExitType
	Meta map[string]string
}

// IsOpen reports whether the record describes a live position.
func (r TradeRecord) IsOpen() bool {
	return r.Exit == ExitOpen
}

// Degraded reports whether the entry side of the record is unknown.
func (r TradeRecord) Degraded() bool {
	return r.EntryPrice == nil
}

// Clone returns a copy of r that shares no pointers or maps with it.
func (r TradeRecord) Clone() TradeRecord {
	r.EntryPrice = clonePtr(r.EntryPrice)
	r.Volatility = clonePtr(r.Volatility)
	r.VolatilityPct = clonePtr(r.VolatilityPct)
	r.Meta = cloneMeta(r.Meta)
	return r
}

// Journal persists finalized trade records.
type Journal interface {
	RecordTrade(TradeRecord) error
	Close() error
}

func ptr(v float64) *float64 {
	return &v
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return ptr(*p)
}

func cloneMeta(meta map[string]string) map[string]string {
	if meta == nil {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
