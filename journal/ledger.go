package journal

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/trendtrader/market"
)

// OpenEvent notifies the ledger that a position was opened.
type OpenEvent struct {
	TradeID    int64
	Instrument string
	Side       market.Side
	EntryPrice float64
	Size       float64
	EntryTime  time.Time
	Volatility float64
}

// CloseEvent notifies the ledger that a position was closed. Size is only
// used when the matching open is missing.
type CloseEvent struct {
	TradeID    int64
	Instrument string
	ExitPrice  float64
	ExitTime   time.Time
	Size       float64
	PnLGross   float64
	PnLNet     float64
	Exit       ExitType
}

// OpenTradeStat is the running state of one live trade.
type OpenTradeStat struct {
	TradeID    int64
	Instrument string
	EntryPrice float64
	EntrySize  float64 // signed
	IsLong     bool
	Volatility float64
	EntryTime  time.Time
	EntryBar   int

	MAEAbs float64
	MFEAbs float64
}

// Ledger turns open/close notifications and per-bar highs and lows into
// trade records. It is not safe for concurrent use; run one ledger per
// instrument.
type Ledger struct {
	log  zerolog.Logger
	sink Journal
	meta map[string]string

	open   map[int64]*OpenTradeStat
	closed []TradeRecord

	bars     map[string]int
	lastPx   map[string]float64
	lastTime map[string]time.Time
}

type Option func(*Ledger)

func WithLogger(l zerolog.Logger) Option {
	return func(lg *Ledger) { lg.log = l }
}

// WithJournal forwards every finalized record to j.
func WithJournal(j Journal) Option {
	return func(lg *Ledger) { lg.sink = j }
}

// WithMeta stamps every record with a copy of meta (run parameters and the like).
func WithMeta(meta map[string]string) Option {
	return func(lg *Ledger) {
		if len(meta) == 0 {
			return
		}
		lg.meta = cloneMeta(meta)
	}
}

func NewLedger(opts ...Option) *Ledger {
	lg := &Ledger{
		log:      zerolog.Nop(),
		open:     make(map[int64]*OpenTradeStat),
		bars:     make(map[string]int),
		lastPx:   make(map[string]float64),
		lastTime: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(lg)
	}
	return lg
}

// OnOpen starts tracking a trade. A reused trade id overwrites the previous
// stat.
func (lg *Ledger) OnOpen(ev OpenEvent) {
	if _, dup := lg.open[ev.TradeID]; dup {
		lg.log.Warn().
			Int64("trade_id", ev.TradeID).
			Str("instrument", ev.Instrument).
			Msg("open for a trade id that is already open, replacing it")
	}

	side := ev.Side
	if side == market.Flat {
		switch {
		case ev.Size > 0:
			side = market.Long
		case ev.Size < 0:
			side = market.Short
		}
	}
	size := math.Abs(ev.Size)
	if side == market.Short {
		size = -size
	}

	lg.open[ev.TradeID] = &OpenTradeStat{
		TradeID:    ev.TradeID,
		Instrument: ev.Instrument,
		EntryPrice: ev.EntryPrice,
		EntrySize:  size,
		IsLong:     side != market.Short,
		Volatility: ev.Volatility,
		EntryTime:  ev.EntryTime,
		EntryBar:   lg.bars[ev.Instrument],
	}
}

// OnBar updates the excursion of every open trade on the bar's instrument.
// Call it before any close that may happen on the same bar.
func (lg *Ledger) OnBar(bar market.Bar) {
	lg.bars[bar.Instrument]++
	lg.lastPx[bar.Instrument] = bar.Close
	lg.lastTime[bar.Instrument] = bar.Time

	for _, st := range lg.open {
		if st.Instrument != bar.Instrument {
			continue
		}
		var adverse, favorable float64
		if st.IsLong {
			adverse = st.EntryPrice - bar.Low
			favorable = bar.High - st.EntryPrice
		} else {
			adverse = bar.High - st.EntryPrice
			favorable = st.EntryPrice - bar.Low
		}
		if adverse > st.MAEAbs {
			st.MAEAbs = adverse
		}
		if favorable > st.MFEAbs {
			st.MFEAbs = favorable
		}
	}
}

// OnClose finalizes a trade. A close without a matching open still produces
// a record, with the entry side left nil.
func (lg *Ledger) OnClose(ev CloseEvent) {
	st, ok := lg.open[ev.TradeID]
	if ok {
		delete(lg.open, ev.TradeID)
	}

	var rec TradeRecord
	if ok {
		rec = lg.record(st, ev.ExitPrice, ev.ExitTime, ev.PnLGross, ev.PnLNet, ev.Exit)
	} else {
		lg.log.Warn().
			Int64("trade_id", ev.TradeID).
			Str("instrument", ev.Instrument).
			Msg("close without a matching open, recording partial trade")
		rec = TradeRecord{
			TradeID:    ev.TradeID,
			Instrument: ev.Instrument,
			Side:       sideOf(ev.Size),
			Size:       ev.Size,
			ExitTime:   ev.ExitTime,
			ExitPrice:  ev.ExitPrice,
			PnLGross:   ev.PnLGross,
			PnLNet:     ev.PnLNet,
			Exit:       ev.Exit,
			Meta:       cloneMeta(lg.meta),
		}
	}

	lg.closed = append(lg.closed, rec)

	if lg.sink != nil {
		if err := lg.sink.RecordTrade(rec.Clone()); err != nil {
			lg.log.Error().Err(err).Int64("trade_id", rec.TradeID).Msg("journal record trade")
		}
	}
}

// Query returns every closed record in the order trades closed, followed by
// one record per open trade marked to the latest close. Calling it again
// without intervening events returns the same result. The records are
// copies; changing them does not change the ledger.
func (lg *Ledger) Query() []TradeRecord {
	out := make([]TradeRecord, 0, len(lg.closed)+len(lg.open))
	for _, rec := range lg.closed {
		out = append(out, rec.Clone())
	}

	ids := make([]int64, 0, len(lg.open))
	for id := range lg.open {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		st := lg.open[id]
		last, ok := lg.lastPx[st.Instrument]
		if !ok {
			last = st.EntryPrice
		}
		pnl := (last - st.EntryPrice) * st.EntrySize
		exitTime := lg.lastTime[st.Instrument]
		if exitTime.IsZero() {
			exitTime = st.EntryTime
		}
		out = append(out, lg.record(st, last, exitTime, pnl, pnl, ExitOpen))
	}
	return out
}

// Closed returns the finalized records only.
func (lg *Ledger) Closed() []TradeRecord {
	out := make([]TradeRecord, len(lg.closed))
	for i, rec := range lg.closed {
		out[i] = rec.Clone()
	}
	return out
}

// OpenCount is the number of trades currently being tracked.
func (lg *Ledger) OpenCount() int {
	return len(lg.open)
}

// Stat returns a copy of the running stat for an open trade.
func (lg *Ledger) Stat(tradeID int64) (OpenTradeStat, bool) {
	st, ok := lg.open[tradeID]
	if !ok {
		return OpenTradeStat{}, false
	}
	return *st, true
}

func (lg *Ledger) record(st *OpenTradeStat, exitPrice float64, exitTime time.Time, gross, net float64, exit ExitType) TradeRecord {
	notional := st.EntryPrice * math.Abs(st.EntrySize)

	rec := TradeRecord{
		TradeID:    st.TradeID,
		Instrument: st.Instrument,
		Side:       sideOf(st.EntrySize),
		Size:       st.EntrySize,
		EntryTime:  st.EntryTime,
		ExitTime:   exitTime,
		EntryPrice: ptr(st.EntryPrice),
		ExitPrice:  exitPrice,
		PnLGross:   gross,
		PnLNet:     net,
		Bars:       lg.bars[st.Instrument] - st.EntryBar,
		MAEAbs:     st.MAEAbs,
		MFEAbs:     st.MFEAbs,
		Notional:   notional,
		Exit:       exit,
		Meta:       cloneMeta(lg.meta),
	}
	if notional != 0 {
		rec.MAEPct = st.MAEAbs / notional
		rec.MFEPct = st.MFEAbs / notional
		rec.ReturnPct = net / notional
	}
	if !math.IsNaN(st.Volatility) {
		rec.Volatility = ptr(st.Volatility)
		if st.EntryPrice != 0 {
			rec.VolatilityPct = ptr(st.Volatility / st.EntryPrice)
		}
	}
	return rec
}

func sideOf(size float64) market.Side {
	switch {
	case size > 0:
		return market.Long
	case size < 0:
		return market.Short
	default:
		return market.Flat
	}
}
