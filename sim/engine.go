// Package sim is a deterministic bar-level execution gateway for one
// instrument. Market orders fill at the close of the bar they are settled on;
// resting stop and target orders are checked against each new bar's range.
package sim

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/trendtrader/broker"
	"github.com/rustyeddy/trendtrader/config"
	"github.com/rustyeddy/trendtrader/internal/id"
	"github.com/rustyeddy/trendtrader/market"
)

var (
	ErrMarginExceeded = fmt.Errorf("%w: insufficient cash for entry", broker.ErrRejected)
	ErrPositionExists = fmt.Errorf("%w: position already open", broker.ErrRejected)
	ErrNoPosition     = fmt.Errorf("%w: no open position", broker.ErrRejected)
	ErrUnknownOrder   = fmt.Errorf("%w: unknown order", broker.ErrRejected)
	ErrBadOrder       = fmt.Errorf("%w: bad order", broker.ErrRejected)
)

// Position is the engine's view of the open position.
type Position struct {
	BrokerID   string
	Side       market.Side
	Size       float64 // unsigned
	EntryPrice float64
	EntryTime  time.Time
}

func (p Position) signed() float64 {
	return p.Side.Sign() * p.Size
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine simulates a broker for a single instrument. It is not safe for
// concurrent use.
type Engine struct {
	instrument string
	cfg        config.SimulationConfig
	cash       float64
	log        zerolog.Logger
	listener   broker.Listener

	next    broker.OrderRef
	resting map[broker.OrderRef]*order
	queue   []*order

	pos    *Position
	bar    market.Bar
	closed int

	// events collected while state changes, delivered once state is consistent
	pending []func(broker.Listener)
}

func NewEngine(instrument string, cfg config.SimulationConfig, opts ...Option) *Engine {
	e := &Engine{
		instrument: instrument,
		cfg:        cfg,
		cash:       cfg.Cash,
		log:        zerolog.Nop(),
		resting:    make(map[broker.OrderRef]*order),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With().Str("instrument", instrument).Logger()
	return e
}

// SetListener sets the receiver of order and trade events.
func (e *Engine) SetListener(l broker.Listener) {
	e.listener = l
}

// Cash is the starting cash plus realized net P&L.
func (e *Engine) Cash() float64 { return e.cash }

// Position returns the open position, if any.
func (e *Engine) Position() (Position, bool) {
	if e.pos == nil {
		return Position{}, false
	}
	return *e.pos, true
}

// ClosedTrades is the number of positions closed so far.
func (e *Engine) ClosedTrades() int { return e.closed }

// Resting returns the refs of armed stop and target orders in ref order.
func (e *Engine) Resting() []broker.OrderRef {
	refs := make([]broker.OrderRef, 0, len(e.resting))
	for ref := range e.resting {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
	return refs
}

func (e *Engine) SubmitEntry(side market.Side, size float64) (broker.OrderRef, error) {
	if side == market.Flat || !(size > 0) {
		return 0, fmt.Errorf("entry %s %v: %w", side, size, ErrBadOrder)
	}
	if e.pos != nil || e.entryQueued() {
		return 0, ErrPositionExists
	}
	o := &order{ref: e.nextRef(), kind: broker.Market, side: side, size: size}
	e.queue = append(e.queue, o)
	e.accept(o)
	return o.ref, nil
}

func (e *Engine) SubmitFixedStop(price, size float64) (broker.OrderRef, error) {
	return e.rest(&order{kind: broker.FixedStop, price: price, size: size}, price)
}

func (e *Engine) SubmitTarget(price, size float64) (broker.OrderRef, error) {
	return e.rest(&order{kind: broker.Target, price: price, size: size}, price)
}

// SubmitTrailingStop arms a stop trail away from the best price seen from
// the current bar's close onward.
func (e *Engine) SubmitTrailingStop(trail, size float64) (broker.OrderRef, error) {
	return e.rest(&order{kind: broker.TrailingStop, trail: trail, best: e.bar.Close, size: size}, trail)
}

func (e *Engine) rest(o *order, level float64) (broker.OrderRef, error) {
	if e.pos == nil {
		return 0, ErrNoPosition
	}
	if !(level > 0) || !(o.size > 0) {
		return 0, fmt.Errorf("%s level %v size %v: %w", o.kind, level, o.size, ErrBadOrder)
	}
	if o.kind == broker.TrailingStop && o.best == 0 {
		o.best = e.pos.EntryPrice
	}
	o.ref = e.nextRef()
	e.resting[o.ref] = o
	e.accept(o)
	return o.ref, nil
}

func (e *Engine) ClosePosition() (broker.OrderRef, error) {
	if e.pos == nil {
		return 0, ErrNoPosition
	}
	o := &order{ref: e.nextRef(), kind: broker.Market, close: true, size: e.pos.Size}
	e.queue = append(e.queue, o)
	e.accept(o)
	return o.ref, nil
}

func (e *Engine) Cancel(ref broker.OrderRef) error {
	if o, ok := e.resting[ref]; ok {
		delete(e.resting, ref)
		e.orderEvent(o, broker.Canceled, 0, "canceled")
		e.flush()
		return nil
	}
	for i, o := range e.queue {
		if o.ref == ref {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			e.orderEvent(o, broker.Canceled, 0, "canceled")
			e.flush()
			return nil
		}
	}
	return fmt.Errorf("cancel %d: %w", ref, ErrUnknownOrder)
}

// OnBar checks resting orders against bar. At most one order fills; when
// several trigger, stop-side orders win, and among those the level the price
// reaches first.
func (e *Engine) OnBar(bar market.Bar) {
	if bar.Instrument != "" && bar.Instrument != e.instrument {
		return
	}
	e.bar = bar
	if e.pos == nil {
		return
	}

	side := e.pos.Side
	var (
		hit   *order
		price float64
	)
	for _, ref := range e.Resting() {
		o := e.resting[ref]
		px, ok := o.trigger(side, bar)
		if !ok {
			continue
		}
		switch {
		case hit == nil:
		case o.stopSide() && !hit.stopSide():
		case o.stopSide() == hit.stopSide() && nearer(side, o.level(side), hit.level(side)):
		default:
			continue
		}
		hit, price = o, px
	}

	if hit == nil {
		for _, o := range e.resting {
			o.ratchet(side, bar)
		}
		return
	}

	delete(e.resting, hit.ref)
	e.log.Debug().
		Int64("ref", int64(hit.ref)).
		Stringer("kind", hit.kind).
		Float64("price", price).
		Time("time", bar.Time).
		Msg("protective order triggered")
	e.closePosition(hit, price)
	e.flush()
	e.sweep()
}

// Settle fills queued market orders at the current bar's close.
func (e *Engine) Settle() {
	q := e.queue
	e.queue = nil

	for _, o := range q {
		if o.close {
			e.settleClose(o)
		} else {
			e.settleEntry(o)
		}
		e.flush()
		e.sweep()
	}
}

func (e *Engine) settleEntry(o *order) {
	px := e.bar.Close

	if e.pos != nil {
		e.orderEvent(o, broker.Rejected, 0, ErrPositionExists.Error())
		return
	}
	if need := MarginRequired(o.size, px, e.cfg.Leverage); need > e.cash {
		e.log.Warn().Float64("need", need).Float64("cash", e.cash).Msg("entry rejected")
		e.orderEvent(o, broker.Rejected, 0, ErrMarginExceeded.Error())
		return
	}

	brokerID := id.New()
	if !e.bar.Time.IsZero() {
		brokerID = id.At(e.bar.Time)
	}
	e.pos = &Position{
		BrokerID:   brokerID,
		Side:       o.side,
		Size:       o.size,
		EntryPrice: px,
		EntryTime:  e.bar.Time,
	}
	e.orderEvent(o, broker.Completed, px, "")

	opened := broker.TradeOpened{
		BrokerID:   e.pos.BrokerID,
		Instrument: e.instrument,
		Side:       e.pos.Side,
		Price:      px,
		Size:       e.pos.signed(),
		Time:       e.bar.Time,
	}
	e.pending = append(e.pending, func(l broker.Listener) { l.OnTradeOpened(opened) })
}

func (e *Engine) settleClose(o *order) {
	if e.pos == nil {
		e.orderEvent(o, broker.Rejected, 0, ErrNoPosition.Error())
		return
	}
	e.closePosition(o, e.bar.Close)
}

func (e *Engine) closePosition(o *order, px float64) {
	p := e.pos
	gross := GrossPL(p.signed(), p.EntryPrice, px)
	net := gross - Commission(e.cfg.Commission, p.Size, p.EntryPrice, px)

	e.cash += net
	e.pos = nil
	e.closed++

	o.size = p.Size
	e.orderEvent(o, broker.Completed, px, "")

	closed := broker.TradeClosed{
		BrokerID:   p.BrokerID,
		Instrument: e.instrument,
		Price:      px,
		Size:       p.signed(),
		Time:       e.bar.Time,
		PnLGross:   gross,
		PnLNet:     net,
	}
	e.pending = append(e.pending, func(l broker.Listener) { l.OnTradeClosed(closed) })
}

// sweep cancels resting orders left behind by a closed position.
func (e *Engine) sweep() {
	if e.pos != nil || len(e.resting) == 0 {
		return
	}
	for _, ref := range e.Resting() {
		o := e.resting[ref]
		delete(e.resting, ref)
		e.orderEvent(o, broker.Canceled, 0, "position closed")
	}
	e.flush()
}

func (e *Engine) entryQueued() bool {
	for _, o := range e.queue {
		if !o.close {
			return true
		}
	}
	return false
}

func (e *Engine) nextRef() broker.OrderRef {
	e.next++
	return e.next
}

func (e *Engine) accept(o *order) {
	e.orderEvent(o, broker.Submitted, 0, "")
	e.orderEvent(o, broker.Accepted, 0, "")
	e.flush()
}

func (e *Engine) orderEvent(o *order, status broker.OrderStatus, px float64, reason string) {
	ev := broker.OrderEvent{
		Ref:        o.ref,
		Instrument: e.instrument,
		Kind:       o.kind,
		Status:     status,
		Time:       e.bar.Time,
		Reason:     reason,
	}
	if status == broker.Completed {
		ev.FillPrice = px
		ev.FillSize = o.size
	}
	e.pending = append(e.pending, func(l broker.Listener) { l.OnOrder(ev) })
}

// flush delivers collected events. A listener that calls back into the
// engine sees the events of that call before the call returns.
func (e *Engine) flush() {
	for len(e.pending) > 0 {
		batch := e.pending
		e.pending = nil
		if e.listener == nil {
			continue
		}
		for _, fn := range batch {
			fn(e.listener)
		}
	}
}

var _ broker.Gateway = (*Engine)(nil)
