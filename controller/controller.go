// Package controller turns per-bar indicator state into entry, exit and
// protective order commands for a single instrument, and reports every
// position it opens and closes to a trade ledger.
//
// A Controller is driven from one goroutine: OnBar once per bar, and the
// broker.Listener callbacks as the gateway reports order and trade events.
// Gateway calls may re-enter the listener synchronously.
package controller

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/trendtrader/broker"
	"github.com/rustyeddy/trendtrader/config"
	"github.com/rustyeddy/trendtrader/journal"
	"github.com/rustyeddy/trendtrader/market"
)

// Ledger receives position lifecycle notifications. *journal.Ledger
// implements it.
type Ledger interface {
	OnOpen(ev journal.OpenEvent)
	OnClose(ev journal.CloseEvent)
}

// Observer is told about entries, exits and refused orders. Metrics hang
// off it.
type Observer interface {
	Entered(instrument string, side market.Side)
	Exited(instrument string, exit journal.ExitType, pnlNet float64)
	Rejected(instrument string, kind broker.OrderKind)
}

type Option func(*Controller)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.obs = o }
}

// WithClassifier replaces the default fill-kind to exit-type mapping.
func WithClassifier(fn journal.ExitClassifier) Option {
	return func(c *Controller) { c.classify = fn }
}

// Controller is the position state machine for one instrument.
type Controller struct {
	instrument string
	cfg        config.StrategyConfig
	gw         broker.Gateway
	ledger     Ledger
	obs        Observer
	log        zerolog.Logger

	classify journal.ExitClassifier
	resolver *journal.ExitResolver

	state       State
	pos         *Position
	entryRef    broker.OrderRef
	entrySide   market.Side
	closeRef    broker.OrderRef
	pendingExit journal.ExitType

	bar         market.Bar
	barIndex    int
	lastExitBar int
	hasExited   bool
	nextTradeID int64
}

// New validates cfg and returns a Flat controller. The caller must register
// the controller as the gateway's listener.
func New(instrument string, cfg config.StrategyConfig, gw broker.Gateway, ledger Ledger, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if instrument == "" {
		return nil, fmt.Errorf("%w: instrument is required", config.ErrInvalid)
	}
	if gw == nil {
		return nil, fmt.Errorf("controller %s: nil gateway", instrument)
	}

	c := &Controller{
		instrument:  instrument,
		cfg:         cfg,
		gw:          gw,
		ledger:      ledger,
		log:         zerolog.Nop(),
		barIndex:    -1,
		nextTradeID: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.resolver = journal.NewExitResolver(c.classify)
	c.log = c.log.With().Str("instrument", instrument).Logger()
	return c, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State { return c.state }

// Position returns a copy of the open position, if any.
func (c *Controller) Position() (Position, bool) {
	if c.pos == nil {
		return Position{}, false
	}
	return *c.pos, true
}

// OnBar evaluates the bar. Bars for other instruments are ignored.
func (c *Controller) OnBar(bar market.Bar) {
	if bar.Instrument != "" && bar.Instrument != c.instrument {
		return
	}
	c.barIndex++
	c.bar = bar

	switch c.state {
	case Flat:
		c.evaluateEntry(bar)
	case Long, Short:
		c.evaluateExit(bar)
	case EntryPending, ExitPending:
		// waiting on the gateway
	}
}

// alignment returns the trend direction of the bar, or Flat when the
// readings do not match the configured averages.
func (c *Controller) alignment(bar market.Bar) market.Side {
	if len(bar.Trend) != len(c.cfg.Averages) {
		return market.Flat
	}
	return market.Alignment(bar.Trend)
}

// gateSide runs the entry gates and returns the side to enter, or Flat with
// the name of the gate that failed.
func (c *Controller) gateSide(bar market.Bar) (market.Side, string) {
	if !c.cfg.ActivationCutoff.IsZero() && bar.Time.Before(c.cfg.ActivationCutoff) {
		return market.Flat, "warmup"
	}

	side := c.alignment(bar)
	if side == market.Flat {
		return market.Flat, "alignment"
	}

	if c.cfg.NoiseMultiple != 0 {
		gap := math.Abs(bar.Close - bar.Fast())
		if !(gap > bar.Volatility*c.cfg.NoiseMultiple) {
			return market.Flat, "noise"
		}
	}

	if !(bar.Strength > c.cfg.StrengthThreshold) {
		return market.Flat, "strength"
	}

	if c.hasExited && c.barIndex-c.lastExitBar <= c.cfg.CooldownBars {
		return market.Flat, "cooldown"
	}

	return side, ""
}

func (c *Controller) evaluateEntry(bar market.Bar) {
	side, gate := c.gateSide(bar)
	if side == market.Flat {
		c.log.Trace().Time("time", bar.Time).Str("gate", gate).Msg("no entry")
		return
	}

	c.state = EntryPending
	c.entrySide = side

	ref, err := c.gw.SubmitEntry(side, c.cfg.Size)
	if err != nil {
		c.entryRejected(err.Error())
		return
	}
	if c.state != EntryPending {
		// resolved synchronously by the gateway
		return
	}
	c.entryRef = ref

	c.log.Debug().
		Time("time", bar.Time).
		Stringer("side", side).
		Float64("size", c.cfg.Size).
		Int64("ref", int64(ref)).
		Msg("entry submitted")
}

func (c *Controller) entryRejected(reason string) {
	c.log.Warn().Stringer("side", c.entrySide).Str("reason", reason).Msg("entry rejected")
	c.state = Flat
	c.entryRef = 0
	c.entrySide = market.Flat
	if c.obs != nil {
		c.obs.Rejected(c.instrument, broker.Market)
	}
}

func (c *Controller) evaluateExit(bar market.Bar) {
	if !c.cfg.SignalExit || c.pos == nil {
		return
	}
	if c.alignment(bar) != c.pos.Side.Opposite() {
		return
	}

	for _, ref := range c.pos.Protective.Clear() {
		c.cancel(ref)
	}

	c.state = ExitPending
	c.pendingExit = journal.ExitSignal

	ref, err := c.gw.ClosePosition()
	if err != nil {
		c.closeRejected(err.Error())
		return
	}
	if c.pos != nil && c.state == ExitPending {
		c.closeRef = ref
	}

	c.log.Debug().
		Time("time", bar.Time).
		Int64("trade_id", c.tradeID()).
		Int64("ref", int64(ref)).
		Msg("signal exit submitted")
}

func (c *Controller) closeRejected(reason string) {
	c.log.Warn().Int64("trade_id", c.tradeID()).Str("reason", reason).Msg("close rejected, position still open")
	c.closeRef = 0
	c.pendingExit = 0
	if c.pos != nil {
		c.state = holding(c.pos.Side)
	}
	if c.obs != nil {
		c.obs.Rejected(c.instrument, broker.Market)
	}
}

func (c *Controller) cancel(ref broker.OrderRef) {
	if err := c.gw.Cancel(ref); err != nil {
		c.log.Warn().Err(err).Int64("ref", int64(ref)).Msg("cancel protective order")
	}
}

func (c *Controller) tradeID() int64 {
	if c.pos == nil {
		return 0
	}
	return c.pos.TradeID
}

// OnOrder implements broker.Listener.
func (c *Controller) OnOrder(ev broker.OrderEvent) {
	switch {
	case ev.Status == broker.Completed:
		c.onFill(ev)
	case ev.Status.Terminal():
		c.onDead(ev)
	default:
		c.log.Trace().Int64("ref", int64(ev.Ref)).Stringer("kind", ev.Kind).Stringer("status", ev.Status).Msg("order")
	}
}

func (c *Controller) onFill(ev broker.OrderEvent) {
	if ev.Ref == c.entryRef && c.state == EntryPending {
		c.onEntryFill(ev)
		return
	}

	c.resolver.Observe(ev)

	if c.pos == nil {
		return
	}
	kind, siblings, ok := c.pos.Protective.Resolve(ev.Ref)
	if !ok {
		return
	}

	c.log.Debug().
		Int64("trade_id", c.pos.TradeID).
		Stringer("kind", kind).
		Float64("price", ev.FillPrice).
		Msg("protective order filled")

	c.state = ExitPending
	for _, ref := range siblings {
		c.cancel(ref)
	}
}

// onEntryFill records the fill. Repeated fills for the same order replace
// price and size; the latest confirmed fill wins.
func (c *Controller) onEntryFill(ev broker.OrderEvent) {
	if c.pos == nil {
		c.pos = &Position{
			TradeID:         c.nextTradeID,
			Side:            c.entrySide,
			EntryVolatility: c.bar.Volatility,
		}
		c.nextTradeID++
	}
	c.pos.EntryPrice = ev.FillPrice
	c.pos.EntrySize = ev.FillSize
	c.pos.EntryTime = ev.Time
	if c.pos.EntryTime.IsZero() {
		c.pos.EntryTime = c.bar.Time
	}
}

func (c *Controller) onDead(ev broker.OrderEvent) {
	switch {
	case ev.Ref == c.entryRef && c.state == EntryPending:
		c.entryRejected(fmt.Sprintf("%s: %s", ev.Status, ev.Reason))

	case ev.Ref == c.closeRef && c.state == ExitPending:
		c.closeRejected(fmt.Sprintf("%s: %s", ev.Status, ev.Reason))

	case c.pos != nil && c.pos.Protective.Has(ev.Ref):
		c.pos.Protective.Drop(ev.Ref)
		c.log.Warn().
			Int64("trade_id", c.pos.TradeID).
			Int64("ref", int64(ev.Ref)).
			Stringer("kind", ev.Kind).
			Stringer("status", ev.Status).
			Str("reason", ev.Reason).
			Msg("protective order lost, position keeps running")
		if ev.Status == broker.Rejected && c.obs != nil {
			c.obs.Rejected(c.instrument, ev.Kind)
		}
	}
}

// OnTradeOpened implements broker.Listener.
func (c *Controller) OnTradeOpened(ev broker.TradeOpened) {
	if c.pos == nil || c.state != EntryPending {
		c.log.Warn().Str("broker_id", ev.BrokerID).Msg("trade opened without a pending entry")
		return
	}

	c.state = holding(c.pos.Side)
	c.entryRef = 0
	c.resolver.Reset()

	c.log.Info().
		Int64("trade_id", c.pos.TradeID).
		Str("broker_id", ev.BrokerID).
		Stringer("side", c.pos.Side).
		Float64("price", c.pos.EntryPrice).
		Float64("size", c.pos.EntrySize).
		Msg("position opened")

	if c.ledger != nil {
		c.ledger.OnOpen(journal.OpenEvent{
			TradeID:    c.pos.TradeID,
			Instrument: c.instrument,
			Side:       c.pos.Side,
			EntryPrice: c.pos.EntryPrice,
			Size:       c.pos.SignedSize(),
			EntryTime:  c.pos.EntryTime,
			Volatility: c.pos.EntryVolatility,
		})
	}
	if c.obs != nil {
		c.obs.Entered(c.instrument, c.pos.Side)
	}

	c.armProtective()
}

func (c *Controller) armProtective() {
	p := c.pos
	sign := p.Side.Sign()

	if c.cfg.Stop.Enabled {
		price := p.EntryPrice - sign*c.cfg.Stop.Distance(p.EntryPrice, p.EntryVolatility)
		if price > 0 && price != p.EntryPrice {
			p.Protective.Stop = c.submitLeg(broker.FixedStop, price, func() (broker.OrderRef, error) {
				return c.gw.SubmitFixedStop(price, p.EntrySize)
			})
		} else {
			c.log.Warn().Int64("trade_id", p.TradeID).Float64("stop", price).Msg("skipping fixed stop, bad price")
		}
	}

	if c.cfg.Trailing.Enabled {
		trail := c.cfg.Trailing.Multiple * p.EntryVolatility
		if trail > 0 {
			p.Protective.Trail = c.submitLeg(broker.TrailingStop, trail, func() (broker.OrderRef, error) {
				return c.gw.SubmitTrailingStop(trail, p.EntrySize)
			})
		} else {
			c.log.Warn().Int64("trade_id", p.TradeID).Float64("trail", trail).Msg("skipping trailing stop, bad trail amount")
		}
	}

	if c.cfg.Target.Enabled {
		price := p.EntryPrice + sign*c.cfg.Target.Distance(p.EntryPrice, p.EntryVolatility)
		if price > 0 && price != p.EntryPrice {
			p.Protective.Target = c.submitLeg(broker.Target, price, func() (broker.OrderRef, error) {
				return c.gw.SubmitTarget(price, p.EntrySize)
			})
		} else {
			c.log.Warn().Int64("trade_id", p.TradeID).Float64("target", price).Msg("skipping target, bad price")
		}
	}
}

func (c *Controller) submitLeg(kind broker.OrderKind, level float64, submit func() (broker.OrderRef, error)) broker.OrderRef {
	ref, err := submit()
	if err != nil {
		c.log.Warn().Err(err).Stringer("kind", kind).Float64("level", level).Msg("protective order rejected")
		if c.obs != nil {
			c.obs.Rejected(c.instrument, kind)
		}
		return 0
	}
	c.log.Debug().Stringer("kind", kind).Float64("level", level).Int64("ref", int64(ref)).Msg("protective order armed")
	return ref
}

// OnTradeClosed implements broker.Listener.
func (c *Controller) OnTradeClosed(ev broker.TradeClosed) {
	if c.pos == nil {
		c.log.Warn().Str("broker_id", ev.BrokerID).Msg("trade closed without an open position")
		return
	}
	p := c.pos

	price, exit, known := c.resolver.Resolve(p.EntryPrice, p.SignedSize(), ev.PnLGross)
	if !known && c.pendingExit != 0 {
		exit = c.pendingExit
	}
	if !known {
		c.log.Debug().Int64("trade_id", p.TradeID).Float64("price", price).Msg("exit fill not seen, price derived from pnl")
	}

	when := ev.Time
	if when.IsZero() {
		when = c.bar.Time
	}

	for _, ref := range p.Protective.Clear() {
		c.cancel(ref)
	}

	if c.ledger != nil {
		c.ledger.OnClose(journal.CloseEvent{
			TradeID:    p.TradeID,
			Instrument: c.instrument,
			ExitPrice:  price,
			ExitTime:   when,
			Size:       p.SignedSize(),
			PnLGross:   ev.PnLGross,
			PnLNet:     ev.PnLNet,
			Exit:       exit,
		})
	}
	if c.obs != nil {
		c.obs.Exited(c.instrument, exit, ev.PnLNet)
	}

	c.log.Info().
		Int64("trade_id", p.TradeID).
		Stringer("exit", exit).
		Float64("price", price).
		Float64("pnl_net", ev.PnLNet).
		Msg("position closed")

	c.lastExitBar = c.exitBar(when)
	c.hasExited = true
	c.pos = nil
	c.closeRef = 0
	c.pendingExit = 0
	c.state = Flat
	c.resolver.Reset()
}

// exitBar returns the index of the bar the exit happened on. Protective
// fills arrive before OnBar has seen their bar.
func (c *Controller) exitBar(when time.Time) int {
	if when.After(c.bar.Time) {
		return c.barIndex + 1
	}
	return c.barIndex
}

var _ broker.Listener = (*Controller)(nil)
