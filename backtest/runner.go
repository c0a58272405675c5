// Package backtest replays bar data through the simulated gateway, the
// position controller and the trade ledger, one instrument per Runner.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/trendtrader/config"
	"github.com/rustyeddy/trendtrader/controller"
	"github.com/rustyeddy/trendtrader/journal"
	"github.com/rustyeddy/trendtrader/market"
	"github.com/rustyeddy/trendtrader/sim"
)

type Option func(*Runner)

func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithJournal forwards finalized trade records to j.
func WithJournal(j journal.Journal) Option {
	return func(r *Runner) { r.sink = j }
}

// WithObserver reports entries, exits and rejections to o. An observer
// shared by a Portfolio must be safe for concurrent use.
func WithObserver(o controller.Observer) Option {
	return func(r *Runner) { r.obs = o }
}

// WithMeta replaces the strategy parameters stamped on every record.
func WithMeta(meta map[string]string) Option {
	return func(r *Runner) { r.meta = meta }
}

// Runner drives one instrument: a feed, a simulated engine, a controller
// and a ledger, stepped bar by bar.
type Runner struct {
	Instrument string
	Feed       BarFeed
	Engine     *sim.Engine
	Controller *controller.Controller
	Ledger     *journal.Ledger

	log  zerolog.Logger
	sink journal.Journal
	obs  controller.Observer
	meta map[string]string

	startCash  float64
	bars       int
	start, end time.Time
}

// NewRunner validates cfg and wires a fresh engine, controller and ledger
// for instrument.
func NewRunner(instrument string, cfg config.Config, feed BarFeed, opts ...Option) (*Runner, error) {
	if feed == nil {
		return nil, fmt.Errorf("backtest %s: feed is required", instrument)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		Instrument: instrument,
		Feed:       feed,
		log:        zerolog.Nop(),
		startCash:  cfg.Simulation.Cash,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.meta == nil {
		r.meta = cfg.Strategy.Meta()
	}

	lopts := []journal.Option{journal.WithLogger(r.log), journal.WithMeta(r.meta)}
	if r.sink != nil {
		lopts = append(lopts, journal.WithJournal(r.sink))
	}
	r.Ledger = journal.NewLedger(lopts...)
	r.Engine = sim.NewEngine(instrument, cfg.Simulation, sim.WithLogger(r.log))

	copts := []controller.Option{controller.WithLogger(r.log)}
	if r.obs != nil {
		copts = append(copts, controller.WithObserver(r.obs))
	}
	ctl, err := controller.New(instrument, cfg.Strategy, r.Engine, r.Ledger, copts...)
	if err != nil {
		return nil, err
	}
	r.Engine.SetListener(ctl)
	r.Controller = ctl

	return r, nil
}

// Step processes one bar. Every callback caused by the bar completes
// before Step returns:
//  1. ledger excursion and mark price
//  2. engine checks resting stops and targets
//  3. controller evaluates entry and exit signals
//  4. engine fills market orders at the close
func (r *Runner) Step(bar market.Bar) {
	if bar.Instrument == "" {
		bar.Instrument = r.Instrument
	}
	if bar.Instrument != r.Instrument {
		r.log.Warn().Str("bar_instrument", bar.Instrument).Msg("skipping bar for another instrument")
		return
	}

	r.bars++
	if r.start.IsZero() || bar.Time.Before(r.start) {
		r.start = bar.Time
	}
	if r.end.IsZero() || bar.Time.After(r.end) {
		r.end = bar.Time
	}

	r.Ledger.OnBar(bar)
	r.Engine.OnBar(bar)
	r.Controller.OnBar(bar)
	r.Engine.Settle()
}

// Run drains the feed, checking ctx between bars. Positions still open at
// the end are reported as open records.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	defer r.Feed.Close()

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		bar, ok, err := r.Feed.Next()
		if err != nil {
			return Result{}, fmt.Errorf("backtest %s: %w", r.Instrument, err)
		}
		if !ok {
			break
		}
		r.Step(bar)
	}

	if _, open := r.Controller.Position(); !open && r.Ledger.OpenCount() > 0 {
		r.log.Warn().Int("open", r.Ledger.OpenCount()).Msg("ledger holds open trades with no open position")
	}

	res := r.Result()
	r.log.Info().
		Int("bars", res.Bars).
		Int("trades", res.Trades).
		Int("open", res.Open).
		Float64("net_pnl", res.NetPnL).
		Msg("backtest finished")
	return res, nil
}

// Result summarizes the bars stepped so far.
func (r *Runner) Result() Result {
	res := Summarize(r.Instrument, r.Ledger.Query())
	res.Bars = r.bars
	res.Start = r.start
	res.End = r.end
	res.StartCash = r.startCash
	res.EndCash = r.Engine.Cash()
	return res
}
