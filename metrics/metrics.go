// Package metrics exposes run counters in the Prometheus format:
//
//   - trendtrader_entries_total{instrument,side}      positions opened
//   - trendtrader_exits_total{instrument,exit_type}   positions closed, by cause
//   - trendtrader_trades_total{instrument,result}     closed trades by win|loss
//   - trendtrader_rejections_total{instrument,kind}   orders the gateway refused
//   - trendtrader_open_positions{instrument}          positions currently open
//   - trendtrader_realized_pnl{instrument}            sum of net P&L of closed trades
//
// Each Metrics owns its registry so concurrent runs do not collide.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rustyeddy/trendtrader/broker"
	"github.com/rustyeddy/trendtrader/journal"
	"github.com/rustyeddy/trendtrader/market"
)

type Metrics struct {
	reg *prometheus.Registry

	entries    *prometheus.CounterVec
	exits      *prometheus.CounterVec
	trades     *prometheus.CounterVec
	rejections *prometheus.CounterVec
	open       *prometheus.GaugeVec
	pnl        *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),

		entries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendtrader_entries_total",
				Help: "Positions opened",
			},
			[]string{"instrument", "side"},
		),
		exits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendtrader_exits_total",
				Help: "Positions closed, split by exit type",
			},
			[]string{"instrument", "exit_type"},
		),
		trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendtrader_trades_total",
				Help: "Closed trades by result (win|loss)",
			},
			[]string{"instrument", "result"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendtrader_rejections_total",
				Help: "Orders refused by the gateway, split by order kind",
			},
			[]string{"instrument", "kind"},
		),
		open: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trendtrader_open_positions",
				Help: "Positions currently open",
			},
			[]string{"instrument"},
		),
		pnl: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trendtrader_realized_pnl",
				Help: "Net P&L of closed trades",
			},
			[]string{"instrument"},
		),
	}

	m.reg.MustRegister(m.entries, m.exits, m.trades, m.rejections, m.open, m.pnl)
	return m
}

// Registry returns the registry holding every collector of m.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// WriteTextfile writes the current values to path in the text exposition
// format, for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}

func (m *Metrics) Entered(instrument string, side market.Side) {
	m.entries.WithLabelValues(instrument, side.String()).Inc()
	m.open.WithLabelValues(instrument).Inc()
}

func (m *Metrics) Exited(instrument string, exit journal.ExitType, pnlNet float64) {
	m.exits.WithLabelValues(instrument, exit.String()).Inc()
	m.open.WithLabelValues(instrument).Dec()
	m.pnl.WithLabelValues(instrument).Add(pnlNet)

	result := "loss"
	if pnlNet > 0 {
		result = "win"
	}
	m.trades.WithLabelValues(instrument, result).Inc()
}

func (m *Metrics) Rejected(instrument string, kind broker.OrderKind) {
	m.rejections.WithLabelValues(instrument, kind.String()).Inc()
}
