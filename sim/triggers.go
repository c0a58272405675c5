package sim

import (
	"math"

	"github.com/rustyeddy/trendtrader/broker"
	"github.com/rustyeddy/trendtrader/market"
)

// order is a resting or queued order inside the engine.
type order struct {
	ref  broker.OrderRef
	kind broker.OrderKind
	size float64

	// entry only
	side market.Side
	// close only
	close bool

	// fixed stop and target price
	price float64

	// trailing stop
	trail float64
	best  float64
}

// level returns the price at which a resting order triggers.
func (o *order) level(side market.Side) float64 {
	if o.kind == broker.TrailingStop {
		return o.best - side.Sign()*o.trail
	}
	return o.price
}

// stopSide reports whether the order closes at a loss relative to the move
// that triggers it.
func (o *order) stopSide() bool {
	return o.kind == broker.FixedStop || o.kind == broker.TrailingStop
}

// trigger reports whether bar reaches the order for a position on side and
// the price it fills at. A bar that opens beyond the level fills at the open.
func (o *order) trigger(side market.Side, bar market.Bar) (float64, bool) {
	lvl := o.level(side)

	if o.stopSide() {
		if side == market.Long {
			if bar.Low <= lvl {
				return math.Min(lvl, bar.Open), true
			}
			return 0, false
		}
		if bar.High >= lvl {
			return math.Max(lvl, bar.Open), true
		}
		return 0, false
	}

	if side == market.Long {
		if bar.High >= lvl {
			return math.Max(lvl, bar.Open), true
		}
		return 0, false
	}
	if bar.Low <= lvl {
		return math.Min(lvl, bar.Open), true
	}
	return 0, false
}

// ratchet moves a trailing stop's reference price to the best price of bar.
func (o *order) ratchet(side market.Side, bar market.Bar) {
	if o.kind != broker.TrailingStop {
		return
	}
	if side == market.Long {
		o.best = math.Max(o.best, bar.High)
	} else {
		o.best = math.Min(o.best, bar.Low)
	}
}

// nearer reports whether a would be reached before b as price moves against
// a position on side.
func nearer(side market.Side, a, b float64) bool {
	if side == market.Long {
		return a > b
	}
	return a < b
}
