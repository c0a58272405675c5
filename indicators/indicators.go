// Package indicators provides the streaming indicators that turn raw OHLC
// bars into the trend, volatility and strength readings a bar carries.
package indicators

import (
	"math"

	"github.com/rustyeddy/trendtrader/market"
)

// Indicator computes a single streaming value from bars.
// It is deterministic and safe to use in replay and backtests.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)" or "ATR(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* bar and updates internal state.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current indicator value, or 0 before Ready().
	Value() float64
}

// trueRange is the largest of the bar's range and its gaps from the
// previous close.
func trueRange(current, previous market.Bar) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)

	return max(highLow, highClose, lowClose)
}
