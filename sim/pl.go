package sim

import "math"

// GrossPL is the profit of closing size (signed) at exit after entering at entry.
func GrossPL(size, entry, exit float64) float64 {
	return size * (exit - entry)
}

// Commission charges rate on the notional of both legs of a round trip.
func Commission(rate, size, entry, exit float64) float64 {
	return rate * math.Abs(size) * (entry + exit)
}

// MarginRequired is the cash needed to carry size at price with leverage.
func MarginRequired(size, price, leverage float64) float64 {
	if leverage <= 0 {
		leverage = 1
	}
	return math.Abs(size) * price / leverage
}
