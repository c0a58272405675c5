package market

import (
	"fmt"
	"time"
)

// Bar is one closed OHLC bar plus the indicator readings the feed computed
// for it. Trend holds the trend-following averages ordered fastest first.
type Bar struct {
	Instrument string
	time.Time

	Open  float64
	High  float64
	Low   float64
	Close float64

	Trend      []float64
	Volatility float64
	Strength   float64
}

// Fast returns the fastest trend average, or 0 when the bar carries none.
func (b Bar) Fast() float64 {
	if len(b.Trend) == 0 {
		return 0
	}
	return b.Trend[0]
}

// Validate checks the OHLC values are internally consistent.
func (b Bar) Validate() error {
	if b.Time.IsZero() {
		return fmt.Errorf("bar: missing time")
	}
	if b.High < b.Low {
		return fmt.Errorf("bar %s: high %.5f below low %.5f", b.Time.Format(time.RFC3339), b.High, b.Low)
	}
	if b.Open > b.High || b.Open < b.Low || b.Close > b.High || b.Close < b.Low {
		return fmt.Errorf("bar %s: open/close outside high/low range", b.Time.Format(time.RFC3339))
	}
	return nil
}
