package backtest

import (
	"github.com/rustyeddy/trendtrader/config"
	"github.com/rustyeddy/trendtrader/indicators"
	"github.com/rustyeddy/trendtrader/market"
)

// IndicatorFeed computes the trend averages (EMA per period), volatility
// (ATR) and strength (ADX) of bars read from a raw OHLC source. Bars are
// held back until every indicator has warmed up.
type IndicatorFeed struct {
	src      BarFeed
	trend    []*indicators.ExponentialMA
	vol      *indicators.ATR
	strength *indicators.ADX
	skipped  int
}

func NewIndicatorFeed(src BarFeed, averages []int, cfg config.IndicatorConfig) *IndicatorFeed {
	f := &IndicatorFeed{
		src:      src,
		trend:    make([]*indicators.ExponentialMA, len(averages)),
		vol:      indicators.NewATR(cfg.VolatilityPeriod),
		strength: indicators.NewADX(cfg.StrengthPeriod),
	}
	for i, p := range averages {
		f.trend[i] = indicators.NewEMA(p)
	}
	return f
}

func (f *IndicatorFeed) Next() (market.Bar, bool, error) {
	for {
		bar, ok, err := f.src.Next()
		if err != nil || !ok {
			return market.Bar{}, false, err
		}

		for _, ind := range f.all() {
			ind.Update(bar)
		}
		if !f.ready() {
			f.skipped++
			continue
		}

		bar.Trend = make([]float64, len(f.trend))
		for i, e := range f.trend {
			bar.Trend[i] = e.Value()
		}
		bar.Volatility = f.vol.Value()
		bar.Strength = f.strength.Value()
		return bar, true, nil
	}
}

// Skipped is the number of warmup bars consumed without being emitted.
func (f *IndicatorFeed) Skipped() int { return f.skipped }

func (f *IndicatorFeed) Close() error { return f.src.Close() }

func (f *IndicatorFeed) all() []indicators.Indicator {
	out := make([]indicators.Indicator, 0, len(f.trend)+2)
	for _, e := range f.trend {
		out = append(out, e)
	}
	return append(out, f.vol, f.strength)
}

func (f *IndicatorFeed) ready() bool {
	for _, ind := range f.all() {
		if !ind.Ready() {
			return false
		}
	}
	return true
}
