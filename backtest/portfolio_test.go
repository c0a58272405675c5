package backtest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/trendtrader/journal"
	"github.com/rustyeddy/trendtrader/market"
	"github.com/rustyeddy/trendtrader/metrics"
)

func withInstrument(inst string, bars []market.Bar) []market.Bar {
	out := make([]market.Bar, len(bars))
	for i, b := range bars {
		b.Instrument = inst
		out[i] = b
	}
	return out
}

func TestPortfolioIsolatesInstruments(t *testing.T) {
	t.Parallel()

	data := map[string][]market.Bar{
		// signal exit
		"RELIANCE": {
			mkBar(0, 108, 111, 107, 110, bull...),
			mkBar(1, 111, 112, 107, 108, bear...),
			mkBar(2, 108, 109, 107, 108, neutral...),
		},
		// stays open
		"TCS": {
			mkBar(0, 108, 111, 107, 110, bull...),
			mkBar(1, 110, 113, 109, 112, bull...),
		},
		// never enters
		"INFY": {
			mkBar(0, 100, 101, 99, 100, neutral...),
		},
	}

	m := metrics.New()
	p := &Portfolio{
		Config:      testConfig(),
		Instruments: []string{"RELIANCE", "TCS", "INFY"},
		Open: func(inst string) (BarFeed, error) {
			return NewSliceFeed(withInstrument(inst, data[inst])), nil
		},
		Options: []Option{WithObserver(m)},
	}

	results, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	rel, tcs, infy := results[0], results[1], results[2]
	assert.Equal(t, "RELIANCE", rel.Instrument)
	assert.Equal(t, "TCS", tcs.Instrument)
	assert.Equal(t, "INFY", infy.Instrument)

	require.Len(t, rel.Records, 1)
	assert.Equal(t, journal.ExitSignal, rel.Records[0].Exit)
	assert.Equal(t, int64(1), rel.Records[0].TradeID)

	require.Len(t, tcs.Records, 1)
	assert.True(t, tcs.Records[0].IsOpen())
	assert.Equal(t, int64(1), tcs.Records[0].TradeID, "trade ids are per instrument")

	assert.Empty(t, infy.Records)
	assert.Equal(t, 1, infy.Bars)

	total := Merge(results)
	assert.Equal(t, 1, total.Trades)
	assert.Equal(t, 1, total.Open)
	assert.Len(t, total.Records, 2)
	assert.Equal(t, 6, total.Bars)
	assert.InDelta(t, 3*testConfig().Simulation.Cash, total.StartCash, 1e-6)
}

func TestPortfolioOpenError(t *testing.T) {
	t.Parallel()

	boom := errors.New("no data")
	p := &Portfolio{
		Config:      testConfig(),
		Instruments: []string{"RELIANCE", "TCS"},
		Open: func(inst string) (BarFeed, error) {
			if inst == "TCS" {
				return nil, boom
			}
			return NewSliceFeed(nil), nil
		},
	}

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "TCS")
}

func TestPortfolioFeedError(t *testing.T) {
	t.Parallel()

	p := &Portfolio{
		Config:      testConfig(),
		Instruments: []string{"RELIANCE"},
		Open: func(string) (BarFeed, error) {
			return &errorBarFeed{}, nil
		},
	}

	_, err := p.Run(context.Background())
	assert.Error(t, err)
}

func TestPortfolioValidation(t *testing.T) {
	t.Parallel()

	open := func(string) (BarFeed, error) { return NewSliceFeed(nil), nil }

	tests := []struct {
		name string
		p    *Portfolio
	}{
		{"missing open", &Portfolio{Config: testConfig(), Instruments: []string{"A"}}},
		{"duplicate instrument", &Portfolio{Config: testConfig(), Instruments: []string{"A", "A"}, Open: open}},
		{"empty instrument", &Portfolio{Config: testConfig(), Instruments: []string{""}, Open: open}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.p.Run(context.Background())
			assert.Error(t, err)
		})
	}
}
