package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/trendtrader/broker"
	"github.com/rustyeddy/trendtrader/controller"
	"github.com/rustyeddy/trendtrader/journal"
	"github.com/rustyeddy/trendtrader/market"
)

var _ controller.Observer = (*Metrics)(nil)

func TestCounters(t *testing.T) {
	m := New()

	m.Entered("RELIANCE", market.Long)
	m.Exited("RELIANCE", journal.ExitStopLoss, -12.5)
	m.Entered("RELIANCE", market.Short)
	m.Exited("RELIANCE", journal.ExitTrail, 40)
	m.Entered("RELIANCE", market.Long)
	m.Rejected("RELIANCE", broker.FixedStop)
	m.Rejected("TCS", broker.Market)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.entries.WithLabelValues("RELIANCE", "LONG")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.entries.WithLabelValues("RELIANCE", "SHORT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exits.WithLabelValues("RELIANCE", "STOPLOSS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exits.WithLabelValues("RELIANCE", "TRAIL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.trades.WithLabelValues("RELIANCE", "win")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.trades.WithLabelValues("RELIANCE", "loss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.open.WithLabelValues("RELIANCE")))
	assert.InDelta(t, 27.5, testutil.ToFloat64(m.pnl.WithLabelValues("RELIANCE")), 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues("RELIANCE", "STOP")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues("TCS", "MARKET")))
}

func TestSeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.Entered("RELIANCE", market.Long)

	assert.Equal(t, 0.0, testutil.ToFloat64(b.entries.WithLabelValues("RELIANCE", "LONG")))
	n, err := testutil.GatherAndCount(a.Registry(), "trendtrader_entries_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Entered("RELIANCE", market.Long)

	path := filepath.Join(t.TempDir(), "trendtrader.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `trendtrader_entries_total{instrument="RELIANCE",side="LONG"} 1`)
}
