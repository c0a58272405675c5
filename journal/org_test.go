package journal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	result := FormatTradeOrg(sampleRecord(42))

	assert.Contains(t, result, "** Trade: RELIANCE #42 LONG [TRAIL]")
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":TRADE_ID: 42")
	assert.Contains(t, result, ":ENTRY_PRICE: 2500.50000")
	assert.Contains(t, result, ":EXIT_PRICE: 2510.25000")
	assert.Contains(t, result, ":PNL_NET: 105.00")
	assert.Contains(t, result, ":ENTRY_TIME: 2024-01-02T03:04:05Z")
	assert.Contains(t, result, ":BARS: 15")
	assert.True(t, strings.HasSuffix(result, ":END:\n"))
}

func TestFormatTradeOrgDegraded(t *testing.T) {
	t.Parallel()

	result := FormatTradeOrg(TradeRecord{TradeID: 1, Instrument: "RELIANCE", Exit: ExitSignal})
	assert.Contains(t, result, ":ENTRY_PRICE: -")
	assert.Contains(t, result, ":ENTRY_TIME: -")
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	out := FormatTradesOrg([]TradeRecord{sampleRecord(1), sampleRecord(2)})
	assert.Equal(t, 2, strings.Count(out, ":PROPERTIES:"))
	assert.Contains(t, out, ":END:\n\n** Trade")
	assert.Empty(t, FormatTradesOrg(nil))
}
