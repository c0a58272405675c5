package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatTradeOrg renders a TradeRecord as an Org-mode block. All structured
// facts go into the PROPERTIES drawer so they stay searchable.
func FormatTradeOrg(t TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s #%d %s [%s]\n", t.Instrument, t.TradeID, t.Side, t.Exit)
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %d\n", t.TradeID)
	fmt.Fprintf(&b, ":INSTRUMENT: %s\n", t.Instrument)
	fmt.Fprintf(&b, ":SIDE: %s\n", t.Side)
	fmt.Fprintf(&b, ":SIZE: %g\n", t.Size)
	fmt.Fprintf(&b, ":ENTRY_TIME: %s\n", orgTime(t.EntryTime))
	fmt.Fprintf(&b, ":EXIT_TIME: %s\n", orgTime(t.ExitTime))
	fmt.Fprintf(&b, ":ENTRY_PRICE: %s\n", orgPrice(t.EntryPrice))
	fmt.Fprintf(&b, ":EXIT_PRICE: %.5f\n", t.ExitPrice)
	fmt.Fprintf(&b, ":PNL_GROSS: %.2f\n", t.PnLGross)
	fmt.Fprintf(&b, ":PNL_NET: %.2f\n", t.PnLNet)
	fmt.Fprintf(&b, ":BARS: %d\n", t.Bars)
	fmt.Fprintf(&b, ":MAE: %.5f (%.4f%%)\n", t.MAEAbs, t.MAEPct*100)
	fmt.Fprintf(&b, ":MFE: %.5f (%.4f%%)\n", t.MFEAbs, t.MFEPct*100)
	fmt.Fprintf(&b, ":RETURN_PCT: %.4f\n", t.ReturnPct*100)
	fmt.Fprintf(&b, ":EXIT_TYPE: %s\n", t.Exit)
	b.WriteString(":END:\n")
	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func orgTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func orgPrice(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.5f", *p)
}
