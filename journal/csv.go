package journal

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

var csvHeader = []string{
	"trade_id", "instrument", "side", "size",
	"entry_time", "exit_time", "entry_price", "exit_price",
	"pnl_gross", "pnl_net", "bars",
	"volatility", "volatility_pct",
	"mae_abs", "mae_pct", "mfe_abs", "mfe_pct",
	"notional", "return_pct", "exit_type", "meta",
}

// CSVJournal writes one row per finalized trade.
type CSVJournal struct {
	w  *csv.Writer
	tf *os.File
}

func NewCSV(tradesPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}

	tw := csv.NewWriter(tf)
	if err := tw.Write(csvHeader); err != nil {
		tf.Close()
		return nil, err
	}
	tw.Flush()
	if err := tw.Error(); err != nil {
		tf.Close()
		return nil, err
	}

	return &CSVJournal{w: tw, tf: tf}, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	if err := j.w.Write(csvRow(t)); err != nil {
		return err
	}
	j.w.Flush()
	return j.w.Error()
}

func (j *CSVJournal) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		j.tf.Close()
		return err
	}
	return j.tf.Close()
}

// WriteCSV writes recs, header first, to w. Open records are included as
// they are, with exit_type OPEN.
func WriteCSV(w io.Writer, recs []TradeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write(csvRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(t TradeRecord) []string {
	return []string{
		strconv.FormatInt(t.TradeID, 10),
		t.Instrument,
		t.Side.String(),
		f(t.Size),
		ts(t.EntryTime),
		ts(t.ExitTime),
		fp(t.EntryPrice),
		f(t.ExitPrice),
		f(t.PnLGross),
		f(t.PnLNet),
		strconv.Itoa(t.Bars),
		fp(t.Volatility),
		fp(t.VolatilityPct),
		f(t.MAEAbs),
		f(t.MAEPct),
		f(t.MFEAbs),
		f(t.MFEPct),
		f(t.Notional),
		f(t.ReturnPct),
		t.Exit.String(),
		metaString(t.Meta),
	}
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

func fp(x *float64) string {
	if x == nil {
		return ""
	}
	return f(*x)
}

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// metaString renders meta as sorted k=v pairs separated by semicolons.
func metaString(meta map[string]string) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+meta[k])
	}
	return strings.Join(parts, ";")
}
