package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/trendtrader/journal"
)

// Result is a summary of a backtest run.
type Result struct {
	Instrument string
	Records    []journal.TradeRecord

	Bars   int
	Trades int // closed
	Open   int
	Wins   int
	Losses int
	ByExit map[journal.ExitType]int

	GrossPnL   float64
	NetPnL     float64
	Unrealized float64

	StartCash float64
	EndCash   float64

	Start time.Time
	End   time.Time
}

// WinRate is wins over closed trades, in percent.
func (r Result) WinRate() float64 {
	if r.Trades == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Trades) * 100
}

// Summarize counts records by outcome. Open records only contribute to
// Open and Unrealized.
func Summarize(instrument string, recs []journal.TradeRecord) Result {
	res := Result{
		Instrument: instrument,
		Records:    recs,
		ByExit:     make(map[journal.ExitType]int),
	}
	for _, tr := range recs {
		if tr.IsOpen() {
			res.Open++
			res.Unrealized += tr.PnLNet
			continue
		}
		res.Trades++
		res.ByExit[tr.Exit]++
		res.GrossPnL += tr.PnLGross
		res.NetPnL += tr.PnLNet
		if tr.PnLNet > 0 {
			res.Wins++
		} else if tr.PnLNet < 0 {
			res.Losses++
		}
	}
	return res
}

// Merge combines per-instrument results, keeping the given order of
// records.
func Merge(results []Result) Result {
	total := Result{Instrument: "ALL", ByExit: make(map[journal.ExitType]int)}
	for _, r := range results {
		total.Records = append(total.Records, r.Records...)
		total.Bars += r.Bars
		total.Trades += r.Trades
		total.Open += r.Open
		total.Wins += r.Wins
		total.Losses += r.Losses
		for k, n := range r.ByExit {
			total.ByExit[k] += n
		}
		total.GrossPnL += r.GrossPnL
		total.NetPnL += r.NetPnL
		total.Unrealized += r.Unrealized
		total.StartCash += r.StartCash
		total.EndCash += r.EndCash

		if !r.Start.IsZero() && (total.Start.IsZero() || r.Start.Before(total.Start)) {
			total.Start = r.Start
		}
		if r.End.After(total.End) {
			total.End = r.End
		}
	}
	return total
}

var exitOrder = []journal.ExitType{
	journal.ExitSignal,
	journal.ExitStopLoss,
	journal.ExitTrail,
	journal.ExitTarget,
}

func PrintResult(w io.Writer, r Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, " Backtest Result: %s\n", r.Instrument)
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", fmtTime(r.Start))
	fmt.Fprintf(w, "End:           %s\n", fmtTime(r.End))
	fmt.Fprintf(w, "Bars:          %d\n", r.Bars)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", r.Trades)
	fmt.Fprintf(w, "Wins:          %d\n", r.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", r.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", r.WinRate())
	fmt.Fprintf(w, "Open:          %d\n", r.Open)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exits")
	fmt.Fprintln(w, "--------------------------------------------------")
	for _, e := range exitOrder {
		fmt.Fprintf(w, "%-14s %d\n", e.String()+":", r.ByExit[e])
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Cash:    %.2f\n", r.StartCash)
	fmt.Fprintf(w, "End Cash:      %.2f\n", r.EndCash)
	fmt.Fprintf(w, "Gross P/L:     %.2f\n", r.GrossPnL)
	fmt.Fprintf(w, "Net P/L:       %.2f\n", r.NetPnL)
	if r.Open > 0 {
		fmt.Fprintf(w, "Unrealized:    %.2f\n", r.Unrealized)
	}

	fmt.Fprintln(w)
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
