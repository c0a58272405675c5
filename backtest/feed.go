package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/trendtrader/market"
)

// BarFeed yields bars one at a time. Implementations should be
// deterministic and return (ok=false, err=nil) at EOF.
type BarFeed interface {
	Next() (bar market.Bar, ok bool, err error)
	Close() error
}

// fixed leading columns before the trend averages
const barColumns = 7

// CSVBarFeed reads bar rows with precomputed indicator columns:
//
//	time,open,high,low,close,volatility,strength,avg1[,avg2...]
//
// where time is RFC3339 or RFC3339Nano and the averages are ordered fastest
// first.
//
// It optionally filters bars to [From, To) if provided.
// Header row ("time,...") is allowed.
// Empty rows are skipped.
type CSVBarFeed struct {
	c          io.Closer
	r          *csv.Reader
	instrument string
	from       time.Time
	to         time.Time

	ohlc     bool
	sawFirst bool
}

func NewCSVBarFeed(path, instrument string, from, to time.Time) (*CSVBarFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	feed := NewCSVBarReader(f, instrument, from, to)
	feed.c = f
	return feed, nil
}

// NewCSVBarReader reads bars from r. Close does not close r.
func NewCSVBarReader(r io.Reader, instrument string, from, to time.Time) *CSVBarFeed {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	return &CSVBarFeed{r: cr, instrument: instrument, from: from, to: to}
}

// NewCSVCandleFeed reads raw candles, time,open,high,low,close[,...], with
// no indicator columns. Wrap it in an IndicatorFeed before replaying.
func NewCSVCandleFeed(path, instrument string, from, to time.Time) (*CSVBarFeed, error) {
	feed, err := NewCSVBarFeed(path, instrument, from, to)
	if err != nil {
		return nil, err
	}
	feed.ohlc = true
	return feed, nil
}

// NewCSVCandleReader is NewCSVCandleFeed over r.
func NewCSVCandleReader(r io.Reader, instrument string, from, to time.Time) *CSVBarFeed {
	feed := NewCSVBarReader(r, instrument, from, to)
	feed.ohlc = true
	return feed
}

func (f *CSVBarFeed) Close() error {
	if f.c != nil {
		return f.c.Close()
	}
	return nil
}

func (f *CSVBarFeed) Next() (market.Bar, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return market.Bar{}, false, nil
		}
		if err != nil {
			return market.Bar{}, false, err
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		// Allow a single header row
		if !f.sawFirst {
			f.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		parse := parseBarRow
		if f.ohlc {
			parse = parseCandleRow
		}
		bar, err := parse(row)
		if err != nil {
			line, _ := f.r.FieldPos(0)
			return market.Bar{}, false, fmt.Errorf("%s line %d: %w", f.instrument, line, err)
		}
		if !inRange(bar.Time, f.from, f.to) {
			continue
		}
		bar.Instrument = f.instrument
		return bar, true, nil
	}
}

func parseBarRow(row []string) (market.Bar, error) {
	if len(row) < barColumns+1 {
		return market.Bar{}, fmt.Errorf("want at least %d columns, got %d", barColumns+1, len(row))
	}

	t, vals, err := parseRow(row)
	if err != nil {
		return market.Bar{}, err
	}

	bar := market.Bar{
		Time:       t,
		Open:       vals[0],
		High:       vals[1],
		Low:        vals[2],
		Close:      vals[3],
		Volatility: vals[4],
		Strength:   vals[5],
		Trend:      vals[barColumns-1:],
	}
	if err := bar.Validate(); err != nil {
		return market.Bar{}, err
	}
	return bar, nil
}

func parseCandleRow(row []string) (market.Bar, error) {
	if len(row) < 5 {
		return market.Bar{}, fmt.Errorf("want at least 5 columns, got %d", len(row))
	}

	t, vals, err := parseRow(row[:5])
	if err != nil {
		return market.Bar{}, err
	}

	bar := market.Bar{Time: t, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3]}
	if err := bar.Validate(); err != nil {
		return market.Bar{}, err
	}
	return bar, nil
}

// parseRow reads the leading time column and every following number.
func parseRow(row []string) (time.Time, []float64, error) {
	ts := strings.TrimSpace(row[0])
	// Accept RFC3339 or RFC3339Nano.
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t2, err2 := time.Parse(time.RFC3339Nano, ts)
		if err2 != nil {
			return time.Time{}, nil, fmt.Errorf("bad time %q: %w", ts, err)
		}
		t = t2
	}

	vals := make([]float64, len(row)-1)
	for i, s := range row[1:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return time.Time{}, nil, fmt.Errorf("bad value %q in column %d: %w", s, i+2, err)
		}
		vals[i] = v
	}
	return t, vals, nil
}

// WriteBarsCSV drains feed into w in the format CSVBarFeed reads, with a
// header naming each average. It returns the number of bars written.
func WriteBarsCSV(w io.Writer, feed BarFeed, averages []int) (int, error) {
	cw := csv.NewWriter(w)

	header := []string{"time", "open", "high", "low", "close", "volatility", "strength"}
	for _, p := range averages {
		header = append(header, "avg"+strconv.Itoa(p))
	}
	if err := cw.Write(header); err != nil {
		return 0, err
	}

	n := 0
	for {
		bar, ok, err := feed.Next()
		if err != nil {
			return n, err
		}
		if !ok {
			break
		}
		row := []string{
			bar.Time.UTC().Format(time.RFC3339Nano),
			num(bar.Open), num(bar.High), num(bar.Low), num(bar.Close),
			num(bar.Volatility), num(bar.Strength),
		}
		for _, v := range bar.Trend {
			row = append(row, num(v))
		}
		if err := cw.Write(row); err != nil {
			return n, err
		}
		n++
	}

	cw.Flush()
	return n, cw.Error()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

// SliceFeed replays bars held in memory.
type SliceFeed struct {
	bars []market.Bar
	i    int
}

func NewSliceFeed(bars []market.Bar) *SliceFeed {
	return &SliceFeed{bars: bars}
}

func (s *SliceFeed) Next() (market.Bar, bool, error) {
	if s.i >= len(s.bars) {
		return market.Bar{}, false, nil
	}
	b := s.bars[s.i]
	s.i++
	return b, true, nil
}

func (s *SliceFeed) Close() error { return nil }
