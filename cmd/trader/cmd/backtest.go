package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/trendtrader/backtest"
	"github.com/rustyeddy/trendtrader/config"
	"github.com/rustyeddy/trendtrader/internal/id"
	"github.com/rustyeddy/trendtrader/journal"
	"github.com/rustyeddy/trendtrader/metrics"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay bar data through the trend strategy",
	Long: `Backtest replays bar CSV files through the position controller and the
simulated broker, one isolated run per instrument.

Bar files carry precomputed indicator columns:
  time,open,high,low,close,volatility,strength,avg1,...,avgN
with the averages ordered fastest first, matching strategy.averages.

Example:
  trader backtest --config trend.yaml --bars RELIANCE=data/reliance.csv --bars TCS=data/tcs.csv --db ./trendtrader.sqlite`,
	RunE: runBacktest,
}

var (
	btBars        []string
	btInstrument  string
	btConfigPath  string
	btDBPath      string
	btCSVPath     string
	btMetricsFile string
	btFrom        string
	btTo          string
	btSize        float64
	btCooldown    int
	btCash        float64
	btOrg         bool
	btOHLC        bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringSliceVarP(&btBars, "bars", "b", nil, "bar CSV as INSTRUMENT=PATH, or PATH with --instrument (repeatable, required)")
	backtestCmd.Flags().StringVarP(&btInstrument, "instrument", "i", "", "instrument for a --bars entry without one")
	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "c", "", "config file (YAML or JSON); defaults when empty")
	backtestCmd.Flags().StringVarP(&btDBPath, "db", "d", "", "record trades to this SQLite journal (overrides config)")
	backtestCmd.Flags().StringVar(&btCSVPath, "csv", "", "record trades to this CSV file (overrides config)")
	backtestCmd.Flags().StringVar(&btMetricsFile, "metrics-file", "", "write run metrics in Prometheus text format")
	backtestCmd.Flags().StringVar(&btFrom, "from", "", "first bar time (RFC3339, inclusive)")
	backtestCmd.Flags().StringVar(&btTo, "to", "", "last bar time (RFC3339, exclusive)")
	backtestCmd.Flags().Float64Var(&btSize, "size", 0, "entry size (overrides config)")
	backtestCmd.Flags().IntVar(&btCooldown, "cooldown-bars", 0, "bars to wait after an exit (overrides config)")
	backtestCmd.Flags().Float64Var(&btCash, "cash", 0, "starting cash per instrument (overrides config)")
	backtestCmd.Flags().BoolVar(&btOrg, "org", false, "print every trade as an Org-mode block")
	backtestCmd.Flags().BoolVar(&btOHLC, "ohlc", false, "bar files are raw candles (time,open,high,low,close); compute indicators on the fly")

	backtestCmd.MarkFlagRequired("bars")
}

// barSpec is one instrument and its bar file.
type barSpec struct {
	Instrument string
	Path       string
}

func parseBarSpecs(specs []string, instrument string) ([]barSpec, error) {
	out := make([]barSpec, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		inst, path, ok := strings.Cut(s, "=")
		if !ok {
			inst, path = instrument, s
		}
		inst, path = strings.TrimSpace(inst), strings.TrimSpace(path)
		if inst == "" {
			return nil, fmt.Errorf("bars %q: no instrument (use INSTRUMENT=PATH or --instrument)", s)
		}
		if path == "" {
			return nil, fmt.Errorf("bars %q: empty path", s)
		}
		if seen[inst] {
			return nil, fmt.Errorf("bars: instrument %s given twice", inst)
		}
		seen[inst] = true
		out = append(out, barSpec{Instrument: inst, Path: path})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("bars: at least one file is required")
	}
	return out, nil
}

func parseBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Parse(time.DateOnly, s)
	}
	return t, nil
}

// loadBacktestConfig reads the config file, if any, and applies flag
// overrides.
func loadBacktestConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if btConfigPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(btConfigPath); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("size") {
		cfg.Strategy.Size = btSize
	}
	if flags.Changed("cooldown-bars") {
		cfg.Strategy.CooldownBars = btCooldown
	}
	if flags.Changed("cash") {
		cfg.Simulation.Cash = btCash
	}
	switch {
	case btDBPath != "":
		cfg.Journal.Type = "sqlite"
		cfg.Journal.DBPath = btDBPath
	case btCSVPath != "":
		cfg.Journal.Type = "csv"
		cfg.Journal.TradesFile = btCSVPath
	}
	if !flags.Changed("log-level") && cfg.Log.Level != "" {
		if lvl, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
			log = log.Level(lvl)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSink opens the configured trade journal. The returned SQLite is nil
// unless the journal is a database.
func openSink(cfg *config.Config, runID string) (journal.Journal, *journal.SQLite, error) {
	switch cfg.Journal.Type {
	case "sqlite":
		db, err := journal.NewSQLite(cfg.Journal.DBPath, runID)
		if err != nil {
			return nil, nil, fmt.Errorf("open db: %w", err)
		}
		return db, db, nil
	case "csv":
		j, err := journal.NewCSV(cfg.Journal.TradesFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open trades csv: %w", err)
		}
		return j, nil, nil
	default:
		return nil, nil, nil
	}
}

func runBacktest(cmd *cobra.Command, args []string) error {
	specs, err := parseBarSpecs(btBars, btInstrument)
	if err != nil {
		return err
	}
	from, err := parseBound(btFrom)
	if err != nil {
		return fmt.Errorf("from: %w", err)
	}
	to, err := parseBound(btTo)
	if err != nil {
		return fmt.Errorf("to: %w", err)
	}
	cfg, err := loadBacktestConfig(cmd)
	if err != nil {
		return err
	}

	runID := id.New()
	runLog := log.With().Str("run_id", runID).Logger()

	sink, db, err := openSink(cfg, runID)
	if err != nil {
		return err
	}
	if sink != nil {
		defer sink.Close()
	}

	instruments := make([]string, len(specs))
	paths := make(map[string]string, len(specs))
	for i, s := range specs {
		instruments[i] = s.Instrument
		paths[s.Instrument] = s.Path
	}

	if db != nil {
		raw, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		if err := db.RecordRun(journal.Run{
			RunID:      runID,
			Instrument: strings.Join(instruments, ","),
			Config:     raw,
		}); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := metrics.New()
	opts := []backtest.Option{
		backtest.WithLogger(runLog),
		backtest.WithObserver(m),
	}
	open := func(inst string) (backtest.BarFeed, error) {
		if btOHLC {
			candles, err := backtest.NewCSVCandleFeed(paths[inst], inst, from, to)
			if err != nil {
				return nil, err
			}
			return backtest.NewIndicatorFeed(candles, cfg.Strategy.Averages, cfg.Indicators), nil
		}
		return backtest.NewCSVBarFeed(paths[inst], inst, from, to)
	}

	fmt.Printf("Running backtest %s\n", runID)
	for _, s := range specs {
		fmt.Printf("  %s: %s\n", s.Instrument, s.Path)
	}
	if cfg.Journal.Type != "none" {
		fmt.Printf("  Journal: %s\n", cfg.Journal.Type)
	}
	fmt.Println()

	var results []backtest.Result
	if len(specs) == 1 {
		// a single run writes through to the journal as trades close
		feed, err := open(instruments[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", instruments[0], err)
		}
		if sink != nil {
			opts = append(opts, backtest.WithJournal(sink))
		}
		r, err := backtest.NewRunner(instruments[0], *cfg, feed, opts...)
		if err != nil {
			feed.Close()
			return err
		}
		res, err := r.Run(ctx)
		if err != nil {
			return err
		}
		results = []backtest.Result{res}
	} else {
		p := &backtest.Portfolio{
			Config:      *cfg,
			Instruments: instruments,
			Open:        open,
			Options:     opts,
		}
		if results, err = p.Run(ctx); err != nil {
			return err
		}
		if sink != nil {
			if err := recordClosed(sink, results); err != nil {
				return err
			}
		}
	}

	for _, res := range results {
		backtest.PrintResult(os.Stdout, res)
		if btOrg && len(res.Records) > 0 {
			fmt.Println(journal.FormatTradesOrg(res.Records))
		}
	}
	if len(results) > 1 {
		backtest.PrintResult(os.Stdout, backtest.Merge(results))
	}

	if btMetricsFile != "" {
		if err := m.WriteTextfile(btMetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		fmt.Printf("Metrics: %s\n", btMetricsFile)
	}
	return nil
}

// recordClosed writes the finalized trades of every result to j in
// instrument order.
func recordClosed(j journal.Journal, results []backtest.Result) error {
	for _, res := range results {
		for _, rec := range res.Records {
			if rec.IsOpen() {
				continue
			}
			if err := j.RecordTrade(rec); err != nil {
				return fmt.Errorf("record trade %s/%d: %w", rec.Instrument, rec.TradeID, err)
			}
		}
	}
	return nil
}
