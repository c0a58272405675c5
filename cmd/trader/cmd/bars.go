package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/trendtrader/backtest"
)

var barsCmd = &cobra.Command{
	Use:   "bars",
	Short: "Compute indicator columns for raw candle data",
	Long: `Bars reads raw candles (time,open,high,low,close[,...]) and writes the bar
CSV that backtest replays: EMA per configured average, ATR volatility and
ADX strength. Warmup bars are dropped.

Example:
  trader bars --input data/reliance_1m.csv --output data/reliance.csv --config trend.yaml`,
	RunE: runBars,
}

var (
	barsInput  string
	barsOutput string
)

func init() {
	rootCmd.AddCommand(barsCmd)

	barsCmd.Flags().StringVarP(&barsInput, "input", "i", "", "raw candle CSV (required)")
	barsCmd.Flags().StringVarP(&barsOutput, "output", "o", "", "bar CSV to write (required)")
	barsCmd.Flags().StringVarP(&btConfigPath, "config", "c", "", "config file (YAML or JSON); defaults when empty")
	barsCmd.MarkFlagRequired("input")
	barsCmd.MarkFlagRequired("output")
}

func runBars(cmd *cobra.Command, args []string) error {
	cfg, err := loadBacktestConfig(cmd)
	if err != nil {
		return err
	}

	candles, err := backtest.NewCSVCandleFeed(barsInput, "", time.Time{}, time.Time{})
	if err != nil {
		return fmt.Errorf("open candles: %w", err)
	}
	feed := backtest.NewIndicatorFeed(candles, cfg.Strategy.Averages, cfg.Indicators)
	defer feed.Close()

	out, err := os.Create(barsOutput)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	n, err := backtest.WriteBarsCSV(out, feed, cfg.Strategy.Averages)
	if err != nil {
		return fmt.Errorf("write bars: %w", err)
	}

	log.Debug().Int("warmup", feed.Skipped()).Msg("dropped warmup bars")
	fmt.Printf("✓ Wrote %d bars to %s (%d warmup bars dropped)\n", n, barsOutput, feed.Skipped())
	return out.Close()
}
