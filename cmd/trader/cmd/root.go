package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	logLevel string
	log      = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "An intraday trend-following trading simulator",
	Long: `Trader replays bar data with precomputed trend, volatility and strength
indicators through a position controller and a simulated broker.

It provides tools for:
  - Backtesting the trend strategy on one or many instruments
  - Generating and validating strategy configuration
  - Querying the SQLite trade journal
  - Exporting run metrics in the Prometheus text format

Complete documentation is available at https://github.com/rustyeddy/trendtrader`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogger,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error, disabled)")
}

func setupLogger(cmd *cobra.Command, args []string) error {
	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log = newLogger(lvl)
	return nil
}

func newLogger(lvl zerolog.Level) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
