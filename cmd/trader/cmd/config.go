package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/trendtrader/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage strategy and simulation configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  trader config init --output trend.yaml
  trader config validate --file trend.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings. The format
follows the file extension (.yaml, .yml or .json).

Example:
  trader config init --output trend.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  trader config validate --file trend.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "trend.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  trader backtest --config %s --bars INSTRUMENT=bars.csv\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	s := cfg.Strategy
	fmt.Printf("✓ Configuration valid: %s\n", configValidatePath)
	fmt.Printf("  Averages: %v (noise %.2f, strength > %.2f)\n", s.Averages, s.NoiseMultiple, s.StrengthThreshold)
	fmt.Printf("  Exits: signal=%t stop=%s trail=%s target=%s\n",
		s.SignalExit, levelString(s.Stop), trailString(s.Trailing), levelString(s.Target))
	fmt.Printf("  Size: %g  Cooldown: %d bars\n", s.Size, s.CooldownBars)
	fmt.Printf("  Cash: %.2f  Commission: %g  Leverage: %g\n", cfg.Simulation.Cash, cfg.Simulation.Commission, cfg.Simulation.Leverage)
	fmt.Printf("  Journal: %s\n", cfg.Journal.Type)
	return nil
}

func levelString(l config.LevelConfig) string {
	if !l.Enabled {
		return "off"
	}
	return fmt.Sprintf("%s:%g", l.Mode, l.Value)
}

func trailString(t config.TrailingConfig) string {
	if !t.Enabled {
		return "off"
	}
	return fmt.Sprintf("%gx", t.Multiple)
}
