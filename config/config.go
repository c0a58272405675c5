package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config represents the complete backtest configuration
type Config struct {
	Strategy   StrategyConfig   `json:"strategy" yaml:"strategy"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Indicators IndicatorConfig  `json:"indicators" yaml:"indicators"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Log        LogConfig        `json:"log" yaml:"log"`
}

// LevelMode selects how a stop or target distance is computed from the entry.
type LevelMode string

const (
	// ModePercent: distance is Value percent of the entry price.
	ModePercent LevelMode = "percent"
	// ModeVolatility: distance is Value times the volatility snapshot at entry.
	ModeVolatility LevelMode = "volatility"
	// ModeFixed: distance is Value in price units.
	ModeFixed LevelMode = "fixed"
)

func (m LevelMode) valid() bool {
	switch m {
	case ModePercent, ModeVolatility, ModeFixed:
		return true
	}
	return false
}

// LevelConfig describes a protective price level placed at a distance from the entry.
type LevelConfig struct {
	Enabled bool      `json:"enabled" yaml:"enabled"`
	Mode    LevelMode `json:"mode" yaml:"mode"`
	Value   float64   `json:"value" yaml:"value"`
}

// Distance returns the offset from entry for this level.
func (l LevelConfig) Distance(entry, volatility float64) float64 {
	switch l.Mode {
	case ModePercent:
		return entry * l.Value / 100
	case ModeVolatility:
		return l.Value * volatility
	case ModeFixed:
		return l.Value
	default:
		return 0
	}
}

// TrailingConfig describes the volatility-scaled trailing stop.
type TrailingConfig struct {
	Enabled  bool    `json:"enabled" yaml:"enabled"`
	Multiple float64 `json:"multiple" yaml:"multiple"`
}

// StrategyConfig contains the trend strategy parameters. It is immutable for a run.
type StrategyConfig struct {
	// ActivationCutoff disables entries for bars before it. Zero means always active.
	ActivationCutoff time.Time `json:"activation_cutoff,omitempty" yaml:"activation_cutoff,omitempty"`

	// Averages are the moving average periods, fastest first.
	Averages          []int   `json:"averages" yaml:"averages"`
	NoiseMultiple     float64 `json:"noise_multiple" yaml:"noise_multiple"`
	StrengthThreshold float64 `json:"strength_threshold" yaml:"strength_threshold"`
	SignalExit        bool    `json:"signal_exit" yaml:"signal_exit"`

	Stop     LevelConfig    `json:"stop" yaml:"stop"`
	Trailing TrailingConfig `json:"trailing" yaml:"trailing"`
	Target   LevelConfig    `json:"target" yaml:"target"`

	CooldownBars int     `json:"cooldown_bars" yaml:"cooldown_bars"`
	Size         float64 `json:"size" yaml:"size"`
}

// SimulationConfig contains the simulated gateway parameters
type SimulationConfig struct {
	Cash       float64 `json:"cash" yaml:"cash"`
	Commission float64 `json:"commission" yaml:"commission"` // fraction of notional per leg
	Leverage   float64 `json:"leverage" yaml:"leverage"`
}

// IndicatorConfig sets the periods used when bars are enriched from raw
// OHLC candles. The trend averages come from Strategy.Averages.
type IndicatorConfig struct {
	VolatilityPeriod int `json:"volatility_period" yaml:"volatility_period"` // ATR
	StrengthPeriod   int `json:"strength_period" yaml:"strength_period"`     // ADX
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LogConfig contains logging parameters
type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// LoadFromFile loads configuration from a file (YAML or JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Strategy.Validate(); err != nil {
		return err
	}
	if c.Simulation.Cash <= 0 {
		return invalid("simulation.cash must be positive")
	}
	if c.Simulation.Commission < 0 {
		return invalid("simulation.commission must not be negative")
	}
	if c.Simulation.Leverage <= 0 {
		return invalid("simulation.leverage must be positive")
	}
	if c.Indicators.VolatilityPeriod <= 0 {
		return invalid("indicators.volatility_period must be positive")
	}
	if c.Indicators.StrengthPeriod <= 0 {
		return invalid("indicators.strength_period must be positive")
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" {
			return invalid("journal.trades_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return invalid("journal.db_path required for SQLite type")
		}
	case "none", "":
	default:
		return invalid("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	if c.Log.Level != "" {
		if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
			return invalid("log.level %q: %v", c.Log.Level, err)
		}
	}
	return nil
}

// Validate checks the strategy parameters on their own.
func (s StrategyConfig) Validate() error {
	if len(s.Averages) < 2 {
		return invalid("strategy.averages needs at least two periods")
	}
	for i, p := range s.Averages {
		if p <= 0 {
			return invalid("strategy.averages[%d] must be positive", i)
		}
		if i > 0 && p <= s.Averages[i-1] {
			return invalid("strategy.averages must be strictly increasing")
		}
	}
	if s.NoiseMultiple < 0 || math.IsNaN(s.NoiseMultiple) {
		return invalid("strategy.noise_multiple must not be negative")
	}
	if math.IsNaN(s.StrengthThreshold) {
		return invalid("strategy.strength_threshold is not a number")
	}
	if err := s.Stop.validate("strategy.stop"); err != nil {
		return err
	}
	if s.Trailing.Enabled && !(s.Trailing.Multiple > 0) {
		return invalid("strategy.trailing.multiple must be positive")
	}
	if err := s.Target.validate("strategy.target"); err != nil {
		return err
	}
	if s.CooldownBars < 0 {
		return invalid("strategy.cooldown_bars must not be negative")
	}
	if !(s.Size > 0) {
		return invalid("strategy.size must be positive")
	}
	return nil
}

func (l LevelConfig) validate(key string) error {
	if !l.Enabled {
		return nil
	}
	if !l.Mode.valid() {
		return invalid("%s.mode must be 'percent', 'volatility' or 'fixed'", key)
	}
	if !(l.Value > 0) {
		return invalid("%s.value must be positive", key)
	}
	return nil
}

// Meta flattens the strategy parameters for stamping on trade records.
func (s StrategyConfig) Meta() map[string]string {
	avgs := make([]string, len(s.Averages))
	for i, p := range s.Averages {
		avgs[i] = strconv.Itoa(p)
	}

	meta := map[string]string{
		"averages":      strings.Join(avgs, "/"),
		"noise":         ftoa(s.NoiseMultiple),
		"strength":      ftoa(s.StrengthThreshold),
		"signal_exit":   strconv.FormatBool(s.SignalExit),
		"cooldown_bars": strconv.Itoa(s.CooldownBars),
	}
	if s.Stop.Enabled {
		meta["sl_mode"] = string(s.Stop.Mode)
		meta["sl_value"] = ftoa(s.Stop.Value)
	}
	if s.Trailing.Enabled {
		meta["trail_mult"] = ftoa(s.Trailing.Multiple)
	}
	if s.Target.Enabled {
		meta["tp_mode"] = string(s.Target.Mode)
		meta["tp_value"] = ftoa(s.Target.Value)
	}
	return meta
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Strategy: StrategyConfig{
			Averages:          []int{80, 320, 1200, 3800},
			NoiseMultiple:     1.0,
			StrengthThreshold: 20,
			SignalExit:        true,
			Stop: LevelConfig{
				Enabled: true,
				Mode:    ModePercent,
				Value:   0.5,
			},
			Trailing: TrailingConfig{
				Enabled:  true,
				Multiple: 3,
			},
			Target: LevelConfig{
				Mode:  ModeVolatility,
				Value: 6,
			},
			CooldownBars: 0,
			Size:         10,
		},
		Simulation: SimulationConfig{
			Cash:       1_000_000,
			Commission: 0.0002,
			Leverage:   1,
		},
		Indicators: IndicatorConfig{
			VolatilityPeriod: 14,
			StrengthPeriod:   14,
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
