package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, []int{80, 320, 1200, 3800}, cfg.Strategy.Averages)
	assert.Equal(t, 20.0, cfg.Strategy.StrengthThreshold)
	assert.Equal(t, ModePercent, cfg.Strategy.Stop.Mode)
	assert.Equal(t, 0.0002, cfg.Simulation.Commission)
	assert.True(t, cfg.Strategy.ActivationCutoff.IsZero())
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "valid config",
			modify: func(*Config) {},
		},
		{
			name:   "single average",
			modify: func(c *Config) { c.Strategy.Averages = []int{10} },
			errMsg: "strategy.averages needs at least two periods",
		},
		{
			name:   "averages not increasing",
			modify: func(c *Config) { c.Strategy.Averages = []int{10, 30, 30} },
			errMsg: "strategy.averages must be strictly increasing",
		},
		{
			name:   "zero average",
			modify: func(c *Config) { c.Strategy.Averages = []int{0, 30} },
			errMsg: "strategy.averages[0] must be positive",
		},
		{
			name:   "negative noise",
			modify: func(c *Config) { c.Strategy.NoiseMultiple = -1 },
			errMsg: "strategy.noise_multiple must not be negative",
		},
		{
			name:   "bad stop mode",
			modify: func(c *Config) { c.Strategy.Stop.Mode = "pips" },
			errMsg: "strategy.stop.mode",
		},
		{
			name:   "zero stop value",
			modify: func(c *Config) { c.Strategy.Stop.Value = 0 },
			errMsg: "strategy.stop.value must be positive",
		},
		{
			name: "disabled stop ignores value",
			modify: func(c *Config) {
				c.Strategy.Stop.Enabled = false
				c.Strategy.Stop.Value = 0
			},
		},
		{
			name:   "zero trail multiple",
			modify: func(c *Config) { c.Strategy.Trailing.Multiple = 0 },
			errMsg: "strategy.trailing.multiple must be positive",
		},
		{
			name: "enabled target needs value",
			modify: func(c *Config) {
				c.Strategy.Target.Enabled = true
				c.Strategy.Target.Value = -2
			},
			errMsg: "strategy.target.value must be positive",
		},
		{
			name:   "negative cooldown",
			modify: func(c *Config) { c.Strategy.CooldownBars = -1 },
			errMsg: "strategy.cooldown_bars must not be negative",
		},
		{
			name:   "zero size",
			modify: func(c *Config) { c.Strategy.Size = 0 },
			errMsg: "strategy.size must be positive",
		},
		{
			name:   "no cash",
			modify: func(c *Config) { c.Simulation.Cash = 0 },
			errMsg: "simulation.cash must be positive",
		},
		{
			name:   "negative commission",
			modify: func(c *Config) { c.Simulation.Commission = -0.1 },
			errMsg: "simulation.commission must not be negative",
		},
		{
			name:   "no leverage",
			modify: func(c *Config) { c.Simulation.Leverage = 0 },
			errMsg: "simulation.leverage must be positive",
		},
		{
			name:   "no volatility period",
			modify: func(c *Config) { c.Indicators.VolatilityPeriod = 0 },
			errMsg: "indicators.volatility_period must be positive",
		},
		{
			name:   "negative strength period",
			modify: func(c *Config) { c.Indicators.StrengthPeriod = -1 },
			errMsg: "indicators.strength_period must be positive",
		},
		{
			name:   "unknown journal",
			modify: func(c *Config) { c.Journal.Type = "parquet" },
			errMsg: "journal.type must be",
		},
		{
			name: "sqlite without path",
			modify: func(c *Config) {
				c.Journal.Type = "sqlite"
				c.Journal.DBPath = ""
			},
			errMsg: "journal.db_path required for SQLite type",
		},
		{
			name:   "journal none",
			modify: func(c *Config) { c.Journal.Type = "none" },
		},
		{
			name:   "bad log level",
			modify: func(c *Config) { c.Log.Level = "loud" },
			errMsg: "log.level",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLevelDistance(t *testing.T) {
	tests := []struct {
		level LevelConfig
		want  float64
	}{
		{LevelConfig{Mode: ModePercent, Value: 0.5}, 0.5},
		{LevelConfig{Mode: ModeVolatility, Value: 2}, 4},
		{LevelConfig{Mode: ModeFixed, Value: 1.25}, 1.25},
		{LevelConfig{Mode: "other", Value: 1}, 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.level.Mode), func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.level.Distance(100, 2), 1e-12)
		})
	}
}

func TestMeta(t *testing.T) {
	s := Default().Strategy
	meta := s.Meta()

	assert.Equal(t, "80/320/1200/3800", meta["averages"])
	assert.Equal(t, "percent", meta["sl_mode"])
	assert.Equal(t, "0.5", meta["sl_value"])
	assert.Equal(t, "3", meta["trail_mult"])
	_, hasTarget := meta["tp_mode"]
	assert.False(t, hasTarget)
}

func TestSaveAndLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := Default()
	cfg.Strategy.ActivationCutoff = time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	cfg.Strategy.CooldownBars = 5
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, loaded.Strategy.ActivationCutoff.Equal(cfg.Strategy.ActivationCutoff))
	assert.Equal(t, 5, loaded.Strategy.CooldownBars)
	assert.Equal(t, cfg.Strategy.Averages, loaded.Strategy.Averages)
	assert.Equal(t, cfg.Simulation, loaded.Simulation)
}

func TestSaveAndLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	cfg := Default()
	cfg.Journal.Type = "sqlite"
	cfg.Journal.DBPath = "./trades.db"
	require.NoError(t, cfg.SaveToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"db_path": "./trades.db"`)

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", loaded.Journal.Type)
	assert.Equal(t, "./trades.db", loaded.Journal.DBPath)
}

func TestLoadFromFilePartialKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	content := `
strategy:
  averages: [5, 10, 20]
  size: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 10, 20}, cfg.Strategy.Averages)
	assert.Equal(t, 3.0, cfg.Strategy.Size)
	assert.Equal(t, 1_000_000.0, cfg.Simulation.Cash)
}

func TestLoadFromFileErrors(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := LoadFromFile(filepath.Join(tmpDir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(tmpDir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("strategy: [unclosed"), 0644))
	_, err = LoadFromFile(bad)
	assert.Error(t, err)

	invalidCfg := filepath.Join(tmpDir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalidCfg, []byte("strategy:\n  size: -1\n"), 0644))
	_, err = LoadFromFile(invalidCfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
}
