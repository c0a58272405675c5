package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/trendtrader/journal"
)

func TestParseBarSpecs(t *testing.T) {
	specs, err := parseBarSpecs([]string{"RELIANCE=a.csv", " TCS = b.csv ", "c.csv"}, "INFY")
	require.NoError(t, err)
	assert.Equal(t, []barSpec{
		{Instrument: "RELIANCE", Path: "a.csv"},
		{Instrument: "TCS", Path: "b.csv"},
		{Instrument: "INFY", Path: "c.csv"},
	}, specs)

	tests := []struct {
		name  string
		specs []string
		instr string
	}{
		{"none", nil, ""},
		{"no instrument", []string{"a.csv"}, ""},
		{"empty path", []string{"RELIANCE="}, ""},
		{"duplicate", []string{"RELIANCE=a.csv", "RELIANCE=b.csv"}, ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseBarSpecs(tt.specs, tt.instr)
			assert.Error(t, err)
		})
	}
}

func TestParseBound(t *testing.T) {
	b, err := parseBound("")
	require.NoError(t, err)
	assert.True(t, b.IsZero())

	b, err = parseBound("2024-03-04T09:15:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC), b)

	b, err = parseBound("2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, 4, b.Day())

	_, err = parseBound("March")
	assert.Error(t, err)
}

func TestDayBounds(t *testing.T) {
	start, end, err := dayBounds(time.UTC, "2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	_, _, err = dayBounds(time.UTC, "04/03/2024")
	assert.Error(t, err)
}

func TestBacktestCommandRecordsRun(t *testing.T) {
	dir := t.TempDir()
	bars := filepath.Join(dir, "reliance.csv")
	db := filepath.Join(dir, "journal.sqlite")
	prom := filepath.Join(dir, "metrics.prom")

	data := strings.Join([]string{
		"time,open,high,low,close,volatility,strength,a80,a320,a1200,a3800",
		"2024-03-04T09:15:00Z,108,111,107,110,1,25,105,103,101,99",
		"2024-03-04T09:16:00Z,110,110.5,109.5,109.6,1,25,95,97,99,101",
		"2024-03-04T09:17:00Z,109.6,110,109,109.5,1,25,100,101,100,101",
	}, "\n")
	require.NoError(t, os.WriteFile(bars, []byte(data), 0o644))

	rootCmd.SetArgs([]string{
		"backtest",
		"--log-level", "disabled",
		"--bars", "RELIANCE=" + bars,
		"--db", db,
		"--metrics-file", prom,
	})
	require.NoError(t, Execute())

	j, err := journal.NewSQLite(db, "")
	require.NoError(t, err)
	defer j.Close()

	runs, err := j.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "RELIANCE", runs[0].Instrument)
	assert.Contains(t, string(runs[0].Config), "averages")

	recs, err := j.ListTrades(runs[0].RunID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, journal.ExitSignal, recs[0].Exit)
	assert.Equal(t, 109.6, recs[0].ExitPrice)

	raw, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "trendtrader_exits_total")
}
