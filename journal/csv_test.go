package journal

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalRecordTrade(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trades.csv")
	j, err := NewCSV(path)
	require.NoError(t, err)

	require.NoError(t, j.RecordTrade(sampleRecord(1)))
	require.NoError(t, j.Close())

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeader, rows[0])

	row := rows[1]
	assert.Equal(t, "1", row[0])
	assert.Equal(t, "RELIANCE", row[1])
	assert.Equal(t, "LONG", row[2])
	assert.Equal(t, "2500.500000", row[6])
	assert.Equal(t, "TRAIL", row[19])
	assert.Equal(t, "fast=80;sl_mode=percent", row[20])
}

func TestWriteCSVDegradedAndOpen(t *testing.T) {
	t.Parallel()

	degraded := TradeRecord{TradeID: 2, Instrument: "RELIANCE", ExitPrice: 10, Exit: ExitSignal}
	open := sampleRecord(3)
	open.Exit = ExitOpen

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []TradeRecord{degraded, open}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "", rows[1][4], "entry_time empty")
	assert.Equal(t, "", rows[1][6], "entry_price empty")
	assert.Equal(t, "", rows[1][11], "volatility empty")
	assert.Equal(t, "FLAT", rows[1][2])
	assert.Equal(t, "OPEN", rows[2][19])
}

func TestNewCSVBadPath(t *testing.T) {
	t.Parallel()

	_, err := NewCSV(filepath.Join(t.TempDir(), "missing", "trades.csv"))
	assert.Error(t, err)
}
