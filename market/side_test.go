package market

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAlignment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		trend []float64
		want  Side
	}{
		{"bullish stack", []float64{104, 103, 102, 101}, Long},
		{"bearish stack", []float64{101, 102, 103, 104}, Short},
		{"mixed", []float64{104, 102, 103, 101}, Flat},
		{"equal neighbours", []float64{104, 104, 102, 101}, Flat},
		{"two readings bullish", []float64{2, 1}, Long},
		{"single reading", []float64{1}, Flat},
		{"empty", nil, Flat},
		{"nan breaks alignment", []float64{3, math.NaN(), 1}, Flat},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Alignment(tt.trend))
		})
	}
}

func TestSide(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Short, Long.Opposite())
	assert.Equal(t, Long, Short.Opposite())
	assert.Equal(t, Flat, Flat.Opposite())
	assert.Equal(t, -1.0, Short.Sign())
	assert.Equal(t, "LONG", Long.String())
	assert.Equal(t, Long, ParseSide("BUY"))
	assert.Equal(t, Short, ParseSide("SHORT"))
	assert.Equal(t, Flat, ParseSide("?"))
}

func TestBarValidate(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 7, 23, 9, 30, 0, 0, time.UTC)

	good := Bar{Time: ts, Open: 10, High: 11, Low: 9, Close: 10.5, Trend: []float64{10.2, 10}}
	assert.NoError(t, good.Validate())
	assert.Equal(t, 10.2, good.Fast())

	assert.Error(t, Bar{Open: 1, High: 1, Low: 1, Close: 1}.Validate())
	assert.Error(t, Bar{Time: ts, Open: 10, High: 9, Low: 11, Close: 10}.Validate())
	assert.Error(t, Bar{Time: ts, Open: 12, High: 11, Low: 9, Close: 10}.Validate())
	assert.Equal(t, 0.0, Bar{}.Fast())
}
