package market

// Side is the direction of a position: +1 long, -1 short, 0 flat.
type Side int8

const (
	Flat  Side = 0
	Long  Side = +1
	Short Side = -1
)

func (s Side) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Opposite returns the reverse side. Flat stays flat.
func (s Side) Opposite() Side {
	return -s
}

// Sign returns +1, -1 or 0 as a float, handy for signed sizes.
func (s Side) Sign() float64 {
	return float64(s)
}

// ParseSide accepts LONG/SHORT/FLAT as well as BUY/SELL.
func ParseSide(s string) Side {
	switch s {
	case "LONG", "long", "BUY", "buy":
		return Long
	case "SHORT", "short", "SELL", "sell":
		return Short
	default:
		return Flat
	}
}

// Alignment classifies an ordered set of trend averages.
//
// It returns Long when the readings are strictly decreasing from fastest to
// slowest (fast > mid1 > mid2 > ...), Short when strictly increasing, and Flat
// otherwise. Fewer than two readings never align.
func Alignment(trend []float64) Side {
	if len(trend) < 2 {
		return Flat
	}
	bull, bear := true, true
	for i := 1; i < len(trend); i++ {
		if !(trend[i-1] > trend[i]) {
			bull = false
		}
		if !(trend[i-1] < trend[i]) {
			bear = false
		}
	}
	switch {
	case bull:
		return Long
	case bear:
		return Short
	default:
		return Flat
	}
}
