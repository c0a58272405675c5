package controller

import (
	"fmt"
	"time"

	"github.com/rustyeddy/trendtrader/market"
)

// State is the controller's position lifecycle state.
type State uint8

const (
	Flat State = iota
	EntryPending
	Long
	Short
	ExitPending
)

func (s State) String() string {
	switch s {
	case Flat:
		return "FLAT"
	case EntryPending:
		return "ENTRY_PENDING"
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	case ExitPending:
		return "EXIT_PENDING"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

func holding(side market.Side) State {
	if side == market.Short {
		return Short
	}
	return Long
}

// Position is the open position on one instrument. EntrySize is unsigned;
// Side carries the direction.
type Position struct {
	TradeID         int64
	Side            market.Side
	EntryPrice      float64
	EntrySize       float64
	EntryTime       time.Time
	EntryVolatility float64

	Protective ProtectiveOrderSet
}

// SignedSize is EntrySize with the sign of Side.
func (p Position) SignedSize() float64 {
	return p.Side.Sign() * p.EntrySize
}
