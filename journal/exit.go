package journal

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/trendtrader/broker"
)

// ExitType is why a trade closed. Open only appears on records built at
// query time for trades that are still live.
type ExitType uint8

const (
	ExitSignal ExitType = iota + 1
	ExitStopLoss
	ExitTrail
	ExitTarget
	ExitOpen
)

func (e ExitType) String() string {
	switch e {
	case ExitSignal:
		return "SIGNAL"
	case ExitStopLoss:
		return "STOPLOSS"
	case ExitTrail:
		return "TRAIL"
	case ExitTarget:
		return "TARGET"
	case ExitOpen:
		return "OPEN"
	default:
		return fmt.Sprintf("ExitType(%d)", uint8(e))
	}
}

// ParseExitType is the inverse of String. Unknown names map to ExitSignal,
// the least specific classification.
func ParseExitType(s string) ExitType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STOPLOSS":
		return ExitStopLoss
	case "TRAIL":
		return ExitTrail
	case "TARGET":
		return ExitTarget
	case "OPEN":
		return ExitOpen
	default:
		return ExitSignal
	}
}

// ExitClassifier maps the execution kind of the order that closed a trade
// to an exit type. ok is false when the kind says nothing about the cause.
type ExitClassifier func(kind broker.OrderKind) (ExitType, bool)

// DefaultClassifier treats stop, trailing and target fills as their own
// causes and a market fill as a signal exit.
func DefaultClassifier(kind broker.OrderKind) (ExitType, bool) {
	switch kind {
	case broker.Market:
		return ExitSignal, true
	case broker.FixedStop:
		return ExitStopLoss, true
	case broker.TrailingStop:
		return ExitTrail, true
	case broker.Target:
		return ExitTarget, true
	default:
		return ExitSignal, false
	}
}
