// Package broker defines the contract between the position controller and an
// execution gateway: the commands the controller may issue and the events the
// gateway reports back.
package broker

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/trendtrader/market"
)

// ErrRejected is wrapped by every gateway error that refuses a command.
var ErrRejected = errors.New("order rejected")

// OrderRef identifies an order within one gateway. Zero means "no order".
type OrderRef int64

// OrderKind is how an order executes.
type OrderKind uint8

const (
	Market OrderKind = iota + 1
	FixedStop
	TrailingStop
	Target
)

func (k OrderKind) String() string {
	switch k {
	case Market:
		return "MARKET"
	case FixedStop:
		return "STOP"
	case TrailingStop:
		return "TRAIL"
	case Target:
		return "TARGET"
	default:
		return fmt.Sprintf("OrderKind(%d)", uint8(k))
	}
}

// OrderStatus is the lifecycle state reported for an order.
type OrderStatus uint8

const (
	Submitted OrderStatus = iota + 1
	Accepted
	Completed
	Canceled
	Rejected
)

func (s OrderStatus) String() string {
	switch s {
	case Submitted:
		return "SUBMITTED"
	case Accepted:
		return "ACCEPTED"
	case Completed:
		return "COMPLETED"
	case Canceled:
		return "CANCELED"
	case Rejected:
		return "REJECTED"
	default:
		return fmt.Sprintf("OrderStatus(%d)", uint8(s))
	}
}

// Terminal reports whether no further events follow for the order.
func (s OrderStatus) Terminal() bool {
	return s == Completed || s == Canceled || s == Rejected
}

// OrderEvent is a status change for one order. FillPrice and FillSize are
// only meaningful when Status is Completed; FillSize is always positive.
type OrderEvent struct {
	Ref        OrderRef
	Instrument string
	Kind       OrderKind
	Status     OrderStatus
	FillPrice  float64
	FillSize   float64
	Time       time.Time
	Reason     string
}

// TradeOpened reports that a position came into existence. Size is signed:
// positive for long, negative for short.
type TradeOpened struct {
	BrokerID   string
	Instrument string
	Side       market.Side
	Price      float64
	Size       float64
	Time       time.Time
}

// TradeClosed reports that a position was fully closed.
type TradeClosed struct {
	BrokerID   string
	Instrument string
	Price      float64
	Size       float64
	Time       time.Time
	PnLGross   float64
	PnLNet     float64
}

// Gateway accepts order commands for a single instrument.
//
// Implementations resolve commands deterministically within the bar they were
// issued in and report the outcome through a Listener. A synchronous error
// means the command never reached the book; later refusals arrive as
// Rejected events. Fills and rejections of a command are never reported
// before the call that issued it returns.
type Gateway interface {
	SubmitEntry(side market.Side, size float64) (OrderRef, error)
	SubmitFixedStop(price, size float64) (OrderRef, error)
	SubmitTrailingStop(trail, size float64) (OrderRef, error)
	SubmitTarget(price, size float64) (OrderRef, error)
	Cancel(ref OrderRef) error
	ClosePosition() (OrderRef, error)
}

// Listener receives gateway events. For a fill, the OrderEvent is delivered
// before the TradeOpened or TradeClosed it causes.
type Listener interface {
	OnOrder(ev OrderEvent)
	OnTradeOpened(ev TradeOpened)
	OnTradeClosed(ev TradeClosed)
}
