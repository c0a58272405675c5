package journal

import "github.com/rustyeddy/trendtrader/broker"

// ExitResolver remembers the last fill that can have closed the current
// trade and derives the exit price and cause from it when the close is
// reported. It is updated incrementally from order events; it never rescans
// history.
type ExitResolver struct {
	classify ExitClassifier

	price float64
	kind  broker.OrderKind
	seen  bool
}

// NewExitResolver returns a resolver using classify, or DefaultClassifier
// when classify is nil.
func NewExitResolver(classify ExitClassifier) *ExitResolver {
	if classify == nil {
		classify = DefaultClassifier
	}
	return &ExitResolver{classify: classify}
}

// Observe records a completed fill. Events of any other status are ignored.
func (r *ExitResolver) Observe(ev broker.OrderEvent) {
	if ev.Status != broker.Completed {
		return
	}
	r.price = ev.FillPrice
	r.kind = ev.Kind
	r.seen = ev.FillPrice > 0
}

// Reset forgets the last fill. Call it when a new trade opens.
func (r *ExitResolver) Reset() {
	r.price = 0
	r.kind = 0
	r.seen = false
}

// Resolve returns the exit price and cause for the trade that just closed.
//
// Without an observed fill price the exit price falls back to
// entry + pnlGross/size (or entry when size is zero). known is false when
// the cause could not be derived from a fill, in which case the returned
// type is ExitSignal.
func (r *ExitResolver) Resolve(entry, size, pnlGross float64) (price float64, exit ExitType, known bool) {
	price = r.price
	if !r.seen {
		price = entry
		if size != 0 {
			price = entry + pnlGross/size
		}
	}

	exit = ExitSignal
	if r.kind != 0 {
		exit, known = r.classify(r.kind)
		if !known {
			exit = ExitSignal
		}
	}
	return price, exit, known
}
