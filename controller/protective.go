package controller

import "github.com/rustyeddy/trendtrader/broker"

// ProtectiveOrderSet holds the resting exit orders that guard a position.
// A zero ref means the leg is not armed.
type ProtectiveOrderSet struct {
	Stop   broker.OrderRef
	Trail  broker.OrderRef
	Target broker.OrderRef
}

// Empty reports whether no leg is armed.
func (s ProtectiveOrderSet) Empty() bool {
	return s.Stop == 0 && s.Trail == 0 && s.Target == 0
}

// Has reports whether ref is one of the armed legs.
func (s ProtectiveOrderSet) Has(ref broker.OrderRef) bool {
	return ref != 0 && (ref == s.Stop || ref == s.Trail || ref == s.Target)
}

// Refs returns the armed legs in stop, trail, target order.
func (s ProtectiveOrderSet) Refs() []broker.OrderRef {
	refs := make([]broker.OrderRef, 0, 3)
	for _, r := range []broker.OrderRef{s.Stop, s.Trail, s.Target} {
		if r != 0 {
			refs = append(refs, r)
		}
	}
	return refs
}

// Drop disarms the leg holding ref. It reports whether ref was armed.
func (s *ProtectiveOrderSet) Drop(ref broker.OrderRef) bool {
	switch {
	case ref == 0:
		return false
	case ref == s.Stop:
		s.Stop = 0
	case ref == s.Trail:
		s.Trail = 0
	case ref == s.Target:
		s.Target = 0
	default:
		return false
	}
	return true
}

// Clear disarms every leg and returns the refs that were armed.
func (s *ProtectiveOrderSet) Clear() []broker.OrderRef {
	refs := s.Refs()
	*s = ProtectiveOrderSet{}
	return refs
}

// Resolve handles a fill on one leg: it returns the kind of the filled leg
// and the siblings that must now be canceled, and empties the set. ok is
// false when filled is not an armed leg, in which case the set is untouched.
func (s *ProtectiveOrderSet) Resolve(filled broker.OrderRef) (kind broker.OrderKind, siblings []broker.OrderRef, ok bool) {
	switch {
	case filled == 0:
		return 0, nil, false
	case filled == s.Stop:
		kind = broker.FixedStop
	case filled == s.Trail:
		kind = broker.TrailingStop
	case filled == s.Target:
		kind = broker.Target
	default:
		return 0, nil, false
	}

	for _, r := range s.Clear() {
		if r != filled {
			siblings = append(siblings, r)
		}
	}
	return kind, siblings, true
}
