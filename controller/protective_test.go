package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/trendtrader/broker"
)

func TestProtectiveOrderSetResolve(t *testing.T) {
	tests := []struct {
		name     string
		set      ProtectiveOrderSet
		filled   broker.OrderRef
		kind     broker.OrderKind
		siblings []broker.OrderRef
		ok       bool
	}{
		{"stop with trail", ProtectiveOrderSet{Stop: 2, Trail: 3}, 2, broker.FixedStop, []broker.OrderRef{3}, true},
		{"trail with stop", ProtectiveOrderSet{Stop: 2, Trail: 3}, 3, broker.TrailingStop, []broker.OrderRef{2}, true},
		{"target with both", ProtectiveOrderSet{Stop: 2, Trail: 3, Target: 4}, 4, broker.Target, []broker.OrderRef{2, 3}, true},
		{"lone stop", ProtectiveOrderSet{Stop: 2}, 2, broker.FixedStop, nil, true},
		{"unknown ref", ProtectiveOrderSet{Stop: 2, Trail: 3}, 9, 0, nil, false},
		{"zero ref", ProtectiveOrderSet{Trail: 3}, 0, 0, nil, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			set := tt.set
			kind, siblings, ok := set.Resolve(tt.filled)

			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.siblings, siblings)
			if ok {
				assert.True(t, set.Empty())
			} else {
				assert.Equal(t, tt.set, set)
			}
		})
	}
}

func TestProtectiveOrderSetDrop(t *testing.T) {
	set := ProtectiveOrderSet{Stop: 2, Trail: 3, Target: 4}

	assert.True(t, set.Has(3))
	assert.True(t, set.Drop(3))
	assert.False(t, set.Has(3))
	assert.False(t, set.Drop(3))
	assert.False(t, set.Drop(0))
	assert.Equal(t, []broker.OrderRef{2, 4}, set.Refs())

	assert.Equal(t, []broker.OrderRef{2, 4}, set.Clear())
	assert.True(t, set.Empty())
	assert.Empty(t, set.Refs())
	assert.False(t, set.Has(0))
}
