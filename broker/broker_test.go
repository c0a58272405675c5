package broker

import (
	"testing"
)

func TestOrderKindString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind     OrderKind
		expected string
	}{
		{Market, "MARKET"},
		{FixedStop, "STOP"},
		{TrailingStop, "TRAIL"},
		{Target, "TARGET"},
		{OrderKind(0), "OrderKind(0)"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.expected, func(t *testing.T) {
			t.Parallel()
			if got := tt.kind.String(); got != tt.expected {
				t.Fatalf("String() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   OrderStatus
		name     string
		terminal bool
	}{
		{Submitted, "SUBMITTED", false},
		{Accepted, "ACCEPTED", false},
		{Completed, "COMPLETED", true},
		{Canceled, "CANCELED", true},
		{Rejected, "REJECTED", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.status.String(); got != tt.name {
				t.Fatalf("String() = %q, expected %q", got, tt.name)
			}
			if got := tt.status.Terminal(); got != tt.terminal {
				t.Fatalf("Terminal() = %v, expected %v", got, tt.terminal)
			}
		})
	}
}
