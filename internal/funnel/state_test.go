package funnel

import (
	"errors"
	"testing"
)

func TestMachineOnlyStepsForward(t *testing.T) {
	var m machine
	for _, s := range []State{StateVisited, StateViewed, StateCarted, StateCheckedOut, StatePurchased} {
		if !m.can(s) {
			t.Fatalf("cannot enter %s from %s", s, m.state)
		}
		if err := m.advance(s); err != nil {
			t.Fatalf("advance(%s): %v", s, err)
		}
	}
	if _, ok := m.state.Next(); ok {
		t.Error("purchased should be terminal")
	}
}

func TestMachineRejectsSkipsAndRepeats(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{StateStart, StateViewed},
		{StateVisited, StateCarted},
		{StateViewed, StateCheckedOut},
		{StateCarted, StatePurchased},
		{StateViewed, StateViewed},
		{StateCheckedOut, StateCarted},
		{StatePurchased, StatePurchased},
	}
	for _, tt := range tests {
		m := machine{state: tt.from}
		if m.can(tt.to) {
			t.Errorf("can(%s -> %s) = true", tt.from, tt.to)
		}
		err := m.advance(tt.to)
		var invalid *ErrInvalidTransition
		if !errors.As(err, &invalid) {
			t.Errorf("advance(%s -> %s) err = %v, want ErrInvalidTransition", tt.from, tt.to, err)
			continue
		}
		if m.state != tt.from {
			t.Errorf("failed transition moved state to %s", m.state)
		}
	}
}

func TestStateString(t *testing.T) {
	if StateCheckedOut.String() != "checked_out" {
		t.Errorf("got %q", StateCheckedOut.String())
	}
	if State(42).String() != "State(42)" {
		t.Errorf("got %q", State(42).String())
	}
}
