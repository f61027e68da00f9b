package funnel

import "fmt"

// State is the furthest funnel stage a session has reached.
type State int

const (
	StateStart State = iota
	StateVisited
	StateViewed
	StateCarted
	StateCheckedOut
	StatePurchased
)

var stateNames = [...]string{"start", "visited", "viewed", "carted", "checked_out", "purchased"}

func (s State) String() string {
	if s < StateStart || s > StatePurchased {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Next returns the only state reachable from s, or false at the end of the funnel.
func (s State) Next() (State, bool) {
	if s >= StatePurchased {
		return s, false
	}
	return s + 1, true
}

// ErrInvalidTransition reports an attempt to skip or revisit a stage.
type ErrInvalidTransition struct {
	From State
	To   State
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid funnel transition %s -> %s", e.From, e.To)
}

// machine tracks the current state and permits only single forward steps.
// A stage may emit several events (views, cart adds) while the machine
// stays in the state it entered.
type machine struct {
	state State
}

func (m *machine) advance(to State) error {
	next, ok := m.state.Next()
	if !ok || next != to {
		return &ErrInvalidTransition{From: m.state, To: to}
	}
	m.state = to
	return nil
}

// can reports whether the session may enter stage to.
func (m *machine) can(to State) bool {
	next, ok := m.state.Next()
	return ok && next == to
}
