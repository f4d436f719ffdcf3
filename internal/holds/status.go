package holds

// HoldState is the lifecycle state of a provisional hold. Terminal states
// are immutable; only ACTIVE holds may transition.
type HoldState string

const (
	StateActive    HoldState = "ACTIVE"
	StateConfirmed HoldState = "CONFIRMED"
	StateReleased  HoldState = "RELEASED"
	StateExpired   HoldState = "EXPIRED"
)

func (s HoldState) IsValid() bool {
	switch s {
	case StateActive, StateConfirmed, StateReleased, StateExpired:
		return true
	}
	return false
}

func (s HoldState) String() string {
	return string(s)
}

// IsTerminal reports whether the state permits no further transitions
func (s HoldState) IsTerminal() bool {
	return s != StateActive
}

// CanTransitionTo reports whether the state machine allows moving to next
func (s HoldState) CanTransitionTo(next HoldState) bool {
	if s != StateActive {
		return false
	}
	switch next {
	case StateConfirmed, StateReleased, StateExpired:
		return true
	}
	return false
}
