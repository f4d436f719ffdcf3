package holds

import (
	"testing"
	"time"
)

func TestHoldStateTransitions(t *testing.T) {
	tests := []struct {
		from HoldState
		to   HoldState
		want bool
	}{
		{StateActive, StateConfirmed, true},
		{StateActive, StateReleased, true},
		{StateActive, StateExpired, true},
		{StateActive, StateActive, false},
		{StateConfirmed, StateReleased, false},
		{StateReleased, StateActive, false},
		{StateExpired, StateConfirmed, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestHoldStateIsTerminal(t *testing.T) {
	if StateActive.IsTerminal() {
		t.Error("ACTIVE must not be terminal")
	}
	for _, state := range []HoldState{StateConfirmed, StateReleased, StateExpired} {
		if !state.IsTerminal() {
			t.Errorf("%s must be terminal", state)
		}
	}
}

func TestHoldStateIsValid(t *testing.T) {
	for _, state := range []HoldState{StateActive, StateConfirmed, StateReleased, StateExpired} {
		if !state.IsValid() {
			t.Errorf("%s should be valid", state)
		}
	}
	if HoldState("PENDING").IsValid() {
		t.Error("unknown state should be invalid")
	}
}

func TestHoldIsExpired(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	hold := &Hold{State: StateActive, ExpiresAt: createdAt.Add(15 * time.Minute)}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"just created", createdAt, false},
		{"at the deadline", createdAt.Add(15 * time.Minute), false},
		{"past the deadline", createdAt.Add(15*time.Minute + time.Nanosecond), true},
		{"well past", createdAt.Add(time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hold.IsExpired(tt.now); got != tt.want {
				t.Errorf("IsExpired(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestTerminalHoldNeverExpires(t *testing.T) {
	// Expiry applies only to ACTIVE holds; a released hold past its deadline
	// must not release the ledger slot again
	hold := &Hold{State: StateReleased, ExpiresAt: time.Now().UTC().Add(-time.Hour)}
	if hold.IsExpired(time.Now().UTC()) {
		t.Error("released hold must not report expired")
	}
}
