package ledger

import "testing"

func TestEntryUsed(t *testing.T) {
	entry := &SlotLedgerEntry{ConfirmedCount: 7, HeldCount: 3}
	if got := entry.Used(); got != 10 {
		t.Errorf("Used() = %d, want 10", got)
	}
}

func TestEntryAvailable(t *testing.T) {
	tests := []struct {
		name              string
		confirmed         int
		held              int
		effectiveCapacity int
		want              int
	}{
		{"empty ledger", 0, 0, 100, 100},
		{"partially used", 40, 10, 100, 50},
		{"exactly full", 90, 10, 100, 0},
		{"overbooking headroom", 95, 5, 110, 10},
		{"ceiling lowered below usage clamps at zero", 90, 20, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &SlotLedgerEntry{ConfirmedCount: tt.confirmed, HeldCount: tt.held}
			if got := entry.Available(tt.effectiveCapacity); got != tt.want {
				t.Errorf("Available(%d) = %d, want %d", tt.effectiveCapacity, got, tt.want)
			}
		})
	}
}

func TestInsufficientCapacityErrorMessage(t *testing.T) {
	err := &InsufficientCapacityError{Requested: 5, Available: 3}
	if !IsInsufficientCapacity(err) {
		t.Fatal("IsInsufficientCapacity should match the typed error")
	}
	// The caller must always learn requested versus available
	msg := err.Error()
	if msg == "" {
		t.Fatal("error message is empty")
	}
}
