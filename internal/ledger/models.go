package ledger

import (
	"time"

	"github.com/google/uuid"
)

// SlotLedgerEntry holds the authoritative counters of confirmed and
// provisionally held slots for one (event, access type) pair. Every mutation
// happens under a row lock so the invariant
// confirmed + held <= effective capacity survives concurrent writers.
type SlotLedgerEntry struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EventID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:unique_ledger_row" json:"event_id"`
	AccessTypeID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:unique_ledger_row" json:"access_type_id"`
	ConfirmedCount int       `gorm:"not null;default:0" json:"confirmed_count"`
	HeldCount      int       `gorm:"not null;default:0" json:"held_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (SlotLedgerEntry) TableName() string {
	return "slot_ledger_entries"
}

// Used is the total of granted and provisionally held slots
func (e *SlotLedgerEntry) Used() int {
	return e.ConfirmedCount + e.HeldCount
}

// Available computes the grantable slot count against an effective capacity
// ceiling, clamped at zero so callers never see a negative count.
func (e *SlotLedgerEntry) Available(effectiveCapacity int) int {
	available := effectiveCapacity - e.ConfirmedCount - e.HeldCount
	if available < 0 {
		return 0
	}
	return available
}

// Snapshot is a read-side view of one ledger row, served cache-aside and
// invalidated after every committed mutation.
type Snapshot struct {
	EventID           uuid.UUID `json:"event_id"`
	AccessTypeID      uuid.UUID `json:"access_type_id"`
	TotalCapacity     int       `json:"total_capacity"`
	EffectiveCapacity int       `json:"effective_capacity"`
	ConfirmedCount    int       `json:"confirmed_count"`
	HeldCount         int       `json:"held_count"`
	AvailableSlots    int       `json:"available_slots"`
	UtilizationRatio  float64   `json:"utilization_ratio"`
}
