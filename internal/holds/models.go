package holds

import (
	"time"

	"github.com/google/uuid"
)

// Hold is a time-boxed provisional claim on one slot. It decrements the
// ledger's held count while ACTIVE and returns the slot on release or
// expiry, or transfers it to confirmed on payment success.
type Hold struct {
	ID                 uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EventID            uuid.UUID  `gorm:"type:uuid;index;not null" json:"event_id"`
	AccessTypeID       uuid.UUID  `gorm:"type:uuid;index;not null" json:"access_type_id"`
	HolderRef          uuid.UUID  `gorm:"type:uuid;index;not null" json:"holder_ref"`
	GroupReservationID *uuid.UUID `gorm:"type:uuid;index" json:"group_reservation_id,omitempty"`
	State              HoldState  `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"state"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	ExpiresAt          time.Time  `gorm:"not null" json:"expires_at"`
}

func (Hold) TableName() string {
	return "holds"
}

// IsExpired reports whether the hold's deadline has passed. State may still
// read ACTIVE in the store; expiry is detected lazily on read or by the
// sweep.
func (h *Hold) IsExpired(now time.Time) bool {
	return h.State == StateActive && now.After(h.ExpiresAt)
}

// CreateHoldRequest carries the inputs for creating one provisional hold
type CreateHoldRequest struct {
	EventID            uuid.UUID
	AccessTypeID       uuid.UUID
	HolderRef          uuid.UUID
	GroupReservationID *uuid.UUID
}
