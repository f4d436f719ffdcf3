package groups

import (
	"time"

	"github.com/google/uuid"

	"reservely/internal/holds"
)

// ReservationStatus reflects how much of the requested group was committed
type ReservationStatus string

const (
	StatusCommitted ReservationStatus = "COMMITTED"
	// StatusPartial marks a reservation committed with allowPartial for
	// fewer participants than requested
	StatusPartial ReservationStatus = "PARTIAL"
)

// GroupReservation records one atomic multi-participant booking. It owns its
// holds but references participants by id only. With allowPartial false the
// record exists only when every participant got a hold.
type GroupReservation struct {
	ID             uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EventID        uuid.UUID         `gorm:"type:uuid;index;not null" json:"event_id"`
	GroupLeaderRef uuid.UUID         `gorm:"type:uuid;not null" json:"group_leader_ref"`
	AllowPartial   bool              `gorm:"not null;default:false" json:"allow_partial"`
	Status         ReservationStatus `gorm:"type:varchar(20);not null" json:"status"`
	FailedRefs     []uuid.UUID       `gorm:"type:jsonb;serializer:json" json:"failed_refs,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`

	Holds []holds.Hold `gorm:"foreignKey:GroupReservationID" json:"holds,omitempty"`
}

func (GroupReservation) TableName() string {
	return "group_reservations"
}

// GroupParticipant names one requested slot. A nil AccessTypeID means the
// event's default general-access type.
type GroupParticipant struct {
	ParticipantRef uuid.UUID  `json:"participant_ref" validate:"required"`
	AccessTypeID   *uuid.UUID `json:"access_type_id,omitempty"`
}

// GroupReservationRequest carries the inputs for one group booking.
// Participant order matters: when capacity is scarce, slots are granted in
// request order.
type GroupReservationRequest struct {
	EventID        uuid.UUID          `json:"event_id" validate:"required"`
	GroupLeaderRef uuid.UUID          `json:"group_leader_ref" validate:"required"`
	Participants   []GroupParticipant `json:"participants" validate:"required,min=1,dive"`
	AllowPartial   bool               `json:"allow_partial"`
}

// ParticipantOutcome reports the per-participant result of a group booking
type ParticipantOutcome struct {
	ParticipantRef uuid.UUID  `json:"participant_ref"`
	AccessTypeID   uuid.UUID  `json:"access_type_id"`
	Granted        bool       `json:"granted"`
	HoldID         *uuid.UUID `json:"hold_id,omitempty"`
}

// ReservationResult is the successful outcome of a group booking
type ReservationResult struct {
	Reservation *GroupReservation    `json:"reservation"`
	Outcomes    []ParticipantOutcome `json:"outcomes"`
}
