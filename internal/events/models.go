package events

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus represents the lifecycle state of an event
type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusPublished EventStatus = "PUBLISHED"
	EventStatusCancelled EventStatus = "CANCELLED"
)

func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusCancelled:
		return true
	}
	return false
}

// Event is the registration target the engine allocates capacity for. The
// engine only reads events; event content management lives elsewhere.
type Event struct {
	ID        uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string      `gorm:"not null" json:"name"`
	Status    EventStatus `gorm:"type:varchar(20);default:'PUBLISHED'" json:"status"`
	StartsAt  time.Time   `gorm:"not null" json:"starts_at"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`

	AccessTypes []AccessType `json:"access_types,omitempty" gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE;"`
}

// AccessType is one admission class of an event (general, VIP, workshop...).
// Capacity is configured and accounted per (event, access type).
type AccessType struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EventID   uuid.UUID `gorm:"type:uuid;index;not null" json:"event_id"`
	Name      string    `gorm:"not null" json:"name"`
	IsDefault bool      `gorm:"default:false" json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

func (Event) TableName() string {
	return "events"
}

func (AccessType) TableName() string {
	return "access_types"
}
