package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a state transition recorded for traceability
type EventType string

const (
	EventHoldCreated             EventType = "HoldCreated"
	EventHoldConfirmed           EventType = "HoldConfirmed"
	EventHoldReleased            EventType = "HoldReleased"
	EventHoldExpired             EventType = "HoldExpired"
	EventGroupReservationCreated EventType = "GroupReservationCreated"
	EventGroupReservationFailed  EventType = "GroupReservationFailed"
	EventThresholdCrossed        EventType = "ThresholdCrossed"
	EventCapacityConfigChanged   EventType = "CapacityConfigChanged"
)

// Event is the structured payload delivered to the notification/audit sink.
// Consumed for alerting and user messaging, not required for correctness.
type Event struct {
	Type            EventType              `json:"type"`
	EventID         uuid.UUID              `json:"event_id"`
	AccessTypeID    *uuid.UUID             `json:"access_type_id,omitempty"`
	ParticipantRefs []uuid.UUID            `json:"participant_refs,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
	Details         map[string]interface{} `json:"details,omitempty"`
}

// OutboxEntry is an audit event persisted in the same transaction as the
// state change it describes. A background publisher delivers entries to the
// sink after commit; PublishedAt stays NULL until delivery succeeds.
type OutboxEntry struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Type        EventType  `gorm:"type:varchar(40);not null;index" json:"type"`
	EventID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"event_id"`
	Payload     []byte     `gorm:"type:jsonb;not null" json:"payload"`
	CreatedAt   time.Time  `json:"created_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

func (OutboxEntry) TableName() string {
	return "outbox_entries"
}

// NewOutboxEntry serializes an audit event into a persistable outbox row
func NewOutboxEntry(evt Event) (*OutboxEntry, error) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return &OutboxEntry{
		Type:    evt.Type,
		EventID: evt.EventID,
		Payload: payload,
	}, nil
}
