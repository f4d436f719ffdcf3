package audit

import (
	"time"

	"github.com/google/uuid"
)

func NewHoldCreated(eventID, accessTypeID, holderRef, holdID uuid.UUID) Event {
	return Event{
		Type:            EventHoldCreated,
		EventID:         eventID,
		AccessTypeID:    &accessTypeID,
		ParticipantRefs: []uuid.UUID{holderRef},
		Timestamp:       time.Now().UTC(),
		Details:         map[string]interface{}{"hold_id": holdID.String()},
	}
}

func NewHoldConfirmed(eventID, accessTypeID, holderRef, holdID uuid.UUID) Event {
	return Event{
		Type:            EventHoldConfirmed,
		EventID:         eventID,
		AccessTypeID:    &accessTypeID,
		ParticipantRefs: []uuid.UUID{holderRef},
		Timestamp:       time.Now().UTC(),
		Details:         map[string]interface{}{"hold_id": holdID.String()},
	}
}

func NewHoldReleased(eventID, accessTypeID, holderRef, holdID uuid.UUID) Event {
	return Event{
		Type:            EventHoldReleased,
		EventID:         eventID,
		AccessTypeID:    &accessTypeID,
		ParticipantRefs: []uuid.UUID{holderRef},
		Timestamp:       time.Now().UTC(),
		Details:         map[string]interface{}{"hold_id": holdID.String()},
	}
}

func NewHoldExpired(eventID, accessTypeID, holderRef, holdID uuid.UUID) Event {
	return Event{
		Type:            EventHoldExpired,
		EventID:         eventID,
		AccessTypeID:    &accessTypeID,
		ParticipantRefs: []uuid.UUID{holderRef},
		Timestamp:       time.Now().UTC(),
		Details:         map[string]interface{}{"hold_id": holdID.String()},
	}
}

func NewGroupReservationCreated(eventID, reservationID uuid.UUID, participantRefs []uuid.UUID) Event {
	return Event{
		Type:            EventGroupReservationCreated,
		EventID:         eventID,
		ParticipantRefs: participantRefs,
		Timestamp:       time.Now().UTC(),
		Details:         map[string]interface{}{"reservation_id": reservationID.String()},
	}
}

func NewGroupReservationFailed(eventID uuid.UUID, failedRefs []uuid.UUID, shortfalls map[string]int) Event {
	return Event{
		Type:            EventGroupReservationFailed,
		EventID:         eventID,
		ParticipantRefs: failedRefs,
		Timestamp:       time.Now().UTC(),
		Details:         map[string]interface{}{"shortfall_per_access_type": shortfalls},
	}
}

func NewThresholdCrossed(eventID, accessTypeID uuid.UUID, boundary float64, actions []string, used, totalCapacity int) Event {
	return Event{
		Type:         EventThresholdCrossed,
		EventID:      eventID,
		AccessTypeID: &accessTypeID,
		Timestamp:    time.Now().UTC(),
		Details: map[string]interface{}{
			"boundary":       boundary,
			"actions":        actions,
			"used":           used,
			"total_capacity": totalCapacity,
		},
	}
}

func NewCapacityConfigChanged(eventID, accessTypeID, configID uuid.UUID, totalCapacity, overbookingPct int) Event {
	return Event{
		Type:         EventCapacityConfigChanged,
		EventID:      eventID,
		AccessTypeID: &accessTypeID,
		Timestamp:    time.Now().UTC(),
		Details: map[string]interface{}{
			"config_id":              configID.String(),
			"total_capacity":         totalCapacity,
			"overbooking_percentage": overbookingPct,
		},
	}
}
