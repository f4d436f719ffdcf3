package groups

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ValidationError carries every violation found in a request, not just the
// first one
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid group reservation request: %s", strings.Join(e.Violations, "; "))
}

// GroupReservationFailedError is the all-or-nothing outcome: no holds were
// created, and the caller learns exactly who missed out and by how much.
type GroupReservationFailedError struct {
	EventID    uuid.UUID
	FailedRefs []uuid.UUID
	// Shortfalls counts missing slots per access type
	Shortfalls map[uuid.UUID]int
}

func (e *GroupReservationFailedError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for accessTypeID, shortfall := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s short by %d", accessTypeID, shortfall))
	}
	sort.Strings(parts)
	return fmt.Sprintf("group reservation failed for event %s: %d participant(s) could not be seated (%s)",
		e.EventID, len(e.FailedRefs), strings.Join(parts, ", "))
}

// IsGroupReservationFailed reports whether err is the business outcome of a
// group not fitting, as opposed to a system fault
func IsGroupReservationFailed(err error) bool {
	var failed *GroupReservationFailedError
	return errors.As(err, &failed)
}

// IsValidationError reports whether err is a request-shape failure
func IsValidationError(err error) bool {
	var invalid *ValidationError
	return errors.As(err, &invalid)
}
