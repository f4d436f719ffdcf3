package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrCapacityNotConfigured means no active CapacityConfig exists for the
// (event, access type) pair. Administrator setup is missing; retrying the
// same call cannot succeed.
var ErrCapacityNotConfigured = errors.New("capacity not configured")

// InsufficientCapacityError is a business outcome, not a system fault: the
// atomic check found fewer available slots than requested. It always carries
// the exact shortfall.
type InsufficientCapacityError struct {
	EventID      uuid.UUID
	AccessTypeID uuid.UUID
	Requested    int
	Available    int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity for event %s access type %s: requested %d, available %d",
		e.EventID, e.AccessTypeID, e.Requested, e.Available)
}

// IsInsufficientCapacity reports whether err is an insufficient-capacity
// outcome.
func IsInsufficientCapacity(err error) bool {
	var target *InsufficientCapacityError
	return errors.As(err, &target)
}
