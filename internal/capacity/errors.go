package capacity

import (
	"errors"
	"fmt"
)

// ErrInvalidPolicyConfig marks administrator input outside the allowed
// range. Rejected outright, never clamped.
var ErrInvalidPolicyConfig = errors.New("invalid policy configuration")

var ErrConfigNotFound = errors.New("capacity config not found")

// InvalidPolicyError carries the specific violation behind
// ErrInvalidPolicyConfig.
type InvalidPolicyError struct {
	Field  string
	Reason string
}

func (e *InvalidPolicyError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid policy configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid policy configuration: %s %s", e.Field, e.Reason)
}

func (e *InvalidPolicyError) Unwrap() error {
	return ErrInvalidPolicyConfig
}
