package constants

import (
	"fmt"
	"time"
)

// Redis Cache Configuration
// Centralizes cache keys and TTL values for the reservation engine.
// Pattern: event:{eventId}:... so a single event's views can be swept together.

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_CAPACITY_VIEW = 30 * time.Second // live availability counts
	TTL_CONFIG_VIEW   = 2 * time.Hour    // capacity configs change rarely
)

// ================== CACHE KEYS ==================

const (
	// Read-side capacity view, invalidated after every committed ledger mutation
	CACHE_KEY_EVENT_CAPACITY = "event:%s:capacity"

	// Per-access-type availability view
	CACHE_KEY_ACCESS_TYPE_AVAILABILITY = "event:%s:capacity:access_type:%s"

	// Active capacity config view
	CACHE_KEY_CAPACITY_CONFIG = "event:%s:capacity_config:%s"
)

// ================== INVALIDATION PATTERNS ==================

const (
	PATTERN_INVALIDATE_EVENT_CAPACITY = "event:%s:capacity*"
)

// ================== HELPER FUNCTIONS ==================

func BuildEventCapacityKey(eventID string) string {
	return fmt.Sprintf(CACHE_KEY_EVENT_CAPACITY, eventID)
}

func BuildAvailabilityKey(eventID, accessTypeID string) string {
	return fmt.Sprintf(CACHE_KEY_ACCESS_TYPE_AVAILABILITY, eventID, accessTypeID)
}

func BuildCapacityConfigKey(eventID, accessTypeID string) string {
	return fmt.Sprintf(CACHE_KEY_CAPACITY_CONFIG, eventID, accessTypeID)
}

func BuildEventCapacityPattern(eventID string) string {
	return fmt.Sprintf(PATTERN_INVALIDATE_EVENT_CAPACITY, eventID)
}
