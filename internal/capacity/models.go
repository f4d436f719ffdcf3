package capacity

import (
	"time"

	"github.com/google/uuid"
)

// Bounds enforced at write time. Out-of-range values are rejected outright,
// never clamped.
const (
	MinOverbookingPercentage = 0
	MaxOverbookingPercentage = 50
)

// CapacityConfig is the per-(event, access type) capacity configuration. At
// most one active config exists per pair; superseded configs are
// soft-deactivated, never deleted.
type CapacityConfig struct {
	ID                    uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EventID               uuid.UUID `gorm:"type:uuid;index;not null" json:"event_id"`
	AccessTypeID          uuid.UUID `gorm:"type:uuid;index;not null" json:"access_type_id"`
	TotalCapacity         int       `gorm:"not null" json:"total_capacity"`
	OverbookingPercentage int       `gorm:"not null;default:0" json:"overbooking_percentage"`
	HoldTimeoutMinutes    int       `gorm:"not null" json:"hold_timeout_minutes"`
	IsActive              bool      `gorm:"default:true" json:"is_active"`

	// Automatic actions fired when utilization crosses a threshold, each
	// independently toggled by the administrator.
	AlertAdmins       bool `gorm:"default:true" json:"alert_admins"`
	NotifyUsers       bool `gorm:"default:false" json:"notify_users"`
	OfferAlternatives bool `gorm:"default:false" json:"offer_alternatives"`

	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

func (CapacityConfig) TableName() string {
	return "capacity_configs"
}

// EffectiveCapacity is the base capacity inflated by the overbooking
// allowance, rounded down. With non-negative integer inputs,
// total + total*pct/100 equals floor(total * (1 + pct/100)).
func (c *CapacityConfig) EffectiveCapacity() int {
	return c.TotalCapacity + c.TotalCapacity*c.OverbookingPercentage/100
}

// HoldTimeout returns the hold duration as a time.Duration
func (c *CapacityConfig) HoldTimeout() time.Duration {
	return time.Duration(c.HoldTimeoutMinutes) * time.Minute
}
