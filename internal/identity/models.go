package identity

import (
	"time"

	"github.com/google/uuid"
)

// Participant is the known identity a hold or group slot is granted to. The
// engine only resolves ids against this registry; account management lives
// elsewhere.
type Participant struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"not null" json:"name"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Participant) TableName() string {
	return "participants"
}
