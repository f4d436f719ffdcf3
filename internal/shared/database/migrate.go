package database

import (
	"reservely/internal/audit"
	"reservely/internal/capacity"
	"reservely/internal/events"
	"reservely/internal/groups"
	"reservely/internal/holds"
	"reservely/internal/identity"
	"reservely/internal/ledger"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&events.Event{},
		&events.AccessType{},
		&identity.Participant{},
		&capacity.CapacityConfig{},
		&ledger.SlotLedgerEntry{},
		&holds.Hold{},
		&groups.GroupReservation{},
		&audit.OutboxEntry{},
	)
}
