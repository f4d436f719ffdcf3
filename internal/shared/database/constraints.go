package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds critical database constraints for concurrency
// control. The unique ledger row index itself comes from the model's
// uniqueIndex tag during AutoMigrate; everything here must be idempotent
// because it runs on every startup.
func MigrateConstraints(db *gorm.DB) error {
	// At most one active capacity config per (event, access type)
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS unique_active_capacity_config
		ON capacity_configs (event_id, access_type_id)
		WHERE is_active = true;
	`).Error
	if err != nil {
		return err
	}

	// Counters can never be driven negative, even by a buggy writer.
	// ADD CONSTRAINT has no IF NOT EXISTS form, so re-runs are absorbed
	// via the duplicate_object handler.
	err = db.Exec(`
		DO $$
		BEGIN
			ALTER TABLE slot_ledger_entries
			ADD CONSTRAINT non_negative_counts
			CHECK (confirmed_count >= 0 AND held_count >= 0);
		EXCEPTION
			WHEN duplicate_object THEN NULL;
		END $$;
	`).Error
	if err != nil {
		return err
	}

	// Index for the expiry sweep: active holds ordered by deadline
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_holds_active_expiry
		ON holds (expires_at)
		WHERE state = 'ACTIVE';
	`).Error
	if err != nil {
		return err
	}

	// Index for the outbox publisher: unpublished entries in insertion order
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_outbox_unpublished
		ON outbox_entries (created_at)
		WHERE published_at IS NULL;
	`).Error
	if err != nil {
		return err
	}

	return nil
}
