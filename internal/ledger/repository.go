package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	// GetForUpdate locks the ledger row for the pair within the open
	// transaction, creating it on first use. Concurrent reservers against
	// the same pair serialize here.
	GetForUpdate(tx *gorm.DB, eventID, accessTypeID uuid.UUID) (*SlotLedgerEntry, error)
	SaveTx(tx *gorm.DB, entry *SlotLedgerEntry) error
	Get(ctx context.Context, eventID, accessTypeID uuid.UUID) (*SlotLedgerEntry, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]SlotLedgerEntry, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetForUpdate(tx *gorm.DB, eventID, accessTypeID uuid.UUID) (*SlotLedgerEntry, error) {
	var entry SlotLedgerEntry
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("event_id = ? AND access_type_id = ?", eventID, accessTypeID).
		First(&entry).Error
	if err == nil {
		return &entry, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// First touch of this pair: create the row, then lock it. On a
	// concurrent create the unique constraint makes one insert a no-op and
	// both writers lock the surviving row.
	fresh := SlotLedgerEntry{EventID: eventID, AccessTypeID: accessTypeID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
		return nil, err
	}

	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("event_id = ? AND access_type_id = ?", eventID, accessTypeID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) SaveTx(tx *gorm.DB, entry *SlotLedgerEntry) error {
	return tx.Save(entry).Error
}

func (r *repository) Get(ctx context.Context, eventID, accessTypeID uuid.UUID) (*SlotLedgerEntry, error) {
	var entry SlotLedgerEntry
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND access_type_id = ?", eventID, accessTypeID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// No row yet means nothing reserved or confirmed
		return &SlotLedgerEntry{EventID: eventID, AccessTypeID: accessTypeID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]SlotLedgerEntry, error) {
	var entries []SlotLedgerEntry
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("access_type_id ASC").
		Find(&entries).Error
	return entries, err
}
