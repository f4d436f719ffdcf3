package capacity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	// GetActiveTx reads the single active config for the pair inside an
	// open transaction, so reservation paths see a consistent config.
	GetActiveTx(tx *gorm.DB, eventID, accessTypeID uuid.UUID) (*CapacityConfig, error)
	GetActive(ctx context.Context, eventID, accessTypeID uuid.UUID) (*CapacityConfig, error)
	GetByID(ctx context.Context, id uuid.UUID) (*CapacityConfig, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]CapacityConfig, error)
	// CreateTx deactivates any currently-active config for the pair and
	// inserts the replacement in the same transaction.
	CreateTx(tx *gorm.DB, config *CapacityConfig) error
	UpdateTx(tx *gorm.DB, config *CapacityConfig) error
	DeactivateTx(tx *gorm.DB, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetActiveTx(tx *gorm.DB, eventID, accessTypeID uuid.UUID) (*CapacityConfig, error) {
	var config CapacityConfig
	err := tx.Where("event_id = ? AND access_type_id = ? AND is_active = ?", eventID, accessTypeID, true).
		First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func (r *repository) GetActive(ctx context.Context, eventID, accessTypeID uuid.UUID) (*CapacityConfig, error) {
	return r.GetActiveTx(r.db.WithContext(ctx), eventID, accessTypeID)
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*CapacityConfig, error) {
	var config CapacityConfig
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func (r *repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]CapacityConfig, error) {
	var configs []CapacityConfig
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Find(&configs).Error
	return configs, err
}

func (r *repository) CreateTx(tx *gorm.DB, config *CapacityConfig) error {
	// Soft-deactivate the superseded config; configs are never deleted
	now := time.Now().UTC()
	err := tx.Model(&CapacityConfig{}).
		Where("event_id = ? AND access_type_id = ? AND is_active = ?", config.EventID, config.AccessTypeID, true).
		Updates(map[string]interface{}{"is_active": false, "deactivated_at": now}).Error
	if err != nil {
		return err
	}

	config.IsActive = true
	return tx.Create(config).Error
}

func (r *repository) UpdateTx(tx *gorm.DB, config *CapacityConfig) error {
	return tx.Save(config).Error
}

func (r *repository) DeactivateTx(tx *gorm.DB, id uuid.UUID) error {
	now := time.Now().UTC()
	result := tx.Model(&CapacityConfig{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{"is_active": false, "deactivated_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConfigNotFound
	}
	return nil
}
