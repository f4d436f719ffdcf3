package holds

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrHoldNotFound = errors.New("hold not found")
	// ErrHoldNotActive marks an operation on a hold already in a terminal
	// state. Safe duplicates (double release) are absorbed by the caller.
	ErrHoldNotActive = errors.New("hold is not active")
)

type Repository interface {
	CreateTx(tx *gorm.DB, hold *Hold) error
	GetByID(ctx context.Context, id uuid.UUID) (*Hold, error)
	// TransitionTx moves an ACTIVE hold to a terminal state. It reports
	// whether this call won the transition, so concurrent expirers and
	// releasers decrement the ledger exactly once.
	TransitionTx(tx *gorm.DB, id uuid.UUID, next HoldState) (bool, error)
	ExtendTx(tx *gorm.DB, id uuid.UUID, expiresAt time.Time) (bool, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]Hold, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]Hold, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateTx(tx *gorm.DB, hold *Hold) error {
	return tx.Create(hold).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Hold, error) {
	var hold Hold
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&hold).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrHoldNotFound
	}
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

func (r *repository) TransitionTx(tx *gorm.DB, id uuid.UUID, next HoldState) (bool, error) {
	if !StateActive.CanTransitionTo(next) {
		return false, ErrHoldNotActive
	}

	result := tx.Model(&Hold{}).
		Where("id = ? AND state = ?", id, StateActive).
		Update("state", next)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ExtendTx(tx *gorm.DB, id uuid.UUID, expiresAt time.Time) (bool, error) {
	result := tx.Model(&Hold{}).
		Where("id = ? AND state = ?", id, StateActive).
		Update("expires_at", expiresAt)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]Hold, error) {
	var holds []Hold
	err := r.db.WithContext(ctx).
		Where("state = ? AND expires_at <= ?", StateActive, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&holds).Error
	return holds, err
}

func (r *repository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]Hold, error) {
	var holds []Hold
	err := r.db.WithContext(ctx).
		Where("group_reservation_id = ?", groupID).
		Order("created_at ASC").
		Find(&holds).Error
	return holds, err
}
