package groups

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrReservationNotFound = errors.New("group reservation not found")

type Repository interface {
	CreateTx(tx *gorm.DB, reservation *GroupReservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*GroupReservation, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]GroupReservation, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateTx(tx *gorm.DB, reservation *GroupReservation) error {
	return tx.Omit("Holds").Create(reservation).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*GroupReservation, error) {
	var reservation GroupReservation
	err := r.db.WithContext(ctx).
		Preload("Holds").
		Where("id = ?", id).
		First(&reservation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]GroupReservation, error) {
	var reservations []GroupReservation
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Find(&reservations).Error
	return reservations, err
}
