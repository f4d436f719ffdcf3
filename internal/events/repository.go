package events

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrNoDefaultAccessType = errors.New("event has no default access type")
	ErrAccessTypeNotFound  = errors.New("access type not found for event")
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	GetDefaultAccessType(ctx context.Context, eventID uuid.UUID) (*AccessType, error)
	GetAccessType(ctx context.Context, eventID, accessTypeID uuid.UUID) (*AccessType, error)
	Create(ctx context.Context, event *Event) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	var event Event
	err := r.db.WithContext(ctx).Preload("AccessTypes").Where("id = ?", id).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Event{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *repository) GetDefaultAccessType(ctx context.Context, eventID uuid.UUID) (*AccessType, error) {
	var accessType AccessType
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND is_default = ?", eventID, true).
		First(&accessType).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoDefaultAccessType
	}
	if err != nil {
		return nil, err
	}
	return &accessType, nil
}

func (r *repository) GetAccessType(ctx context.Context, eventID, accessTypeID uuid.UUID) (*AccessType, error) {
	var accessType AccessType
	err := r.db.WithContext(ctx).
		Where("id = ? AND event_id = ?", accessTypeID, eventID).
		First(&accessType).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccessTypeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &accessType, nil
}

func (r *repository) Create(ctx context.Context, event *Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}
