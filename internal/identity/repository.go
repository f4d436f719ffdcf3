package identity

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	// ResolveMany returns the subset of ids that resolve to active
	// participants. Callers diff against the input to find unknown refs.
	ResolveMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error)
	Create(ctx context.Context, participant *Participant) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Participant{}).
		Where("id = ? AND is_active = ?", id, true).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ResolveMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]bool{}, nil
	}

	var found []uuid.UUID
	err := r.db.WithContext(ctx).Model(&Participant{}).
		Where("id IN ? AND is_active = ?", ids, true).
		Pluck("id", &found).Error
	if err != nil {
		return nil, err
	}

	resolved := make(map[uuid.UUID]bool, len(found))
	for _, id := range found {
		resolved[id] = true
	}
	return resolved, nil
}

func (r *repository) Create(ctx context.Context, participant *Participant) error {
	return r.db.WithContext(ctx).Create(participant).Error
}
