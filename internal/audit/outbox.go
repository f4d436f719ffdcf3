package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recorder writes audit events into the transactional outbox. RecordTx must
// be called with the same transaction that performs the state change, so an
// event exists exactly when its transition committed.
type Recorder interface {
	RecordTx(tx *gorm.DB, evt Event) error
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

type recorder struct {
	db *gorm.DB
}

func NewRecorder(db *gorm.DB) Recorder {
	return &recorder{db: db}
}

func (r *recorder) RecordTx(tx *gorm.DB, evt Event) error {
	entry, err := NewOutboxEntry(evt)
	if err != nil {
		return fmt.Errorf("failed to serialize audit event: %w", err)
	}
	return tx.Create(entry).Error
}

func (r *recorder) FetchUnpublished(ctx context.Context, limit int) ([]OutboxEntry, error) {
	var entries []OutboxEntry
	err := r.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *recorder) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&OutboxEntry{}).
		Where("id IN ?", ids).
		Update("published_at", now).Error
}
