package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"reservely/internal/audit"
	"reservely/internal/capacity"
	"reservely/internal/shared/constants"
	"reservely/internal/shared/txn"
	"reservely/pkg/cache"
	"reservely/pkg/logger"
)

// ReserveOutcome reports a successful check-and-increment, including the
// config in force and any thresholds the mutation crossed.
type ReserveOutcome struct {
	Entry     *SlotLedgerEntry
	Config    *capacity.CapacityConfig
	Crossings []capacity.ThresholdCrossing
}

// Service owns all ledger arithmetic. The Tx variants compose into larger
// transactions (hold creation, group commits); the plain variants run their
// own transaction and invalidate read-side views afterwards.
type Service interface {
	ReserveTx(tx *gorm.DB, eventID, accessTypeID uuid.UUID, n int) (*ReserveOutcome, error)
	ReleaseTx(tx *gorm.DB, eventID, accessTypeID uuid.UUID, n int) error
	ConfirmTx(tx *gorm.DB, eventID, accessTypeID uuid.UUID, n int) (*ReserveOutcome, error)
	// AvailableTx locks the ledger row and returns its availability. Callers
	// that read several rows must call it in a consistent row order.
	AvailableTx(tx *gorm.DB, eventID, accessTypeID uuid.UUID) (int, error)

	Reserve(ctx context.Context, eventID, accessTypeID uuid.UUID, n int) (*ReserveOutcome, error)
	Release(ctx context.Context, eventID, accessTypeID uuid.UUID, n int) error
	Confirm(ctx context.Context, eventID, accessTypeID uuid.UUID, n int) error

	AvailableSlots(ctx context.Context, eventID, accessTypeID uuid.UUID) (int, error)
	GetSnapshot(ctx context.Context, eventID, accessTypeID uuid.UUID) (*Snapshot, error)
	InvalidateViews(ctx context.Context, eventID uuid.UUID)
}

type service struct {
	db      *gorm.DB
	repo    Repository
	configs capacity.Repository
	auditor audit.Recorder
	cache   cache.Service
	log     *logger.Logger

	lockTimeout time.Duration
	viewTTL     time.Duration
}

// NewService creates a new slot ledger service
func NewService(db *gorm.DB, repo Repository, configs capacity.Repository, auditor audit.Recorder, cacheSvc cache.Service, log *logger.Logger, lockTimeout, viewTTL time.Duration) Service {
	return &service{
		db:          db,
		repo:        repo,
		configs:     configs,
		auditor:     auditor,
		cache:       cacheSvc,
		log:         log,
		lockTimeout: lockTimeout,
		viewTTL:     viewTTL,
	}
}

// ReserveTx atomically checks availability and increments the held count
// within the caller's transaction. The check and the increment happen under
// the same row lock, so concurrent reservers against one (event, access
// type) pair serialize instead of both observing stale availability.
func (s *service) ReserveTx(tx *gorm.DB, eventID, accessTypeID uuid.UUID, n int) (*ReserveOutcome, error) {
	if n <= 0 {
		return nil, fmt.Errorf("reserve count must be positive, got %d", n)
	}

	config, err := s.configs.GetActiveTx(tx, eventID, accessTypeID)
	if err != nil {
		if errors.Is(err, capacity.ErrConfigNotFound) {
			return nil, ErrCapacityNotConfigured
		}
		return nil, fmt.Errorf("failed to load capacity config: %w", err)
	}

	entry, err := s.repo.GetForUpdate(tx, eventID, accessTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock ledger row: %w", err)
	}

	available := entry.Available(config.EffectiveCapacity())
	if available < n {
		return nil, &InsufficientCapacityError{
			EventID:      eventID,
			AccessTypeID: accessTypeID,
			Requested:    n,
			Available:    available,
		}
	}

	prevUsed := entry.Used()
	entry.HeldCount += n
	if err := s.repo.SaveTx(tx, entry); err != nil {
		return nil, fmt.Errorf("failed to update ledger: %w", err)
	}

	crossings := config.EvaluateThresholds(prevUsed, entry.Used())
	if err := s.recordCrossings(tx, config, entry, crossings); err != nil {
		return nil, err
	}

	return &ReserveOutcome{Entry: entry, Config: config, Crossings: crossings}, nil
}

// ReleaseTx returns n held slots to the pool. It never drives the held
// count negative; an attempt to do so is an internal invariant violation.
func (s *service) ReleaseTx(tx *gorm.DB, eventID, accessTypeID uuid.UUID, n int) error {
	if n <= 0 {
		return fmt.Errorf("release count must be positive, got %d", n)
	}

	entry, err := s.repo.GetForUpdate(tx, eventID, accessTypeID)
	if err != nil {
		return fmt.Errorf("failed to lock ledger row: %w", err)
	}

	if entry.HeldCount-n < 0 {
		return fmt.Errorf("ledger invariant violation: releasing %d would drive held count %d negative for event %s access type %s",
			n, entry.HeldCount, eventID, accessTypeID)
	}

	entry.HeldCount -= n
	return s.repo.SaveTx(tx, entry)
}

// ConfirmTx transfers n slots from held to confirmed. Total usage is
// unchanged, so no threshold can be crossed here; crossings fire at reserve
// time when usage actually grows.
func (s *service) ConfirmTx(tx *gorm.DB, eventID, accessTypeID uuid.UUID, n int) (*ReserveOutcome, error) {
	if n <= 0 {
		return nil, fmt.Errorf("confirm count must be positive, got %d", n)
	}

	config, err := s.configs.GetActiveTx(tx, eventID, accessTypeID)
	if err != nil {
		if errors.Is(err, capacity.ErrConfigNotFound) {
			return nil, ErrCapacityNotConfigured
		}
		return nil, fmt.Errorf("failed to load capacity config: %w", err)
	}

	entry, err := s.repo.GetForUpdate(tx, eventID, accessTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock ledger row: %w", err)
	}

	if entry.HeldCount-n < 0 {
		return nil, fmt.Errorf("ledger invariant violation: confirming %d would drive held count %d negative for event %s access type %s",
			n, entry.HeldCount, eventID, accessTypeID)
	}

	entry.HeldCount -= n
	entry.ConfirmedCount += n
	if err := s.repo.SaveTx(tx, entry); err != nil {
		return nil, fmt.Errorf("failed to update ledger: %w", err)
	}

	return &ReserveOutcome{Entry: entry, Config: config}, nil
}

// AvailableTx reads availability under the row lock, so the answer stays
// true for the rest of the caller's transaction
func (s *service) AvailableTx(tx *gorm.DB, eventID, accessTypeID uuid.UUID) (int, error) {
	config, err := s.configs.GetActiveTx(tx, eventID, accessTypeID)
	if err != nil {
		if errors.Is(err, capacity.ErrConfigNotFound) {
			return 0, ErrCapacityNotConfigured
		}
		return 0, fmt.Errorf("failed to load capacity config: %w", err)
	}

	entry, err := s.repo.GetForUpdate(tx, eventID, accessTypeID)
	if err != nil {
		return 0, fmt.Errorf("failed to lock ledger row: %w", err)
	}

	return entry.Available(config.EffectiveCapacity()), nil
}

func (s *service) Reserve(ctx context.Context, eventID, accessTypeID uuid.UUID, n int) (*ReserveOutcome, error) {
	var outcome *ReserveOutcome
	err := txn.RunInTx(ctx, s.db, s.lockTimeout, func(tx *gorm.DB) error {
		var err error
		outcome, err = s.ReserveTx(tx, eventID, accessTypeID, n)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateViews(ctx, eventID)
	return outcome, nil
}

func (s *service) Release(ctx context.Context, eventID, accessTypeID uuid.UUID, n int) error {
	err := txn.RunInTx(ctx, s.db, s.lockTimeout, func(tx *gorm.DB) error {
		return s.ReleaseTx(tx, eventID, accessTypeID, n)
	})
	if err != nil {
		return err
	}

	s.InvalidateViews(ctx, eventID)
	return nil
}

func (s *service) Confirm(ctx context.Context, eventID, accessTypeID uuid.UUID, n int) error {
	err := txn.RunInTx(ctx, s.db, s.lockTimeout, func(tx *gorm.DB) error {
		_, err := s.ConfirmTx(tx, eventID, accessTypeID, n)
		return err
	})
	if err != nil {
		return err
	}

	s.InvalidateViews(ctx, eventID)
	return nil
}

// AvailableSlots returns max(0, effectiveCapacity - confirmed - held)
func (s *service) AvailableSlots(ctx context.Context, eventID, accessTypeID uuid.UUID) (int, error) {
	config, err := s.configs.GetActive(ctx, eventID, accessTypeID)
	if err != nil {
		if errors.Is(err, capacity.ErrConfigNotFound) {
			return 0, ErrCapacityNotConfigured
		}
		return 0, err
	}

	entry, err := s.repo.Get(ctx, eventID, accessTypeID)
	if err != nil {
		return 0, err
	}

	return entry.Available(config.EffectiveCapacity()), nil
}

// GetSnapshot serves the read-side capacity view cache-aside
func (s *service) GetSnapshot(ctx context.Context, eventID, accessTypeID uuid.UUID) (*Snapshot, error) {
	fetch := func() (interface{}, error) {
		return s.buildSnapshot(ctx, eventID, accessTypeID)
	}

	var snapshot Snapshot
	if s.cache != nil {
		key := constants.BuildAvailabilityKey(eventID.String(), accessTypeID.String())
		if err := s.cache.GetOrSet(ctx, key, s.viewTTL, fetch, &snapshot); err != nil {
			return nil, err
		}
		return &snapshot, nil
	}

	return s.buildSnapshot(ctx, eventID, accessTypeID)
}

func (s *service) buildSnapshot(ctx context.Context, eventID, accessTypeID uuid.UUID) (*Snapshot, error) {
	config, err := s.configs.GetActive(ctx, eventID, accessTypeID)
	if err != nil {
		if errors.Is(err, capacity.ErrConfigNotFound) {
			return nil, ErrCapacityNotConfigured
		}
		return nil, err
	}

	entry, err := s.repo.Get(ctx, eventID, accessTypeID)
	if err != nil {
		return nil, err
	}

	effective := config.EffectiveCapacity()
	return &Snapshot{
		EventID:           eventID,
		AccessTypeID:      accessTypeID,
		TotalCapacity:     config.TotalCapacity,
		EffectiveCapacity: effective,
		ConfirmedCount:    entry.ConfirmedCount,
		HeldCount:         entry.HeldCount,
		AvailableSlots:    entry.Available(effective),
		UtilizationRatio:  config.UtilizationRatio(entry.Used()),
	}, nil
}

// InvalidateViews drops cached capacity views for the event after a
// committed ledger mutation
func (s *service) InvalidateViews(ctx context.Context, eventID uuid.UUID) {
	if s.cache == nil {
		return
	}
	pattern := constants.BuildEventCapacityPattern(eventID.String())
	if err := s.cache.DeletePattern(ctx, pattern); err != nil {
		s.log.ErrorWithContext(ctx, "failed to invalidate capacity views", err,
			map[string]interface{}{"event_id": eventID.String()})
	}
}

// recordCrossings writes ThresholdCrossed audit events in the same
// transaction as the mutation that crossed them
func (s *service) recordCrossings(tx *gorm.DB, config *capacity.CapacityConfig, entry *SlotLedgerEntry, crossings []capacity.ThresholdCrossing) error {
	for _, crossing := range crossings {
		actions := make([]string, 0, len(crossing.Actions))
		for _, action := range crossing.Actions {
			actions = append(actions, string(action))
		}
		evt := audit.NewThresholdCrossed(entry.EventID, entry.AccessTypeID, crossing.Boundary, actions, entry.Used(), config.TotalCapacity)
		if err := s.auditor.RecordTx(tx, evt); err != nil {
			return fmt.Errorf("failed to record threshold crossing: %w", err)
		}
	}
	return nil
}
