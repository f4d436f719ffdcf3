package holds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"reservely/internal/audit"
	"reservely/internal/capacity"
	"reservely/internal/ledger"
	"reservely/internal/shared/txn"
	"reservely/pkg/logger"
)

// Manager is the unit of concurrency control for provisional holds. Every
// operation that changes a hold also adjusts the ledger in the same
// transaction, so counts and hold states never drift apart.
type Manager interface {
	CreateHold(ctx context.Context, req CreateHoldRequest) (*Hold, error)
	// CreateHoldTx composes into a larger transaction, e.g. a group commit
	CreateHoldTx(tx *gorm.DB, req CreateHoldRequest, now time.Time) (*Hold, error)
	ConfirmHold(ctx context.Context, holdID uuid.UUID) (*Hold, error)
	ReleaseHold(ctx context.Context, holdID uuid.UUID) error
	ExtendHold(ctx context.Context, holdID uuid.UUID) (*Hold, error)
	// GetHold reads a hold, lazily expiring it if its deadline has passed
	GetHold(ctx context.Context, holdID uuid.UUID) (*Hold, error)
	// ExpireStale reclaims a batch of overdue holds; the sweep job's entry point
	ExpireStale(ctx context.Context, batchSize int) (int, error)
}

type manager struct {
	repo    Repository
	ledger  ledger.Service
	configs capacity.Repository
	auditor audit.Recorder
	log     *logger.Logger

	// runInTx wraps every mutating operation in one database transaction
	runInTx func(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// NewManager creates a new hold manager
func NewManager(db *gorm.DB, repo Repository, ledgerSvc ledger.Service, configs capacity.Repository, auditor audit.Recorder, log *logger.Logger, lockTimeout time.Duration) Manager {
	return &manager{
		repo:    repo,
		ledger:  ledgerSvc,
		configs: configs,
		auditor: auditor,
		log:     log,
		runInTx: func(ctx context.Context, fn func(tx *gorm.DB) error) error {
			return txn.RunInTx(ctx, db, lockTimeout, fn)
		},
	}
}

// CreateHold reserves one slot and records the hold in a single transaction
func (m *manager) CreateHold(ctx context.Context, req CreateHoldRequest) (*Hold, error) {
	var hold *Hold
	err := m.runInTx(ctx, func(tx *gorm.DB) error {
		var err error
		hold, err = m.CreateHoldTx(tx, req, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}

	m.ledger.InvalidateViews(ctx, req.EventID)
	m.log.LogHoldCreated(ctx, hold.ID.String(), hold.EventID.String(), hold.HolderRef.String())
	return hold, nil
}

// CreateHoldTx delegates the capacity decision to the ledger's atomic
// check-and-increment, then persists the hold with the config's timeout
func (m *manager) CreateHoldTx(tx *gorm.DB, req CreateHoldRequest, now time.Time) (*Hold, error) {
	outcome, err := m.ledger.ReserveTx(tx, req.EventID, req.AccessTypeID, 1)
	if err != nil {
		return nil, err
	}

	hold := &Hold{
		EventID:            req.EventID,
		AccessTypeID:       req.AccessTypeID,
		HolderRef:          req.HolderRef,
		GroupReservationID: req.GroupReservationID,
		State:              StateActive,
		ExpiresAt:          now.Add(outcome.Config.HoldTimeout()),
	}
	if err := m.repo.CreateTx(tx, hold); err != nil {
		return nil, fmt.Errorf("failed to create hold: %w", err)
	}

	if err := m.auditor.RecordTx(tx, audit.NewHoldCreated(hold.EventID, hold.AccessTypeID, hold.HolderRef, hold.ID)); err != nil {
		return nil, err
	}
	return hold, nil
}

// ConfirmHold promotes an ACTIVE hold to CONFIRMED on external payment
// success, transferring its slot from held to confirmed
func (m *manager) ConfirmHold(ctx context.Context, holdID uuid.UUID) (*Hold, error) {
	hold, err := m.GetHold(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if hold.State != StateActive {
		return nil, fmt.Errorf("cannot confirm hold %s in state %s: %w", holdID, hold.State, ErrHoldNotActive)
	}

	err = m.runInTx(ctx, func(tx *gorm.DB) error {
		won, err := m.repo.TransitionTx(tx, holdID, StateConfirmed)
		if err != nil {
			return err
		}
		if !won {
			// Lost the race to a concurrent release or expiry
			return ErrHoldNotActive
		}
		if _, err := m.ledger.ConfirmTx(tx, hold.EventID, hold.AccessTypeID, 1); err != nil {
			return err
		}
		return m.auditor.RecordTx(tx, audit.NewHoldConfirmed(hold.EventID, hold.AccessTypeID, hold.HolderRef, hold.ID))
	})
	if err != nil {
		return nil, err
	}

	m.ledger.InvalidateViews(ctx, hold.EventID)
	hold.State = StateConfirmed
	return hold, nil
}

// ReleaseHold cancels an ACTIVE hold and returns its slot to the pool.
// Releasing an already-released hold is an idempotent no-op; the transition
// guard ensures the ledger is decremented at most once.
func (m *manager) ReleaseHold(ctx context.Context, holdID uuid.UUID) error {
	hold, err := m.GetHold(ctx, holdID)
	if err != nil {
		return err
	}
	switch hold.State {
	case StateReleased, StateExpired:
		// Duplicate release: the slot already went back to the pool
		return nil
	case StateConfirmed:
		return fmt.Errorf("cannot release confirmed hold %s: %w", holdID, ErrHoldNotActive)
	}

	err = m.runInTx(ctx, func(tx *gorm.DB) error {
		won, err := m.repo.TransitionTx(tx, holdID, StateReleased)
		if err != nil {
			return err
		}
		if !won {
			// A concurrent caller got there first; nothing left to undo
			return nil
		}
		if err := m.ledger.ReleaseTx(tx, hold.EventID, hold.AccessTypeID, 1); err != nil {
			return err
		}
		return m.auditor.RecordTx(tx, audit.NewHoldReleased(hold.EventID, hold.AccessTypeID, hold.HolderRef, hold.ID))
	})
	if err != nil {
		return err
	}

	m.ledger.InvalidateViews(ctx, hold.EventID)
	return nil
}

// ExtendHold pushes an ACTIVE, unexpired hold's deadline out by the
// configured timeout
func (m *manager) ExtendHold(ctx context.Context, holdID uuid.UUID) (*Hold, error) {
	hold, err := m.GetHold(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if hold.State != StateActive {
		return nil, fmt.Errorf("cannot extend hold %s in state %s: %w", holdID, hold.State, ErrHoldNotActive)
	}

	config, err := m.configs.GetActive(ctx, hold.EventID, hold.AccessTypeID)
	if err != nil {
		return nil, err
	}

	newExpiry := time.Now().UTC().Add(config.HoldTimeout())
	err = m.runInTx(ctx, func(tx *gorm.DB) error {
		won, err := m.repo.ExtendTx(tx, holdID, newExpiry)
		if err != nil {
			return err
		}
		if !won {
			return ErrHoldNotActive
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	hold.ExpiresAt = newExpiry
	return hold, nil
}

// GetHold reads a hold and applies lazy expiry: a hold whose deadline has
// passed is treated as EXPIRED, with the ledger released exactly once even
// under concurrent readers.
func (m *manager) GetHold(ctx context.Context, holdID uuid.UUID) (*Hold, error) {
	hold, err := m.repo.GetByID(ctx, holdID)
	if err != nil {
		return nil, err
	}

	if hold.IsExpired(time.Now().UTC()) {
		if err := m.expireOne(ctx, hold); err != nil {
			return nil, err
		}
		hold.State = StateExpired
	}
	return hold, nil
}

// ExpireStale proactively reclaims overdue holds in one batch
func (m *manager) ExpireStale(ctx context.Context, batchSize int) (int, error) {
	stale, err := m.repo.ListExpired(ctx, time.Now().UTC(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired holds: %w", err)
	}

	processed := 0
	for i := range stale {
		if err := m.expireOne(ctx, &stale[i]); err != nil {
			// Keep sweeping; the failed hold stays for the next pass
			m.log.ErrorWithContext(ctx, "failed to expire hold", err,
				map[string]interface{}{"hold_id": stale[i].ID.String()})
			continue
		}
		processed++
	}
	return processed, nil
}

// expireOne applies the guarded single-release shared by lazy reads and the
// sweep: only the caller that wins the ACTIVE->EXPIRED transition releases
// the slot.
func (m *manager) expireOne(ctx context.Context, hold *Hold) error {
	var won bool
	err := m.runInTx(ctx, func(tx *gorm.DB) error {
		var err error
		won, err = m.repo.TransitionTx(tx, hold.ID, StateExpired)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		if err := m.ledger.ReleaseTx(tx, hold.EventID, hold.AccessTypeID, 1); err != nil {
			return err
		}
		return m.auditor.RecordTx(tx, audit.NewHoldExpired(hold.EventID, hold.AccessTypeID, hold.HolderRef, hold.ID))
	})
	if err != nil {
		return err
	}

	if won {
		m.ledger.InvalidateViews(ctx, hold.EventID)
		m.log.LogHoldExpired(ctx, hold.ID.String(), hold.EventID.String())
	}
	return nil
}
