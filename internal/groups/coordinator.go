package groups

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"reservely/internal/audit"
	"reservely/internal/events"
	"reservely/internal/holds"
	"reservely/internal/identity"
	"reservely/internal/ledger"
	"reservely/internal/shared/txn"
	"reservely/pkg/logger"
)

// Coordinator commits multi-participant reservations atomically: all holds,
// none, or an explicitly permitted partial subset.
type Coordinator interface {
	Reserve(ctx context.Context, req GroupReservationRequest) (*ReservationResult, error)
	GetReservation(ctx context.Context, id uuid.UUID) (*GroupReservation, error)
}

type coordinator struct {
	db         *gorm.DB
	repo       Repository
	holds      holds.Manager
	ledger     ledger.Service
	events     events.Repository
	identities identity.Repository
	auditor    audit.Recorder
	log        *logger.Logger

	lockTimeout  time.Duration
	maxGroupSize int
}

// NewCoordinator creates a new group reservation coordinator
func NewCoordinator(db *gorm.DB, repo Repository, holdMgr holds.Manager, ledgerSvc ledger.Service, eventsRepo events.Repository, identities identity.Repository, auditor audit.Recorder, log *logger.Logger, lockTimeout time.Duration, maxGroupSize int) Coordinator {
	return &coordinator{
		db:           db,
		repo:         repo,
		holds:        holdMgr,
		ledger:       ledgerSvc,
		events:       eventsRepo,
		identities:   identities,
		auditor:      auditor,
		log:          log,
		lockTimeout:  lockTimeout,
		maxGroupSize: maxGroupSize,
	}
}

// Reserve runs the group booking as one transaction. Ledger rows are locked
// in ascending access type order so two overlapping group reservations
// cannot deadlock each other.
func (c *coordinator) Reserve(ctx context.Context, req GroupReservationRequest) (*ReservationResult, error) {
	if err := c.validate(ctx, req); err != nil {
		return nil, err
	}

	resolved, err := c.resolveAccessTypes(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var result *ReservationResult
	err = txn.RunInTx(ctx, c.db, c.lockTimeout, func(tx *gorm.DB) error {
		counters, err := c.lockAndCount(tx, req.EventID, resolved)
		if err != nil {
			return err
		}

		granted, failed, shortfalls := partition(resolved, counters)

		if len(failed) > 0 && !req.AllowPartial {
			return &GroupReservationFailedError{
				EventID:    req.EventID,
				FailedRefs: participantRefs(failed),
				Shortfalls: shortfalls,
			}
		}

		reservation := &GroupReservation{
			EventID:        req.EventID,
			GroupLeaderRef: req.GroupLeaderRef,
			AllowPartial:   req.AllowPartial,
			Status:         StatusCommitted,
			FailedRefs:     participantRefs(failed),
		}
		if len(failed) > 0 {
			reservation.Status = StatusPartial
		}
		if err := c.repo.CreateTx(tx, reservation); err != nil {
			return fmt.Errorf("failed to create group reservation: %w", err)
		}

		outcomes := make([]ParticipantOutcome, 0, len(resolved))
		for i := range granted {
			hold, err := c.holds.CreateHoldTx(tx, holds.CreateHoldRequest{
				EventID:            req.EventID,
				AccessTypeID:       granted[i].accessTypeID,
				HolderRef:          granted[i].ref,
				GroupReservationID: &reservation.ID,
			}, now)
			if err != nil {
				// Should not happen under the locks taken above; roll
				// back the whole group rather than commit a partial one
				return fmt.Errorf("hold creation failed mid-group: %w", err)
			}
			holdID := hold.ID
			outcomes = append(outcomes, ParticipantOutcome{
				ParticipantRef: granted[i].ref,
				AccessTypeID:   granted[i].accessTypeID,
				Granted:        true,
				HoldID:         &holdID,
			})
			reservation.Holds = append(reservation.Holds, *hold)
		}
		for i := range failed {
			outcomes = append(outcomes, ParticipantOutcome{
				ParticipantRef: failed[i].ref,
				AccessTypeID:   failed[i].accessTypeID,
				Granted:        false,
			})
		}

		if err := c.auditor.RecordTx(tx, audit.NewGroupReservationCreated(req.EventID, reservation.ID, participantRefs(granted))); err != nil {
			return err
		}
		if len(failed) > 0 {
			evt := audit.NewGroupReservationFailed(req.EventID, participantRefs(failed), shortfallsByString(shortfalls))
			if err := c.auditor.RecordTx(tx, evt); err != nil {
				return err
			}
		}

		result = &ReservationResult{Reservation: reservation, Outcomes: outcomes}
		return nil
	})
	if err != nil {
		var failedErr *GroupReservationFailedError
		if errors.As(err, &failedErr) {
			c.recordFailure(ctx, failedErr)
		}
		return nil, err
	}

	c.ledger.InvalidateViews(ctx, req.EventID)
	c.log.LogGroupReservation(ctx, result.Reservation.ID.String(), req.EventID.String(),
		len(result.Reservation.Holds), len(result.Reservation.FailedRefs))
	return result, nil
}

// GetReservation loads a reservation with its holds
func (c *coordinator) GetReservation(ctx context.Context, id uuid.UUID) (*GroupReservation, error) {
	return c.repo.GetByID(ctx, id)
}

// validate collects every violation before rejecting, so the caller can fix
// the whole request at once
func (c *coordinator) validate(ctx context.Context, req GroupReservationRequest) error {
	violations := make([]string, 0)

	exists, err := c.events.Exists(ctx, req.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event: %w", err)
	}
	if !exists {
		violations = append(violations, fmt.Sprintf("event %s does not exist", req.EventID))
	}

	leaderKnown, err := c.identities.Exists(ctx, req.GroupLeaderRef)
	if err != nil {
		return fmt.Errorf("failed to check group leader: %w", err)
	}
	if !leaderKnown {
		violations = append(violations, fmt.Sprintf("group leader %s is not a known participant", req.GroupLeaderRef))
	}

	if len(req.Participants) == 0 {
		violations = append(violations, "group must contain at least one participant")
	}
	if len(req.Participants) > c.maxGroupSize {
		violations = append(violations, fmt.Sprintf("group size %d exceeds maximum of %d", len(req.Participants), c.maxGroupSize))
	}

	seen := make(map[uuid.UUID]bool, len(req.Participants))
	refs := make([]uuid.UUID, 0, len(req.Participants))
	for _, p := range req.Participants {
		if seen[p.ParticipantRef] {
			violations = append(violations, fmt.Sprintf("duplicate participant %s", p.ParticipantRef))
			continue
		}
		seen[p.ParticipantRef] = true
		refs = append(refs, p.ParticipantRef)
	}

	if len(refs) > 0 {
		known, err := c.identities.ResolveMany(ctx, refs)
		if err != nil {
			return fmt.Errorf("failed to resolve participants: %w", err)
		}
		for _, ref := range refs {
			if !known[ref] {
				violations = append(violations, fmt.Sprintf("participant %s is not a known identity", ref))
			}
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

type resolvedParticipant struct {
	ref          uuid.UUID
	accessTypeID uuid.UUID
}

// resolveAccessTypes fills in the event's default general-access type for
// participants that did not name one, and verifies named ones belong to the
// event
func (c *coordinator) resolveAccessTypes(ctx context.Context, req GroupReservationRequest) ([]resolvedParticipant, error) {
	var defaultID *uuid.UUID
	violations := make([]string, 0)
	checked := make(map[uuid.UUID]bool)

	resolved := make([]resolvedParticipant, 0, len(req.Participants))
	for _, p := range req.Participants {
		if p.AccessTypeID == nil {
			if defaultID == nil {
				accessType, err := c.events.GetDefaultAccessType(ctx, req.EventID)
				if err != nil {
					return nil, err
				}
				defaultID = &accessType.ID
			}
			resolved = append(resolved, resolvedParticipant{ref: p.ParticipantRef, accessTypeID: *defaultID})
			continue
		}

		if !checked[*p.AccessTypeID] {
			if _, err := c.events.GetAccessType(ctx, req.EventID, *p.AccessTypeID); err != nil {
				if errors.Is(err, events.ErrAccessTypeNotFound) {
					violations = append(violations, fmt.Sprintf("access type %s does not belong to event %s", *p.AccessTypeID, req.EventID))
					checked[*p.AccessTypeID] = true
					continue
				}
				return nil, err
			}
			checked[*p.AccessTypeID] = true
		}
		resolved = append(resolved, resolvedParticipant{ref: p.ParticipantRef, accessTypeID: *p.AccessTypeID})
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	return resolved, nil
}

// lockAndCount locks every touched ledger row in ascending access type order
// and returns the availability snapshot the partition works from
func (c *coordinator) lockAndCount(tx *gorm.DB, eventID uuid.UUID, resolved []resolvedParticipant) (map[uuid.UUID]int, error) {
	distinct := make(map[uuid.UUID]bool)
	order := make([]uuid.UUID, 0)
	for _, p := range resolved {
		if !distinct[p.accessTypeID] {
			distinct[p.accessTypeID] = true
			order = append(order, p.accessTypeID)
		}
	}
	sort.Slice(order, func(i, j int) bool {
		return bytes.Compare(order[i][:], order[j][:]) < 0
	})

	counters := make(map[uuid.UUID]int, len(order))
	for _, accessTypeID := range order {
		available, err := c.ledger.AvailableTx(tx, eventID, accessTypeID)
		if err != nil {
			return nil, err
		}
		counters[accessTypeID] = available
	}
	return counters, nil
}

// partition walks participants in request order, granting slots greedily
// while each access type's counter lasts. The order is the tie-break: when
// capacity runs out, the later-listed participants miss out.
func partition(resolved []resolvedParticipant, counters map[uuid.UUID]int) (granted, failed []resolvedParticipant, shortfalls map[uuid.UUID]int) {
	shortfalls = make(map[uuid.UUID]int)
	for _, p := range resolved {
		if counters[p.accessTypeID] > 0 {
			counters[p.accessTypeID]--
			granted = append(granted, p)
			continue
		}
		failed = append(failed, p)
		shortfalls[p.accessTypeID]++
	}
	return granted, failed, shortfalls
}

// recordFailure emits the all-or-nothing failure to the audit sink after the
// rollback, in its own small write
func (c *coordinator) recordFailure(ctx context.Context, failedErr *GroupReservationFailedError) {
	evt := audit.NewGroupReservationFailed(failedErr.EventID, failedErr.FailedRefs, shortfallsByString(failedErr.Shortfalls))
	if err := c.auditor.RecordTx(c.db.WithContext(ctx), evt); err != nil {
		c.log.ErrorWithContext(ctx, "failed to record group reservation failure", err,
			map[string]interface{}{"event_id": failedErr.EventID.String()})
	}
}

func participantRefs(participants []resolvedParticipant) []uuid.UUID {
	refs := make([]uuid.UUID, 0, len(participants))
	for _, p := range participants {
		refs = append(refs, p.ref)
	}
	return refs
}

func shortfallsByString(shortfalls map[uuid.UUID]int) map[string]int {
	out := make(map[string]int, len(shortfalls))
	for accessTypeID, n := range shortfalls {
		out[accessTypeID.String()] = n
	}
	return out
}
