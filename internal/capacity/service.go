package capacity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"reservely/internal/audit"
	"reservely/internal/events"
	"reservely/internal/shared/constants"
	"reservely/internal/shared/txn"
	"reservely/pkg/cache"
	"reservely/pkg/logger"
)

// CreateConfigRequest is the administrator input for configuring capacity
type CreateConfigRequest struct {
	EventID               string `json:"event_id" validate:"required,uuid"`
	AccessTypeID          string `json:"access_type_id" validate:"required,uuid"`
	TotalCapacity         int    `json:"total_capacity" validate:"gte=0"`
	OverbookingPercentage int    `json:"overbooking_percentage"`
	HoldTimeoutMinutes    int    `json:"hold_timeout_minutes" validate:"gt=0"`
	AlertAdmins           bool   `json:"alert_admins"`
	NotifyUsers           bool   `json:"notify_users"`
	OfferAlternatives     bool   `json:"offer_alternatives"`
}

// Service defines the contract for capacity configuration management
type Service interface {
	CreateConfig(ctx context.Context, req CreateConfigRequest) (*CapacityConfig, error)
	AdjustOverbooking(ctx context.Context, configID uuid.UUID, percentage int) (*CapacityConfig, error)
	DeactivateConfig(ctx context.Context, configID uuid.UUID) error
	GetActiveConfig(ctx context.Context, eventID, accessTypeID uuid.UUID) (*CapacityConfig, error)
	ListConfigs(ctx context.Context, eventID uuid.UUID) ([]CapacityConfig, error)
}

type service struct {
	db       *gorm.DB
	repo     Repository
	events   events.Repository
	auditor  audit.Recorder
	cache    cache.Service
	log      *logger.Logger
	validate *validator.Validate

	lockTimeout time.Duration
}

// NewService creates a new capacity configuration service
func NewService(db *gorm.DB, repo Repository, eventsRepo events.Repository, auditor audit.Recorder, cacheSvc cache.Service, log *logger.Logger, lockTimeout time.Duration) Service {
	return &service{
		db:          db,
		repo:        repo,
		events:      eventsRepo,
		auditor:     auditor,
		cache:       cacheSvc,
		log:         log,
		validate:    validator.New(),
		lockTimeout: lockTimeout,
	}
}

// CreateConfig validates and writes a new active capacity configuration,
// soft-deactivating any predecessor for the same (event, access type)
func (s *service) CreateConfig(ctx context.Context, req CreateConfigRequest) (*CapacityConfig, error) {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			// Report every violation, not just the first, so the
			// administrator can fix the whole config at once
			reasons := make([]string, 0, len(verrs))
			for _, ve := range verrs {
				reasons = append(reasons, ve.Field()+" failed "+ve.Tag()+" validation")
			}
			return nil, &InvalidPolicyError{Reason: strings.Join(reasons, "; ")}
		}
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := validateOverbooking(req.OverbookingPercentage); err != nil {
		return nil, err
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		return nil, &InvalidPolicyError{Field: "EventID", Reason: "is not a valid uuid"}
	}
	accessTypeID, err := uuid.Parse(req.AccessTypeID)
	if err != nil {
		return nil, &InvalidPolicyError{Field: "AccessTypeID", Reason: "is not a valid uuid"}
	}

	// The access type must belong to the event being configured
	if _, err := s.events.GetAccessType(ctx, eventID, accessTypeID); err != nil {
		return nil, fmt.Errorf("failed to resolve access type: %w", err)
	}

	config := &CapacityConfig{
		EventID:               eventID,
		AccessTypeID:          accessTypeID,
		TotalCapacity:         req.TotalCapacity,
		OverbookingPercentage: req.OverbookingPercentage,
		HoldTimeoutMinutes:    req.HoldTimeoutMinutes,
		AlertAdmins:           req.AlertAdmins,
		NotifyUsers:           req.NotifyUsers,
		OfferAlternatives:     req.OfferAlternatives,
	}

	err = txn.RunInTx(ctx, s.db, s.lockTimeout, func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, config); err != nil {
			return fmt.Errorf("failed to create capacity config: %w", err)
		}
		return s.auditor.RecordTx(tx, audit.NewCapacityConfigChanged(
			eventID, accessTypeID, config.ID, config.TotalCapacity, config.OverbookingPercentage))
	})
	if err != nil {
		return nil, err
	}

	s.invalidateViews(ctx, eventID)
	return config, nil
}

// AdjustOverbooking changes the overbooking allowance on an active config
func (s *service) AdjustOverbooking(ctx context.Context, configID uuid.UUID, percentage int) (*CapacityConfig, error) {
	if err := validateOverbooking(percentage); err != nil {
		return nil, err
	}

	config, err := s.repo.GetByID(ctx, configID)
	if err != nil {
		return nil, err
	}
	if !config.IsActive {
		return nil, fmt.Errorf("cannot adjust deactivated config %s: %w", configID, ErrConfigNotFound)
	}

	config.OverbookingPercentage = percentage
	err = txn.RunInTx(ctx, s.db, s.lockTimeout, func(tx *gorm.DB) error {
		if err := s.repo.UpdateTx(tx, config); err != nil {
			return fmt.Errorf("failed to update capacity config: %w", err)
		}
		return s.auditor.RecordTx(tx, audit.NewCapacityConfigChanged(
			config.EventID, config.AccessTypeID, config.ID, config.TotalCapacity, percentage))
	})
	if err != nil {
		return nil, err
	}

	s.invalidateViews(ctx, config.EventID)
	return config, nil
}

// DeactivateConfig soft-deactivates a config; it is never physically deleted
func (s *service) DeactivateConfig(ctx context.Context, configID uuid.UUID) error {
	config, err := s.repo.GetByID(ctx, configID)
	if err != nil {
		return err
	}

	err = txn.RunInTx(ctx, s.db, s.lockTimeout, func(tx *gorm.DB) error {
		return s.repo.DeactivateTx(tx, configID)
	})
	if err != nil {
		return err
	}

	s.invalidateViews(ctx, config.EventID)
	return nil
}

func (s *service) GetActiveConfig(ctx context.Context, eventID, accessTypeID uuid.UUID) (*CapacityConfig, error) {
	return s.repo.GetActive(ctx, eventID, accessTypeID)
}

func (s *service) ListConfigs(ctx context.Context, eventID uuid.UUID) ([]CapacityConfig, error) {
	return s.repo.ListByEvent(ctx, eventID)
}

// validateOverbooking enforces the allowed [0, 50] range. Out-of-range
// values are rejected, not clamped.
func validateOverbooking(percentage int) error {
	if percentage < MinOverbookingPercentage || percentage > MaxOverbookingPercentage {
		return &InvalidPolicyError{
			Field:  "OverbookingPercentage",
			Reason: fmt.Sprintf("must be between %d and %d, got %d", MinOverbookingPercentage, MaxOverbookingPercentage, percentage),
		}
	}
	return nil
}

// invalidateViews drops cached capacity views for the event after a commit
func (s *service) invalidateViews(ctx context.Context, eventID uuid.UUID) {
	if s.cache == nil {
		return
	}
	pattern := constants.BuildEventCapacityPattern(eventID.String())
	if err := s.cache.DeletePattern(ctx, pattern); err != nil {
		s.log.ErrorWithContext(ctx, "failed to invalidate capacity views", err,
			map[string]interface{}{"event_id": eventID.String()})
	}
}
