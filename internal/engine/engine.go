package engine

import (
	"context"
	"fmt"

	"reservely/internal/audit"
	"reservely/internal/capacity"
	"reservely/internal/events"
	"reservely/internal/groups"
	"reservely/internal/holds"
	"reservely/internal/identity"
	"reservely/internal/ledger"
	"reservely/internal/shared/config"
	"reservely/internal/shared/database"
	"reservely/pkg/cache"
	"reservely/pkg/logger"
)

// Engine wires the reservation core together and owns its background
// workers. Registration, payment, and admin surfaces call into the exposed
// services; the engine itself has no transport of its own.
type Engine struct {
	Events   events.Repository
	Identity identity.Repository
	Capacity capacity.Service
	Ledger   ledger.Service
	Holds    holds.Manager
	Groups   groups.Coordinator

	sweep     *holds.JobProcessor
	publisher *audit.Publisher
	producer  audit.SinkProducer
	log       *logger.Logger
}

// New builds the engine from its configuration and connections
func New(cfg *config.Config, db *database.DB, log *logger.Logger) (*Engine, error) {
	cacheService := cache.NewService(db.Redis)

	eventsRepo := events.NewRepository(db.PostgreSQL)
	identityRepo := identity.NewRepository(db.PostgreSQL)
	capacityRepo := capacity.NewRepository(db.PostgreSQL)
	ledgerRepo := ledger.NewRepository(db.PostgreSQL)
	holdsRepo := holds.NewRepository(db.PostgreSQL)
	groupsRepo := groups.NewRepository(db.PostgreSQL)
	auditRecorder := audit.NewRecorder(db.PostgreSQL)

	lockTimeout := cfg.Database.LockTimeout
	capacityService := capacity.NewService(db.PostgreSQL, capacityRepo, eventsRepo, auditRecorder, cacheService, log, lockTimeout)
	ledgerService := ledger.NewService(db.PostgreSQL, ledgerRepo, capacityRepo, auditRecorder, cacheService, log, lockTimeout, cfg.Redis.CapacityViewTTL)
	holdManager := holds.NewManager(db.PostgreSQL, holdsRepo, ledgerService, capacityRepo, auditRecorder, log, lockTimeout)
	groupCoordinator := groups.NewCoordinator(db.PostgreSQL, groupsRepo, holdManager, ledgerService, eventsRepo, identityRepo, auditRecorder, log, lockTimeout, cfg.Holds.MaxGroupSize)

	sinkProducer, err := audit.NewKafkaSinkProducer(cfg.Kafka)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit sink producer: %w", err)
	}

	sweep := holds.NewJobProcessor(holdManager, &holds.JobConfig{
		SweepInterval: cfg.Jobs.SweepInterval,
		BatchSize:     cfg.Jobs.SweepBatchSize,
	}, log)
	publisher := audit.NewPublisher(auditRecorder, sinkProducer, log, cfg.Jobs.OutboxInterval, cfg.Jobs.OutboxBatchSize)

	return &Engine{
		Events:    eventsRepo,
		Identity:  identityRepo,
		Capacity:  capacityService,
		Ledger:    ledgerService,
		Holds:     holdManager,
		Groups:    groupCoordinator,
		sweep:     sweep,
		publisher: publisher,
		producer:  sinkProducer,
		log:       log,
	}, nil
}

// Start launches the expiry sweep and the audit outbox publisher
func (e *Engine) Start(ctx context.Context) {
	e.sweep.Start(ctx)
	e.publisher.Start(ctx)
}

// Stop shuts down the background workers and the audit sink
func (e *Engine) Stop() error {
	e.sweep.Stop()
	e.publisher.Stop()
	if err := e.producer.Close(); err != nil {
		return fmt.Errorf("failed to close audit sink producer: %w", err)
	}
	return nil
}
