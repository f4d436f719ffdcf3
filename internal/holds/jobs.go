package holds

import (
	"context"
	"time"

	"reservely/pkg/logger"
)

// JobProcessor runs the background sweep that reclaims expired holds
type JobProcessor struct {
	manager Manager
	config  *JobConfig
	log     *logger.Logger
	done    chan struct{}
}

// JobConfig contains configuration for background jobs
type JobConfig struct {
	SweepInterval time.Duration
	BatchSize     int
}

// DefaultJobConfig returns default job configuration
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		SweepInterval: 1 * time.Minute,
		BatchSize:     100,
	}
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(manager Manager, config *JobConfig, log *logger.Logger) *JobProcessor {
	if config == nil {
		config = DefaultJobConfig()
	}

	return &JobProcessor{
		manager: manager,
		config:  config,
		log:     log,
		done:    make(chan struct{}),
	}
}

// Start starts the expiry sweep in the background
func (jp *JobProcessor) Start(ctx context.Context) {
	jp.log.Info("starting hold expiry sweep", "interval", jp.config.SweepInterval.String(), "batch_size", jp.config.BatchSize)
	go jp.startExpirySweep(ctx)
}

// Stop stops all background jobs
func (jp *JobProcessor) Stop() {
	close(jp.done)
	jp.log.Info("hold expiry sweep stopped")
}

func (jp *JobProcessor) startExpirySweep(ctx context.Context) {
	ticker := time.NewTicker(jp.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			jp.sweepExpiredHolds(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// sweepExpiredHolds reclaims one batch of overdue holds. Expiry is safe to
// race with lazy expiry on reads; the transition guard keeps the ledger
// consistent.
func (jp *JobProcessor) sweepExpiredHolds(ctx context.Context) {
	processed, err := jp.manager.ExpireStale(ctx, jp.config.BatchSize)
	if err != nil {
		jp.log.ErrorWithContext(ctx, "hold expiry sweep failed", err, nil)
		return
	}

	if processed > 0 {
		jp.log.Info("reclaimed expired holds", "count", processed)
	}
}
