package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"reservely/pkg/logger"
)

// Publisher drains the transactional outbox to the sink on an independent
// schedule. Entries that fail to publish stay unpublished and are retried on
// the next tick.
type Publisher struct {
	recorder Recorder
	producer SinkProducer
	log      *logger.Logger

	interval  time.Duration
	batchSize int
	done      chan struct{}
}

// NewPublisher creates a new outbox publisher
func NewPublisher(recorder Recorder, producer SinkProducer, log *logger.Logger, interval time.Duration, batchSize int) *Publisher {
	return &Publisher{
		recorder:  recorder,
		producer:  producer,
		log:       log,
		interval:  interval,
		batchSize: batchSize,
		done:      make(chan struct{}),
	}
}

// Start runs the publisher loop until Stop is called or ctx is cancelled
func (p *Publisher) Start(ctx context.Context) {
	go p.run(ctx)
}

// Stop stops the publisher loop
func (p *Publisher) Stop() {
	close(p.done)
}

func (p *Publisher) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info("audit outbox publisher started")

	for {
		select {
		case <-ticker.C:
			p.drain(ctx)
		case <-p.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// drain publishes one batch of unpublished entries
func (p *Publisher) drain(ctx context.Context) {
	entries, err := p.recorder.FetchUnpublished(ctx, p.batchSize)
	if err != nil {
		p.log.ErrorWithContext(ctx, "failed to fetch outbox entries", err, nil)
		return
	}
	if len(entries) == 0 {
		return
	}

	published := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		if err := p.producer.Publish(entry); err != nil {
			// Leave the entry for the next tick; ordering within the
			// event key is preserved because we stop at the first failure
			p.log.ErrorWithContext(ctx, "failed to publish audit event", err,
				map[string]interface{}{"entry_id": entry.ID.String(), "type": entry.Type})
			break
		}
		published = append(published, entry.ID)
	}

	if len(published) == 0 {
		return
	}
	if err := p.recorder.MarkPublished(ctx, published); err != nil {
		// At-least-once: entries will be re-published on the next tick
		p.log.ErrorWithContext(ctx, "failed to mark outbox entries published", err, nil)
		return
	}

	p.log.Debug("published audit events", "count", len(published))
}
