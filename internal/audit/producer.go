package audit

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"reservely/internal/shared/config"
)

// SinkProducer publishes audit events to the external notification/audit sink
type SinkProducer interface {
	Publish(entry OutboxEntry) error
	Close() error
}

// KafkaSinkProducer delivers outbox entries to a Kafka topic. Delivery is
// at-least-once: the publisher marks entries published only after the broker
// acknowledges them.
type KafkaSinkProducer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaSinkProducer creates a new Kafka audit sink producer
func NewKafkaSinkProducer(cfg config.KafkaConfig) (*KafkaSinkProducer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Retry.Max = cfg.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1

	// Hash partitioner keeps all events of one registration event in order
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaSinkProducer{
		producer: producer,
		topic:    cfg.AuditTopic,
	}, nil
}

// Publish sends a single outbox entry to the sink topic
func (p *KafkaSinkProducer) Publish(entry OutboxEntry) error {
	message := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(entry.EventID.String()),
		Value: sarama.ByteEncoder(entry.Payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("audit_entry_id"), Value: []byte(entry.ID.String())},
			{Key: []byte("event_type"), Value: []byte(entry.Type)},
			{Key: []byte("created_at"), Value: []byte(entry.CreatedAt.Format(time.RFC3339))},
		},
		Timestamp: entry.CreatedAt,
	}

	if _, _, err := p.producer.SendMessage(message); err != nil {
		return fmt.Errorf("failed to send audit event to Kafka: %w", err)
	}
	return nil
}

// Close closes the Kafka producer
func (p *KafkaSinkProducer) Close() error {
	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
	}
	return nil
}
