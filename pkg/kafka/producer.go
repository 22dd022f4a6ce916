package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// TradelineEvent tells downstream consumers a tradeline changed.
type TradelineEvent struct {
	EventType   string          `json:"event_type"` // tradeline.created, tradeline.enriched
	OwnerID     string          `json:"owner_id"`
	TradelineID string          `json:"tradeline_id"`
	DocumentID  string          `json:"document_id,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// BatchEvent summarizes a completed batch for downstream consumers.
type BatchEvent struct {
	EventType        string    `json:"event_type"` // batch.completed
	OwnerID          string    `json:"owner_id"`
	DocumentID       string    `json:"document_id,omitempty"`
	Total            int       `json:"total"`
	Inserted         int       `json:"inserted"`
	Updated          int       `json:"updated"`
	SkippedInvalid   int       `json:"skipped_invalid"`
	SkippedDuplicate int       `json:"skipped_duplicate"`
	Errors           []string  `json:"errors,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// PublishTradelineEvent publishes a tradeline event to Kafka
func (p *Producer) PublishTradelineEvent(ctx context.Context, event *TradelineEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishTradelineEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.OwnerID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "owner_id", Value: []byte(event.OwnerID)},
		},
	}

	if tp := tracing.GetTraceParent(ctx); tp != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "traceparent", Value: []byte(tp)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type":   event.EventType,
			"owner_id":     event.OwnerID,
			"tradeline_id": event.TradelineID,
		}).Error("Failed to publish tradeline event")
		return err
	}

	return nil
}

// PublishBatchEvent publishes a batch completion event to Kafka
func (p *Producer) PublishBatchEvent(ctx context.Context, event *BatchEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishBatchEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.OwnerID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "owner_id", Value: []byte(event.OwnerID)},
		},
	}

	if tp := tracing.GetTraceParent(ctx); tp != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "traceparent", Value: []byte(tp)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": event.EventType,
			"owner_id":   event.OwnerID,
		}).Error("Failed to publish batch event")
		return err
	}

	return nil
}
