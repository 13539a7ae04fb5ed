package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/tony-angelo/aletheia-codex/pkg/tracing"
)

// Review event types
const (
	EventReviewApproved = "review.approved"
	EventReviewRejected = "review.rejected"
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

// ReviewEvent announces a review decision to downstream consumers
type ReviewEvent struct {
	EventType        string    `json:"event_type"`
	UserID           string    `json:"user_id"`
	ItemID           string    `json:"item_id"`
	ItemType         string    `json:"item_type"`
	SourceDocumentID string    `json:"source_document_id"`
	GraphID          string    `json:"graph_id,omitempty"`
	RejectionReason  *string   `json:"rejection_reason,omitempty"`
	ReviewedBy       string    `json:"reviewed_by"`
	Timestamp        time.Time `json:"timestamp"`
}

// PublishReviewEvent publishes a review decision event to Kafka
func (p *Producer) PublishReviewEvent(ctx context.Context, event *ReviewEvent) error {
	return p.PublishReviewEvents(ctx, []*ReviewEvent{event})
}

// PublishReviewEvents publishes multiple review events in a batch
func (p *Producer) PublishReviewEvents(ctx context.Context, events []*ReviewEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishReviewEvents")
	defer span.End()

	if len(events) == 0 {
		return nil
	}

	messages := make([]kafka.Message, len(events))
	for i, event := range events {
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}

		data, err := json.Marshal(event)
		if err != nil {
			return err
		}

		headers := []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "user_id", Value: []byte(event.UserID)},
			{Key: "item_type", Value: []byte(event.ItemType)},
			{Key: "schema_version", Value: []byte("1.0")},
		}
		if traceparent := tracing.GetTraceParent(ctx); traceparent != "" {
			headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(traceparent)})
		}

		messages[i] = kafka.Message{
			Topic:   p.topic,
			Key:     []byte(event.ItemID),
			Value:   data,
			Headers: headers,
		}
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"batch_size": len(events),
		}).Error("Failed to publish review events batch")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"batch_size": len(events),
	}).Debug("Published review events batch")

	return nil
}
