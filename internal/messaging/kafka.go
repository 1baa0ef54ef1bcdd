package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dinerank/internal/config"
	"github.com/temcen/dinerank/pkg/models"
)

const (
	EventTypeRecommendationServed = "recommendation.served"
	defaultMaxRetries             = 3
)

// MessageWriter is the subset of *kafka.Writer the bus uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageBus publishes ranking events to Kafka.
type MessageBus struct {
	writer     MessageWriter
	topic      string
	maxRetries int
	baseDelay  time.Duration
	logger     *logrus.Logger
}

func NewMessageBus(cfg *config.Config, logger *logrus.Logger) *MessageBus {
	topic := cfg.Kafka.Topics.RecommendationsServed
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // Key by user so a user's events stay ordered
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}
	return NewMessageBusWithWriter(writer, topic, logger)
}

func NewMessageBusWithWriter(writer MessageWriter, topic string, logger *logrus.Logger) *MessageBus {
	return &MessageBus{
		writer:     writer,
		topic:      topic,
		maxRetries: defaultMaxRetries,
		baseDelay:  100 * time.Millisecond,
		logger:     logger,
	}
}

// PublishRecommendationServed writes one event, retrying with exponential
// backoff.
func (mb *MessageBus) PublishRecommendationServed(ctx context.Context, event models.RecommendationServedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID)},
			{Key: "event_type", Value: []byte(EventTypeRecommendationServed)},
			{Key: "timestamp", Value: []byte(event.ServedAt.Format(time.RFC3339))},
		},
	}

	return mb.writeWithRetry(ctx, event.EventID, message)
}

func (mb *MessageBus) writeWithRetry(ctx context.Context, eventID string, message kafka.Message) error {
	var lastErr error

	for attempt := 0; attempt <= mb.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			delay := mb.baseDelay * time.Duration(1<<uint(attempt-1))
			mb.logger.WithFields(logrus.Fields{
				"event_id": eventID,
				"attempt":  attempt,
				"delay":    delay,
			}).Debug("Retrying event publish")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := mb.writer.WriteMessages(ctx, message); err != nil {
			lastErr = err
			mb.logger.WithError(err).WithFields(logrus.Fields{
				"event_id": eventID,
				"attempt":  attempt,
			}).Warn("Event publish failed")
			continue
		}

		mb.logger.WithFields(logrus.Fields{
			"event_id": eventID,
			"topic":    mb.topic,
		}).Debug("Event published to Kafka")
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (mb *MessageBus) Close() error {
	if err := mb.writer.Close(); err != nil {
		return fmt.Errorf("failed to close producer: %w", err)
	}
	return nil
}
