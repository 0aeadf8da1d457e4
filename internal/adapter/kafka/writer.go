package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/tide-notifier/internal/config"
	"github.com/couchcryptid/tide-notifier/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces notifications to a Kafka topic for the delivery gateway.
// It implements notify.MessageSender.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured notification topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Send publishes one notification, keyed by the subscriber's email so all
// messages for a recipient land on the same partition.
func (w *Writer) Send(ctx context.Context, subscriber domain.Subscriber, notification domain.Notification) error {
	msg, err := serializeToMessage(domain.NewDelivery(subscriber, notification))
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%w: kafka write: %w", domain.ErrDeliveryFailed, err)
	}
	w.logger.Debug("notification produced", "recipient", subscriber.Email)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Delivery into a Kafka message.
func serializeToMessage(d domain.Delivery) (kafkago.Message, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize delivery: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(d.Email),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "recipient", Value: []byte(d.Email)},
			{Key: "sent_at", Value: []byte(d.SentAt.Format(time.RFC3339))},
		},
	}, nil
}
