package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/odds-tracker/internal/models"
)

// MessageWriter is the subset of kafka.Writer used by KafkaNotifier
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes one JSON message per change, keyed by event so a race
// stays on one partition
type KafkaNotifier struct {
	writer MessageWriter
	topic  string
	logger *logrus.Logger
}

// NewKafkaNotifier creates a notifier writing to topic on brokers
func NewKafkaNotifier(brokers []string, topic string, logger *logrus.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
	}
	return NewKafkaNotifierWithWriter(writer, topic, logger)
}

// NewKafkaNotifierWithWriter creates a notifier on an existing writer
func NewKafkaNotifierWithWriter(writer MessageWriter, topic string, logger *logrus.Logger) *KafkaNotifier {
	return &KafkaNotifier{writer: writer, topic: topic, logger: logger}
}

// Name implements Notifier
func (n *KafkaNotifier) Name() string { return "kafka" }

// Notify implements Notifier
func (n *KafkaNotifier) Notify(ctx context.Context, changes []models.OddsChange) error {
	msgs := make([]kafka.Message, 0, len(changes))
	for _, change := range changes {
		value, err := json.Marshal(change)
		if err != nil {
			return fmt.Errorf("failed to encode odds change: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(change.Event),
			Value: value,
			Time:  change.At,
		})
	}

	if err := n.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish %d odds changes to %s: %w", len(msgs), n.topic, err)
	}

	n.logger.WithFields(logrus.Fields{
		"topic":   n.topic,
		"changes": len(msgs),
	}).Debug("Published odds changes")
	return nil
}

// Close flushes and closes the writer
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
