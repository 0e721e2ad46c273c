package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"chronos/internal/model"
	"chronos/pkg/logger"
)

// messageWriter is the subset of *kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes committed change events to a Kafka topic
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher creates a publisher writing to topic on brokers
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		topic: topic,
	}
}

// Publish writes one event keyed by its ID so retries land on the same partition
func (p *KafkaPublisher) Publish(ctx context.Context, event *model.ChangeEvent) error {
	msg, err := buildMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	logger.DebugCtx(ctx, "published %s event %s to %s", event.Type, event.ID, p.topic)
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func buildMessage(event *model.ChangeEvent) (kafka.Message, error) {
	if event == nil {
		return kafka.Message{}, fmt.Errorf("nil change event")
	}
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal change event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.ID),
		Value: value,
		Time:  event.CreatedAt,
	}, nil
}
