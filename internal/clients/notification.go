package clients

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"order-orchestrator/internal/models"
)

// KafkaNotification publishes outbox events to the order lifecycle
// topic, the way the ticketing platform's kafka.Producer streams order
// events downstream.
type KafkaNotification struct {
	writer *kafka.Writer
}

func NewKafkaNotification(brokers []string, topic string) *KafkaNotification {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &KafkaNotification{writer: writer}
}

func (k *KafkaNotification) SendEvent(ctx context.Context, event models.OutboxEvent) error {
	err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(event.AggregateID),
		Value:   event.Payload,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(event.EventType)}, {Key: "correlation_id", Value: []byte(event.CorrelationID)}},
	})
	if err != nil {
		return fmt.Errorf("publish outbox event %s: %w", event.ID, err)
	}
	return nil
}

func (k *KafkaNotification) Close() error {
	return k.writer.Close()
}
