package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"PaymentWebhooks/internal/api/messaging"
	"PaymentWebhooks/pkg/correlation"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements messaging.Publisher using Kafka.
type Publisher struct {
	writer messageWriter
	topic  string
}

var _ messaging.Publisher = (*Publisher)(nil)

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{writer: newWriter(brokers, topic), topic: topic}
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// Publish writes env keyed by env.Key, so all messages for one order land on
// the same partition.
func (p *Publisher) Publish(ctx context.Context, env messaging.Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(env.Key),
		Value: value,
	}

	if corrID := correlation.FromContext(ctx); corrID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{
			Key:   correlation.KafkaHeaderName,
			Value: []byte(corrID),
		})
	}

	if err = p.writer.WriteMessages(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish message",
			"topic", p.topic, "key", env.Key, slog.Any("error", err))
		return err
	}

	slog.DebugContext(ctx, "Message published",
		"topic", p.topic, "key", env.Key, "event_id", env.EventID, "type", env.Type)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
